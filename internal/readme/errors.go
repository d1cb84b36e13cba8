package readme

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRateLimited matches a request the throttle refused.
var ErrRateLimited = errors.New("rate limit exceeded")

// DeniedError reports a throttled request and how long the client must wait.
type DeniedError struct {
	ClientID   string
	RetryAfter time.Duration
	Window     time.Duration
}

func (e *DeniedError) Error() string {
	if e == nil {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s: retry in %ds", ErrRateLimited, e.RetryAfterSeconds())
}

// Is makes every DeniedError match ErrRateLimited.
func (e *DeniedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (e *DeniedError) RetryAfterSeconds() int {
	if e == nil || e.RetryAfter <= 0 {
		return 1
	}
	return int(math.Ceil(e.RetryAfter.Seconds()))
}
