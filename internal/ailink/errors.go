package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/readmegen/readmegen/internal/ailink/driver"
)

// ErrGenerationFailed matches every completion failure.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationFailureKind distinguishes completion failures for logging.
type GenerationFailureKind string

const (
	KindAuth        GenerationFailureKind = "auth"
	KindRateLimit   GenerationFailureKind = "rate_limit"
	KindBadRequest  GenerationFailureKind = "bad_request"
	KindUnavailable GenerationFailureKind = "unavailable"
	KindTransport   GenerationFailureKind = "transport"
	KindTimeout     GenerationFailureKind = "timeout"
	KindEmpty       GenerationFailureKind = "empty"
	KindConfig      GenerationFailureKind = "config"
)

const maxDetailBytes = 2048

// GenerationError describes why a completion failed. Details holds the
// provider's own message and is meant for logs only.
type GenerationError struct {
	Kind       GenerationFailureKind
	Provider   string
	StatusCode int
	Message    string
	Details    string
	Err        error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ErrGenerationFailed.Error()
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("generation failed (%s, status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("generation failed (%s): %s", e.Kind, msg)
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes every GenerationError match ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

func mapProviderError(provider string, err error) *GenerationError {
	if err == nil {
		return nil
	}
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTimeout, Provider: provider, Message: "provider request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &GenerationError{Kind: KindTransport, Provider: provider, Message: "request canceled", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := truncate(strings.TrimSpace(perr.Message), maxDetailBytes)
		base := &GenerationError{Provider: provider, StatusCode: status, Details: details, Err: err}
		switch {
		case status == 401 || status == 403:
			base.Kind, base.Message = KindAuth, "provider authentication failed"
		case status == 429:
			base.Kind, base.Message = KindRateLimit, "provider rate limited"
		case status >= 500 && status <= 599:
			base.Kind, base.Message = KindUnavailable, "provider unavailable"
		case status >= 400 && status <= 499:
			base.Kind, base.Message = KindBadRequest, "provider rejected request"
		default:
			base.Kind, base.Message = KindUnavailable, "provider request failed"
		}
		return base
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "empty response choices"), strings.Contains(msg, "no content"), strings.Contains(msg, "decode response"):
		return &GenerationError{Kind: KindEmpty, Provider: provider, Message: "provider returned no usable completion", Err: err}
	case strings.Contains(msg, "api key is required"):
		return &GenerationError{Kind: KindConfig, Provider: provider, Message: "completion api key is not configured", Err: err}
	}
	return &GenerationError{Kind: KindTransport, Provider: provider, Message: "provider request failed", Details: truncate(msg, maxDetailBytes), Err: err}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
