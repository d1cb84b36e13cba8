package repoinfo

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BackoffState captures a provider-imposed cooldown for one API host.
type BackoffState struct {
	Until     time.Time
	Last429At time.Time
}

// Backoff remembers when the hosting provider asked us to stop calling it, so
// later fetches fail fast instead of spending another request.
type Backoff struct {
	Clock func() time.Time

	mu    sync.Mutex
	state map[string]BackoffState
}

// NewBackoff returns an empty backoff tracker.
func NewBackoff() *Backoff {
	return &Backoff{state: make(map[string]BackoffState)}
}

// Allow reports whether endpoint may be called now, and if not, how long the
// cooldown still lasts.
func (b *Backoff) Allow(endpoint string) (bool, time.Duration) {
	if b == nil {
		return true, 0
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[endpoint]
	if !ok || !now.Before(st.Until) {
		return true, 0
	}
	return false, st.Until.Sub(now)
}

// Record applies a cooldown of wait starting now. Non-positive waits only
// stamp Last429At.
func (b *Backoff) Record(endpoint string, wait time.Duration) {
	if b == nil {
		return
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == nil {
		b.state = make(map[string]BackoffState)
	}
	st := b.state[endpoint]
	st.Last429At = now
	if wait > 0 {
		until := now.Add(wait)
		if until.After(st.Until) {
			st.Until = until
		}
	}
	b.state[endpoint] = st
}

// State returns a copy of the recorded state for endpoint.
func (b *Backoff) State(endpoint string) (BackoffState, bool) {
	if b == nil {
		return BackoffState{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.state[endpoint]
	return st, ok
}

func (b *Backoff) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

// rateLimitWait derives a cooldown from Retry-After or, for exhausted
// primary limits, from X-RateLimit-Reset. extra carries the raw header values
// for logging.
func rateLimitWait(resp *http.Response, now time.Time) (time.Duration, map[string]any) {
	if resp == nil || resp.Header == nil {
		return 0, nil
	}

	if retry := strings.TrimSpace(resp.Header.Get("Retry-After")); retry != "" {
		extra := map[string]any{"retry_after": retry}
		if seconds, err := strconv.Atoi(retry); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, extra
		}
		if parsed, err := http.ParseTime(retry); err == nil {
			return parsed.Sub(now), extra
		}
		return 0, extra
	}

	if strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")) != "0" {
		return 0, nil
	}
	reset := strings.TrimSpace(resp.Header.Get("X-RateLimit-Reset"))
	extra := map[string]any{"ratelimit_remaining": "0"}
	if reset == "" {
		return 0, extra
	}
	extra["ratelimit_reset"] = reset
	epoch, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 0, extra
	}
	return time.Unix(epoch, 0).Sub(now), extra
}
