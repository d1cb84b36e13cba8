// Package throttle admits or rejects requests per client using a fixed
// window anchored at the last admitted request.
package throttle

import (
	"sync"
	"time"
)

// DefaultWindow is the minimum spacing between two admitted requests from the
// same client.
const DefaultWindow = 15 * time.Second

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the client must wait before it would be admitted.
	// Zero when Allowed.
	RetryAfter time.Duration
	// Window is the spacing the decision was made with.
	Window time.Duration
}

// Guard tracks the last admitted request time per client identifier.
//
// Entries are never evicted; the map holds one timestamp per distinct client
// for the lifetime of the process.
type Guard struct {
	Window time.Duration
	Clock  func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewGuard returns a guard with the given window. A non-positive window falls
// back to DefaultWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		Window: window,
		last:   make(map[string]time.Time),
	}
}

// Admit decides whether the client may proceed at the guard's current time.
func (g *Guard) Admit(clientID string) Decision {
	return g.AdmitAt(clientID, g.now())
}

// AdmitAt decides whether the client may proceed at now. On admission the
// stored timestamp is moved to now before returning. The read, decision and
// write happen under one lock so concurrent requests from the same client
// cannot both be admitted.
func (g *Guard) AdmitAt(clientID string, now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	window := g.window()

	if g.last == nil {
		g.last = make(map[string]time.Time)
	}

	if prev, seen := g.last[clientID]; seen {
		elapsed := now.Sub(prev)
		if elapsed < window {
			return Decision{Allowed: false, RetryAfter: window - elapsed, Window: window}
		}
	}

	g.last[clientID] = now
	return Decision{Allowed: true, Window: window}
}

// Clients returns the number of distinct clients ever admitted.
func (g *Guard) Clients() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.last)
}

// SetWindow changes the window for subsequent decisions. Stored admission
// times are kept. A non-positive window falls back to DefaultWindow.
func (g *Guard) SetWindow(window time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Window = window
}

// CurrentWindow returns the effective window.
func (g *Guard) CurrentWindow() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window()
}

// window must be called with mu held.
func (g *Guard) window() time.Duration {
	if g.Window <= 0 {
		return DefaultWindow
	}
	return g.Window
}

func (g *Guard) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now()
}
