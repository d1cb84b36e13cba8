package throttle

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestGuardDeniesWithinWindow(t *testing.T) {
	guard := NewGuard(15 * time.Second)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := guard.AdmitAt("203.0.113.7", start)
	require.True(t, first.Allowed)
	require.Zero(t, first.RetryAfter)

	second := guard.AdmitAt("203.0.113.7", start.Add(14999*time.Millisecond))
	require.False(t, second.Allowed)
	require.Equal(t, time.Millisecond, second.RetryAfter)
}

func TestGuardAdmitsAtWindowBoundary(t *testing.T) {
	guard := NewGuard(15 * time.Second)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, guard.AdmitAt("client", start).Allowed)
	require.True(t, guard.AdmitAt("client", start.Add(15*time.Second)).Allowed)
}

func TestGuardReanchorsOnAdmissionOnly(t *testing.T) {
	guard := NewGuard(15 * time.Second)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, guard.AdmitAt("client", start).Allowed)
	// A denied attempt does not move the anchor.
	require.False(t, guard.AdmitAt("client", start.Add(10*time.Second)).Allowed)
	require.True(t, guard.AdmitAt("client", start.Add(15*time.Second)).Allowed)
	// The anchor moved to t+15s, so t+20s is inside the new window.
	decision := guard.AdmitAt("client", start.Add(20*time.Second))
	require.False(t, decision.Allowed)
	require.Equal(t, 10*time.Second, decision.RetryAfter)
}

func TestGuardClientsAreIndependent(t *testing.T) {
	guard := NewGuard(15 * time.Second)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, guard.AdmitAt("a", start).Allowed)
	require.False(t, guard.AdmitAt("a", start.Add(time.Second)).Allowed)
	require.True(t, guard.AdmitAt("b", start.Add(time.Second)).Allowed)
	require.Equal(t, 2, guard.Clients())
}

func TestGuardUsesInjectedClock(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	guard := NewGuard(0)
	guard.Clock = func() time.Time { return now }

	require.Equal(t, DefaultWindow, guard.Window)
	require.True(t, guard.Admit("client").Allowed)
	require.False(t, guard.Admit("client").Allowed)

	now = now.Add(DefaultWindow)
	require.True(t, guard.Admit("client").Allowed)
}

func TestGuardAdmitsOnceUnderConcurrency(t *testing.T) {
	guard := NewGuard(15 * time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.AdmitAt("same-client", now).Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), admitted.Load())
}

func TestZeroValueGuard(t *testing.T) {
	var guard Guard
	require.True(t, guard.Admit("client").Allowed)
	require.False(t, guard.Admit("client").Allowed)
}

func TestRemoteAddrResolver(t *testing.T) {
	req := httptest.NewRequest("POST", "/generate-readme", nil)
	req.RemoteAddr = "198.51.100.4:53211"
	require.Equal(t, "198.51.100.4", RemoteAddrResolver{}.ClientID(req))

	req.RemoteAddr = "198.51.100.4"
	require.Equal(t, "198.51.100.4", RemoteAddrResolver{}.ClientID(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", RemoteAddrResolver{}.ClientID(req))
}

func TestAnonymizeClient(t *testing.T) {
	require.Equal(t, "198.51.100.0/24", AnonymizeClient("198.51.100.4"))
	require.Equal(t, "2001:db8::/48", AnonymizeClient("2001:db8::1"))
	require.Equal(t, "short", AnonymizeClient("short"))
	require.Equal(t, "client-a…", AnonymizeClient("client-abcdef"))

	truncated := AnonymizeClient("客户端标识符一二三四")
	require.True(t, utf8.ValidString(truncated))
	require.Equal(t, "客户端标识符一二…", truncated)
}

func TestDecisionCarriesWindow(t *testing.T) {
	guard := NewGuard(30 * time.Second)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 30*time.Second, guard.AdmitAt("client", start).Window)

	denied := guard.AdmitAt("client", start.Add(time.Second))
	require.False(t, denied.Allowed)
	require.Equal(t, 30*time.Second, denied.Window)
}

func TestSetWindowAppliesToNextDecision(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	guard := NewGuard(DefaultWindow)

	require.True(t, guard.AdmitAt("c", start).Allowed)

	guard.SetWindow(5 * time.Second)
	require.Equal(t, 5*time.Second, guard.CurrentWindow())
	require.True(t, guard.AdmitAt("c", start.Add(5*time.Second)).Allowed)

	guard.SetWindow(0)
	require.Equal(t, DefaultWindow, guard.CurrentWindow())
}
