package integration

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmegen/readmegen/internal/ailink"
	"github.com/readmegen/readmegen/internal/ailink/prompt"
	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
	"github.com/readmegen/readmegen/internal/server"
	"github.com/readmegen/readmegen/internal/throttle"
)

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// initMetricsOrSkip starts the exporter; sandboxes that forbid binds skip.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = observability.ShutdownMetrics() })
}

func initLoggers(t *testing.T) {
	t.Helper()
	require.NoError(t, observability.InitCLILogger("test", false))
	require.NoError(t, observability.InitServerLogger(observability.LoggerOptions{Service: "test", Level: "info"}))
}

// listen binds IPv4 loopback explicitly and skips when sockets are refused.
func listen(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{Listener: listener, Config: &http.Server{Handler: handler}}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func newService(t *testing.T, window time.Duration) *httptest.Server {
	t.Helper()

	github := listen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widget" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"widget","description":"A tiny widget","language":"Go"}`))
	}))
	completion := listen(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# widget"},"finish_reason":"stop"}]}`))
	}))

	composer, err := prompt.DefaultComposer()
	require.NoError(t, err)
	completer, err := ailink.NewCompleterFromConfig(ailink.Config{BaseURL: completion.URL, APIKey: "sk-test"}, composer.SystemInstruction(), completion.Client())
	require.NoError(t, err)

	srv := server.New(server.Options{
		ServiceName: "test",
		Host:        "127.0.0.1",
		Pipeline: &readme.Pipeline{
			Guard:     throttle.NewGuard(window),
			Fetcher:   &repoinfo.Fetcher{Client: github.Client(), BaseURL: github.URL},
			Composer:  composer,
			Generator: completer,
		},
		HealthEnabled: true,
	})
	return listen(t, srv.Handler())
}

func postReadme(client *http.Client, baseURL, repoURL string) (int, string, error) {
	resp, err := client.Post(baseURL+"/generate-readme", "application/json",
		strings.NewReader(`{"repoUrl":"`+repoURL+`"}`))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close() // nolint:errcheck // test cleanup
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

func TestConcurrentBurstFromOneClientAdmitsOnce(t *testing.T) {
	initLoggers(t)
	initMetricsOrSkip(t)

	ts := newService(t, time.Minute)
	client := ts.Client()

	const burst = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	wg.Add(burst)
	for i := 0; i < burst; i++ {
		go func() {
			defer wg.Done()
			status, retryAfter, err := postReadme(client, ts.URL, "https://github.com/acme/widget")
			if err != nil {
				return
			}
			if status == http.StatusTooManyRequests && retryAfter == "" {
				status = -1
			}
			mu.Lock()
			statuses[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[http.StatusOK], "exactly one request is admitted: %v", statuses)
	assert.Equal(t, burst-1, statuses[http.StatusTooManyRequests], "the rest are throttled with Retry-After: %v", statuses)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	content := string(body)
	assert.Contains(t, content, "test_http_requests_total")
	assert.Contains(t, content, "test_throttle_decisions_total")
	assert.Contains(t, content, "test_readme_generations_total")
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	initLoggers(t)
	initMetricsOrSkip(t)

	ts := newService(t, time.Millisecond)
	client := ts.Client()

	status, _, err := postReadme(client, ts.URL, "https://github.com/acme/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t, strings.HasPrefix(contentType, "text/plain"), "Expected Prometheus content type, got: %s", contentType)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	metricLines := 0
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if !strings.HasPrefix(line, "#") && strings.TrimSpace(line) != "" {
			metricLines++
		}
	}
	assert.Greater(t, metricLines, 0, "Should have actual metric values")
	assert.Contains(t, string(body), "test_upstream_requests_total")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	initLoggers(t)

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	ts := newService(t, time.Millisecond)
	client := ts.Client()

	status, _, err := postReadme(client, ts.URL, "https://github.com/acme/widget")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
