package metrics

import (
	"strconv"
	"time"

	"github.com/readmegen/readmegen/internal/observability"
)

// Metric names
const (
	GenerationsTotal     = "readme_generations_total"
	StageDuration        = "readme_stage_duration_ms"
	ThrottleDecisions    = "throttle_decisions_total"
	UpstreamRequests     = "upstream_requests_total"
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
	ServerStartTime      = "app_server_start_time_seconds"
)

// RecordGeneration counts a finished pipeline run by its terminal outcome
// (generated, denied, fetch_failed, generation_failed).
func RecordGeneration(outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(GenerationsTotal, 1, map[string]string{
		"outcome": outcome,
	})
}

// RecordStage records how long one pipeline stage took.
func RecordStage(stage string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Histogram(StageDuration, duration, map[string]string{
		"stage":  stage,
		"status": status,
	})
}

// RecordThrottleDecision counts admissions and denials.
func RecordThrottleDecision(allowed bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	_ = observability.TelemetrySystem.Counter(ThrottleDecisions, 1, map[string]string{
		"decision": decision,
	})
}

// RecordUpstreamRequest counts calls to external providers. A zero status
// means the request never got a response.
func RecordUpstreamRequest(provider string, statusCode int) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	_ = observability.TelemetrySystem.Counter(UpstreamRequests, 1, map[string]string{
		"provider": provider,
		"status":   status,
	})
}

// RecordError records an error with code and status
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsTotalName, 1, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic records a panic recovery
func RecordPanic() {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(PanicsTotalName, 1, nil)
}

// RecordErrorByEndpoint records an error by endpoint
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ErrorsByEndpointName, 1, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}
