// Package errors converts application failures into gofulmen error envelopes
// and writes them as JSON HTTP responses.
package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/metrics"
	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/reqctx"
)

// Error codes.
const (
	CodeInvalidInput          = "INVALID_INPUT"
	CodeNotFound              = "NOT_FOUND"
	CodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"
	CodeRateLimited           = "RATE_LIMITED"
	CodeRepositoryUnavailable = "REPOSITORY_UNAVAILABLE"
	CodeGenerationFailed      = "GENERATION_FAILED"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeExternalService       = "EXTERNAL_SERVICE_ERROR"
	CodeInternal              = "INTERNAL_ERROR"
)

// Caller-facing messages for pipeline failures. MessageRateLimited is the
// throttle text for the default 15s window; see RateLimitedMessage.
const (
	MessageRateLimited           = "Rate limit exceeded. Please wait 15 seconds between requests."
	MessageRepositoryUnavailable = "Failed to fetch repository information or Private Repo"
	MessageGenerationFailed      = "An error occurred while generating the README"
)

// RateLimitedMessage is the throttle text for window. A non-positive window
// yields MessageRateLimited.
func RateLimitedMessage(window time.Duration) string {
	if window <= 0 {
		return MessageRateLimited
	}
	seconds := int(math.Ceil(window.Seconds()))
	if seconds == 1 {
		return "Rate limit exceeded. Please wait 1 second between requests."
	}
	return fmt.Sprintf("Rate limit exceeded. Please wait %d seconds between requests.", seconds)
}

// User Errors (400-level)
func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

// NewRateLimitedError carries the wait in whole seconds as a response detail.
func NewRateLimitedError(message string, retryAfterSeconds int) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(CodeRateLimited, message)
	env = env.WithDetails(map[string]interface{}{"retry_after_seconds": retryAfterSeconds})
	if updated, err := env.WithSeverity(errors.SeverityMedium); err == nil {
		env = updated
	}
	return env
}

// Server Errors (500-level)
func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewServiceUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeServiceUnavailable, message)
}

// Wrap functions attach request correlation and keep the root cause in the
// envelope context, which is logged but never returned to callers.

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope := wrap(ctx, CodeInvalidInput, err, message)
	if updated, sevErr := envelope.WithSeverity(errors.SeverityMedium); sevErr == nil {
		envelope = updated
	}
	return envelope
}

func WrapRepositoryUnavailable(ctx context.Context, err error) *errors.ErrorEnvelope {
	envelope := wrap(ctx, CodeRepositoryUnavailable, err, MessageRepositoryUnavailable)
	if updated, sevErr := envelope.WithSeverity(errors.SeverityMedium); sevErr == nil {
		envelope = updated
	}
	return envelope
}

func WrapGenerationFailed(ctx context.Context, err error) *errors.ErrorEnvelope {
	envelope := wrap(ctx, CodeGenerationFailed, err, MessageGenerationFailed)
	if updated, sevErr := envelope.WithSeverity(errors.SeverityHigh); sevErr == nil {
		envelope = updated
	}
	return envelope
}

func WrapExternalService(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope := wrap(ctx, CodeExternalService, err, message)
	if updated, sevErr := envelope.WithSeverity(errors.SeverityMedium); sevErr == nil {
		envelope = updated
	}
	return envelope
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	envelope := wrap(ctx, CodeInternal, err, message)
	if updated, sevErr := envelope.WithSeverity(errors.SeverityHigh); sevErr == nil {
		envelope = updated
	}
	return envelope
}

func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = envelope.WithTraceID(extractTraceID(ctx))
	return withWrappedError(envelope, err)
}

// extractCorrelationID gets correlation ID from context, falls back to generating new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := reqctx.RequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// extractTraceID uses the correlation ID until a tracing system exists.
func extractTraceID(ctx context.Context) string {
	return extractCorrelationID(ctx)
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	env, _ = env.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	if envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = reqctx.RequestID(ctx)
	}

	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}

	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
// Repository and generation failures stay 500 so callers see one failure class.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeExternalService:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	return updated
}

// ResponseDetails returns the caller-safe details of an envelope. Context
// entries hold root causes and stay in the logs.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil || len(envelope.Details) == 0 {
		return nil
	}

	details := make(map[string]interface{}, len(envelope.Details))
	for key, value := range envelope.Details {
		details[key] = value
	}
	return details
}

// HTTPErrorResponse is the error body returned on every route. Error is
// always a human-readable string.
type HTTPErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the provided envelope, logging and emitting metrics.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}

	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error:     envelope.Message,
		Code:      envelope.Code,
		RequestID: envelope.CorrelationID,
		Details:   ResponseDetails(envelope),
	}

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}

	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}

	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *errors.ErrorEnvelope, statusCode int) {
	if envelope == nil {
		return
	}

	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}
}
