package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/metrics"
	"github.com/readmegen/readmegen/internal/observability"
)

// Recovery turns a panic into a single 500 response. The panic value and
// stack go to the log only.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", "Internal server error").
				WithCorrelationID(GetRequestID(r.Context()))
			if updated, err := panicErr.WithSeverity(errors.SeverityCritical); err == nil {
				panicErr = updated
			}

			metrics.RecordPanic()

			if observability.ServerLogger != nil {
				observability.ServerLogger.Error("panic recovered",
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("path", r.URL.Path),
					zap.String("request_id", panicErr.CorrelationID),
					zap.String("stack_trace", string(debug.Stack())))
			}

			writeErrorResponse(w, panicErr, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorResponse mirrors the application error body. It is duplicated here
// because the errors package imports this one.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func writeErrorResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope, statusCode int) {
	response := ErrorResponse{
		Error:     envelope.Message,
		Code:      envelope.Code,
		RequestID: envelope.CorrelationID,
		Details:   envelope.Details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
