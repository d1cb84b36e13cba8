package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/readmegen/readmegen/internal/ailink"
	apperrors "github.com/readmegen/readmegen/internal/errors"
	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
	"github.com/readmegen/readmegen/internal/throttle"
)

// DefaultMaxBodyBytes bounds the JSON request body.
const DefaultMaxBodyBytes int64 = 64 << 10

// Runner executes one README generation for a client.
type Runner interface {
	Run(ctx context.Context, clientID, repoURL string) (*readme.Result, error)
}

// GenerateRequest is the POST /generate-readme body.
type GenerateRequest struct {
	RepoURL string `json:"repoUrl"`
}

// GenerateResponse is the success body.
type GenerateResponse struct {
	Readme string `json:"readme"`
}

// ReadmeHandler serves POST /generate-readme.
type ReadmeHandler struct {
	Pipeline     Runner
	Clients      throttle.ClientResolver
	MaxBodyBytes int64
}

func (h *ReadmeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&req); err != nil {
		message := "Request body must be a JSON object with a repoUrl string"
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			message = "Request body is too large"
		}
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, message))
		return
	}

	clients := h.Clients
	if clients == nil {
		clients = throttle.RemoteAddrResolver{}
	}

	result, err := h.Pipeline.Run(r.Context(), clients.ClientID(r), req.RepoURL)
	if err != nil {
		h.respondWithPipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Readme: result.Readme})
}

func (h *ReadmeHandler) respondWithPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *readme.DeniedError
	switch {
	case stderrors.As(err, &denied):
		seconds := denied.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondWithError(w, r, apperrors.NewRateLimitedError(apperrors.RateLimitedMessage(denied.Window), seconds))
	case stderrors.Is(err, repoinfo.ErrNotFetchable):
		respondWithError(w, r, apperrors.WrapRepositoryUnavailable(r.Context(), err))
	case stderrors.Is(err, ailink.ErrGenerationFailed):
		respondWithError(w, r, apperrors.WrapGenerationFailed(r.Context(), err))
	default:
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, apperrors.MessageGenerationFailed))
	}
}
