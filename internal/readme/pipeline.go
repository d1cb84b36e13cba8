// Package readme sequences one README generation: admission, metadata
// lookup, prompt composition and completion.
package readme

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/ailink"
	"github.com/readmegen/readmegen/internal/metrics"
	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/reqctx"
	"github.com/readmegen/readmegen/internal/repoinfo"
	"github.com/readmegen/readmegen/internal/throttle"
)

// State is a step of the per-request state machine.
type State string

const (
	StateReceived         State = "received"
	StateAdmitted         State = "admitted"
	StateDenied           State = "denied"
	StateMetadataFetched  State = "metadata_fetched"
	StateFetchFailed      State = "fetch_failed"
	StatePromptBuilt      State = "prompt_built"
	StateGenerated        State = "generated"
	StateGenerationFailed State = "generation_failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateDenied, StateFetchFailed, StateGenerationFailed, StateGenerated:
		return true
	}
	return false
}

// Admitter decides whether a client may start a generation.
type Admitter interface {
	Admit(clientID string) throttle.Decision
}

// InfoFetcher resolves a repository URL to metadata.
type InfoFetcher interface {
	Fetch(ctx context.Context, repoURL string) (*repoinfo.Info, error)
}

// PromptBuilder renders metadata into a prompt.
type PromptBuilder interface {
	Build(info *repoinfo.Info) string
}

// TextGenerator produces text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*ailink.Completion, error)
}

// Result is a successful run.
type Result struct {
	RunID      string             `json:"run_id"`
	RepoURL    string             `json:"repo_url"`
	Repository *repoinfo.Info     `json:"repository"`
	Prompt     string             `json:"-"`
	Readme     string             `json:"readme"`
	Completion *ailink.Completion `json:"completion,omitempty"`
	States     []State            `json:"states"`
	Duration   time.Duration      `json:"duration"`
}

// Pipeline runs the stages strictly in order and stops at the first failure.
// A nil Guard admits every request, which is what one-shot CLI runs use.
type Pipeline struct {
	Guard     Admitter
	Fetcher   InfoFetcher
	Composer  PromptBuilder
	Generator TextGenerator
	Clock     func() time.Time
}

// Run executes one generation for clientID. Errors are a *DeniedError
// (ErrRateLimited), a *repoinfo.FetchError (repoinfo.ErrNotFetchable) or a
// *ailink.GenerationError (ailink.ErrGenerationFailed).
func (p *Pipeline) Run(ctx context.Context, clientID, repoURL string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := p.now()
	run := &Result{RunID: runID(ctx), RepoURL: repoURL, States: []State{StateReceived}}
	client := throttle.AnonymizeClient(clientID)

	if p.Guard != nil {
		decision := p.Guard.Admit(clientID)
		metrics.RecordThrottleDecision(decision.Allowed)
		if !decision.Allowed {
			run.States = append(run.States, StateDenied)
			p.finish(run, StateDenied, start)
			logWarn("readme request throttled",
				zap.String("run_id", run.RunID),
				zap.String("client", client),
				zap.Duration("retry_after", decision.RetryAfter))
			return nil, &DeniedError{ClientID: clientID, RetryAfter: decision.RetryAfter, Window: decision.Window}
		}
	}
	run.States = append(run.States, StateAdmitted)

	stageStart := p.now()
	info, err := p.Fetcher.Fetch(ctx, repoURL)
	metrics.RecordStage("fetch", err == nil, p.now().Sub(stageStart))
	if err != nil {
		run.States = append(run.States, StateFetchFailed)
		p.finish(run, StateFetchFailed, start)
		logWarn("repository metadata unavailable",
			zap.String("run_id", run.RunID),
			zap.String("client", client),
			zap.String("repo_url", repoURL),
			zap.Error(err))
		return nil, err
	}
	run.Repository = info
	run.States = append(run.States, StateMetadataFetched)

	stageStart = p.now()
	run.Prompt = p.Composer.Build(info)
	metrics.RecordStage("compose", true, p.now().Sub(stageStart))
	run.States = append(run.States, StatePromptBuilt)

	stageStart = p.now()
	completion, err := p.Generator.Generate(ctx, run.Prompt)
	metrics.RecordStage("generate", err == nil, p.now().Sub(stageStart))
	if err != nil {
		run.States = append(run.States, StateGenerationFailed)
		p.finish(run, StateGenerationFailed, start)
		fields := []zap.Field{
			zap.String("run_id", run.RunID),
			zap.String("repository", info.Name),
			zap.Error(err),
		}
		var gerr *ailink.GenerationError
		if errors.As(err, &gerr) {
			fields = append(fields,
				zap.String("kind", string(gerr.Kind)),
				zap.Int("provider_status", gerr.StatusCode),
				zap.String("provider_details", gerr.Details))
		}
		logError("readme generation failed", fields...)
		return nil, err
	}

	run.Completion = completion
	run.Readme = completion.Text
	run.States = append(run.States, StateGenerated)
	p.finish(run, StateGenerated, start)

	fields := []zap.Field{
		zap.String("run_id", run.RunID),
		zap.String("repository", info.Name),
		zap.String("model", completion.Model),
		zap.String("finish_reason", completion.FinishReason),
		zap.Int("readme_bytes", len(run.Readme)),
		zap.Duration("duration", run.Duration),
	}
	if completion.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", completion.Usage.TotalTokens))
	}
	logInfo("readme generated", fields...)

	return run, nil
}

func (p *Pipeline) finish(run *Result, terminal State, start time.Time) {
	run.Duration = p.now().Sub(start)
	metrics.RecordGeneration(string(terminal))
}

func (p *Pipeline) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func runID(ctx context.Context) string {
	if id := reqctx.RequestID(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}

func logInfo(msg string, fields ...zap.Field) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Info(msg, fields...)
}

func logWarn(msg string, fields ...zap.Field) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Warn(msg, fields...)
}

func logError(msg string, fields ...zap.Field) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Error(msg, fields...)
}
