package ensemble

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ensembled/internal/feedback"
	"ensembled/pkg/types"
)

// feedbackAck is the single-event response to a feedback submission.
const feedbackAck = "Feedback received. Thank you!"

// Default pacing delays. They space progress events for the caller's UI;
// relative ordering is the contract, the durations are tunable.
const (
	DefaultThinkingDelay   = 1500 * time.Millisecond
	DefaultEnsemblingDelay = 1000 * time.Millisecond
)

// Generator is the external text-generation call.
type Generator interface {
	Generate(ctx context.Context, modelID, prompt string, params types.GenerationParams) (string, error)
}

// SimilarityScorer is the external prompt-vs-response semantic similarity call.
type SimilarityScorer interface {
	Similarity(ctx context.Context, source, text string) (float64, error)
}

// Summarizer is the external summarization call.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ServiceConfig encapsulates all tunables for Service construction.
type ServiceConfig struct {
	Models    []types.ModelSpec
	Generator Generator
	Strategy  Strategy
	Feedback  feedback.Store
	// ThinkingDelay paces the thinking stage event; zero means none.
	ThinkingDelay time.Duration
	Logger        zerolog.Logger
}

// Service owns the pipeline. One Service serves many concurrent runs; the
// only cross-run state is the injected feedback store and the counters.
type Service struct {
	models        []types.ModelSpec
	gen           Generator
	strategy      Strategy
	feedback      feedback.Store
	thinkingDelay time.Duration
	log           zerolog.Logger

	mu            sync.Mutex
	runsTotal     uint64
	feedbackCount uint64
	startTime     time.Time
}

// New constructs a Service from ServiceConfig.
func New(cfg ServiceConfig) *Service {
	s := &Service{
		models:        cfg.Models,
		gen:           cfg.Generator,
		strategy:      cfg.Strategy,
		feedback:      cfg.Feedback,
		thinkingDelay: cfg.ThinkingDelay,
		log:           cfg.Logger,
		startTime:     time.Now(),
	}
	if s.thinkingDelay < 0 {
		s.thinkingDelay = 0
	}
	if s.feedback == nil {
		s.feedback = feedback.NewMemoryStore()
	}
	return s
}

// ListModels returns the configured model specs in fan-out order.
func (s *Service) ListModels() []types.ModelSpec {
	out := make([]types.ModelSpec, len(s.models))
	copy(out, s.models)
	return out
}

// Ready reports whether the service can accept runs.
func (s *Service) Ready() bool { return len(s.models) > 0 && s.gen != nil && s.strategy != nil }

// Status summarizes the service for GET /status.
func (s *Service) Status() types.StatusResponse {
	s.mu.Lock()
	runs, fb := s.runsTotal, s.feedbackCount
	s.mu.Unlock()
	now := time.Now()
	return types.StatusResponse{
		Strategy:       s.strategy.Name(),
		Models:         len(s.models),
		RunsTotal:      runs,
		FeedbackTotal:  fb,
		UptimeSeconds:  int64(now.Sub(s.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

// Run executes one request and streams its NDJSON events to w, flushing per
// line. A feedback request is a single-event transaction; a prompt request
// walks the full pipeline. The caller must have validated the request shape.
// When the returned error is non-nil and events were already written, the
// terminal error event has been emitted in-stream.
func (s *Service) Run(ctx context.Context, req types.ChatRequest, w io.Writer, flush func()) error {
	emit := &writerEmitter{w: w, flush: flush}
	if req.Feedback != nil {
		return s.recordFeedback(ctx, *req.Feedback, emit)
	}
	return s.runPipeline(ctx, req.Prompt, emit)
}

// recordFeedback bypasses the pipeline state machine entirely.
func (s *Service) recordFeedback(ctx context.Context, fb types.Feedback, emit Emitter) error {
	weight, err := s.feedback.Record(ctx, fb.ModelID, fb.Rating)
	if err != nil {
		return ErrUpstream("record feedback", err)
	}
	s.mu.Lock()
	s.feedbackCount++
	s.mu.Unlock()
	feedbackTotal.WithLabelValues(strconv.Itoa(fb.Rating)).Inc()
	s.log.Info().Str("model", fb.ModelID).Int("rating", fb.Rating).Int("weight", weight).Msg("feedback recorded")
	return emit.Emit(AckEvent(feedbackAck))
}

func (s *Service) runPipeline(ctx context.Context, prompt string, emit Emitter) error {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("strategy", s.strategy.Name()).Logger()
	start := time.Now()

	outcome, err := s.pipeline(ctx, prompt, emit, log)

	s.mu.Lock()
	s.runsTotal++
	s.mu.Unlock()
	runsTotal.WithLabelValues(s.strategy.Name(), outcome).Inc()
	runDuration.WithLabelValues(s.strategy.Name()).Observe(time.Since(start).Seconds())
	return err
}

// pipeline walks Thinking -> QueryingModel(i) -> strategy stages -> Terminal
// and returns the outcome label for metrics.
func (s *Service) pipeline(ctx context.Context, prompt string, emit Emitter, log zerolog.Logger) (string, error) {
	if err := emit.Emit(StageEvent(StageThinking)); err != nil {
		return "aborted", err
	}
	if err := pause(ctx, s.thinkingDelay); err != nil {
		return "aborted", err
	}

	responses, err := s.fanout(ctx, prompt, emit)
	if err != nil {
		return s.fail(ctx, emit, err, log)
	}

	consensus, err := s.strategy.Build(ctx, prompt, responses, emit)
	if err != nil {
		return s.fail(ctx, emit, err, log)
	}

	if err := emit.Emit(ResultEvent(consensus.Answer, consensus.ModelIDs)); err != nil {
		return "aborted", err
	}
	log.Info().Int("responses", len(responses)).Int("contributors", len(consensus.ModelIDs)).Msg("run complete")
	return "result", nil
}

// fail terminates the run. On caller disconnect no further events are
// produced; otherwise exactly one terminal error event is emitted.
func (s *Service) fail(ctx context.Context, emit Emitter, err error, log zerolog.Logger) (string, error) {
	if ctx.Err() != nil {
		log.Info().Err(err).Msg("run canceled")
		return "canceled", err
	}
	log.Error().Err(err).Msg("run failed")
	if emitErr := emit.Emit(ErrorEvent(err.Error())); emitErr != nil {
		return "error", err
	}
	return "error", err
}

// pause blocks for d or until the context is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
