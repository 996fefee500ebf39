package ensemble

import (
	"context"
	"strings"
	"time"

	"ensembled/internal/feedback"
)

// DefaultRelevanceThreshold keeps responses whose semantic similarity to the
// prompt is at least this value. The bound is inclusive.
const DefaultRelevanceThreshold = 0.5

// WeightedSummarizer filters candidates by semantic relevance to the prompt,
// repeats each survivor proportionally to its feedback weight, and asks the
// summarization service to compress the concatenation into one answer.
type WeightedSummarizer struct {
	Scorer     SimilarityScorer
	Summarizer Summarizer
	Weights    feedback.Store
	// Threshold overrides DefaultRelevanceThreshold when > 0.
	Threshold float64
	// EnsemblingDelay paces the ensembling stage event before the real work.
	EnsemblingDelay time.Duration
}

func (ws *WeightedSummarizer) Name() string { return "weighted-summarize" }

func (ws *WeightedSummarizer) Build(ctx context.Context, prompt string, responses []CandidateResponse, emit Emitter) (Consensus, error) {
	if err := emit.Emit(StageEvent(StageFiltering)); err != nil {
		return Consensus{}, err
	}
	threshold := ws.Threshold
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	kept := make([]CandidateResponse, 0, len(responses))
	for _, r := range responses {
		score, err := ws.Scorer.Similarity(ctx, prompt, r.Text)
		if err != nil {
			return Consensus{}, ErrUpstream("similarity "+r.ModelID, err)
		}
		if score >= threshold {
			r.Relevance = score
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		// No relevant answer is a designed terminal state, not a failure.
		return Consensus{Answer: ApologyAnswer}, nil
	}

	if err := emit.Emit(StageEvent(StageEnsembling)); err != nil {
		return Consensus{}, err
	}
	if err := pause(ctx, ws.EnsemblingDelay); err != nil {
		return Consensus{}, err
	}

	blocks := make([]string, 0, len(kept))
	ids := make([]string, 0, len(kept))
	for _, r := range kept {
		w, err := ws.Weights.Weight(ctx, r.ModelID)
		if err != nil {
			return Consensus{}, ErrUpstream("feedback weight "+r.ModelID, err)
		}
		// Zero or negative weights still contribute once.
		if w < 1 {
			w = 1
		}
		for i := 0; i < w; i++ {
			blocks = append(blocks, r.Text)
		}
		ids = append(ids, r.ModelID)
	}
	combined := strings.Join(blocks, "\n\n")
	summary, err := ws.Summarizer.Summarize(ctx, combined)
	if err != nil {
		return Consensus{}, ErrUpstream("summarize", err)
	}
	return Consensus{Answer: strings.TrimSpace(summary), ModelIDs: ids}, nil
}
