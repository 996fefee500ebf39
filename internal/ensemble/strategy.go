package ensemble

import (
	"context"
)

// ApologyAnswer is the fixed terminal answer when no response survives the
// relevance filter. It is a designed outcome, not an error.
const ApologyAnswer = "I'm sorry, I couldn't generate a relevant response."

// CandidateResponse is one model's answer within a single run. Created once
// per fan-out call, never mutated afterwards, discarded when the run ends.
type CandidateResponse struct {
	ModelID string
	Text    string
	// Relevance is the semantic similarity against the prompt, set only on
	// responses kept by the relevance filter.
	Relevance float64
}

// Consensus is a strategy's final reduction of the candidate set.
type Consensus struct {
	Answer string
	// ModelIDs lists the models whose responses contributed, for later
	// feedback targeting. Empty when the strategy does not attribute.
	ModelIDs []string
}

// Strategy reduces the ordered candidate responses of one run to a single
// answer. Implementations emit their own stage events (filtering,
// ensembling) so the caller-visible ordering matches the work actually done.
type Strategy interface {
	Name() string
	Build(ctx context.Context, prompt string, responses []CandidateResponse, emit Emitter) (Consensus, error)
}
