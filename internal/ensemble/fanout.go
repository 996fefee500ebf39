package ensemble

import (
	"context"
	"strconv"
)

// stageTag derives the caller-visible stage name for the i-th configured
// model (zero-based): model1..modelN.
func stageTag(i int) string { return "model" + strconv.Itoa(i+1) }

// fanout queries the configured models strictly in order, emitting each
// model's stage event before its call. Sequential on purpose: the stage
// ordering is an observable contract. Any call failure aborts the run with
// no partial-result continuation.
func (s *Service) fanout(ctx context.Context, prompt string, emit Emitter) ([]CandidateResponse, error) {
	out := make([]CandidateResponse, 0, len(s.models))
	for i, spec := range s.models {
		if err := emit.Emit(StageEvent(stageTag(i))); err != nil {
			return nil, err
		}
		text, err := s.gen.Generate(ctx, spec.ID, prompt, spec.Parameters)
		if err != nil {
			return nil, ErrUpstream("generate "+spec.ID, err)
		}
		modelCallsTotal.WithLabelValues(spec.ID).Inc()
		out = append(out, CandidateResponse{ModelID: spec.ID, Text: text})
	}
	return out, nil
}
