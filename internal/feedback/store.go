// Package feedback tracks per-model feedback weights used by the
// weighted-summarize consensus strategy. A model unseen by the store has
// weight 1; every feedback submission moves the weight by ±1. Weights are
// unbounded below; flooring the effective repeat count is the consumer's
// concern, not the store's.
package feedback

import (
	"context"
	"sync"
)

// Store is the feedback weight table shared by concurrently running pipeline
// runs and feedback submissions. Record must be atomic with respect to
// itself: concurrent submissions must not lose updates.
type Store interface {
	// Record applies a ±1 rating to the model's weight and returns the new
	// weight. An unseen model is initialized to 1 before the rating applies.
	Record(ctx context.Context, modelID string, rating int) (int, error)
	// Weight returns the model's current weight, 1 if unseen.
	Weight(ctx context.Context, modelID string) (int, error)
}

// MemoryStore is the default in-process Store. Lifetime is the process;
// weights reset on restart.
type MemoryStore struct {
	mu      sync.Mutex
	weights map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{weights: make(map[string]int)}
}

func (s *MemoryStore) Record(_ context.Context, modelID string, rating int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weights[modelID]
	if !ok {
		w = 1
	}
	w += rating
	s.weights[modelID] = w
	return w, nil
}

func (s *MemoryStore) Weight(_ context.Context, modelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.weights[modelID]; ok {
		return w, nil
	}
	return 1, nil
}
