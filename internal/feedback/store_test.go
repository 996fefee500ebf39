package feedback

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreUnseenDefaultsToOne(t *testing.T) {
	s := NewMemoryStore()
	w, err := s.Weight(context.Background(), "acme/unseen")
	if err != nil { t.Fatalf("weight: %v", err) }
	if w != 1 { t.Fatalf("unseen weight=%d, want 1", w) }
}

func TestMemoryStoreAccumulates(t *testing.T) {
	// weightOf(id) after any rating sequence equals 1 + sum(ratings).
	s := NewMemoryStore()
	ctx := context.Background()
	ratings := []int{1, 1, -1, 1, -1, -1, -1}
	sum := 0
	for _, r := range ratings {
		sum += r
		if _, err := s.Record(ctx, "acme/m", r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	w, err := s.Weight(ctx, "acme/m")
	if err != nil { t.Fatalf("weight: %v", err) }
	if w != 1+sum { t.Fatalf("weight=%d, want %d", w, 1+sum) }
}

func TestMemoryStoreGoesNegative(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Record(ctx, "acme/m", -1); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	w, _ := s.Weight(ctx, "acme/m")
	if w != -2 { t.Fatalf("weight=%d, want -2 (unbounded below)", w) }
}

func TestMemoryStoreConcurrentRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = s.Record(ctx, "acme/m", 1)
		}()
	}
	wg.Wait()
	w, _ := s.Weight(ctx, "acme/m")
	if w != 1+n { t.Fatalf("weight=%d, want %d (lost updates)", w, 1+n) }
}

func TestMemoryStoreIsolatesModels(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Record(ctx, "acme/a", 1); err != nil { t.Fatalf("record: %v", err) }
	w, _ := s.Weight(ctx, "acme/b")
	if w != 1 { t.Fatalf("unrelated model weight=%d, want 1", w) }
}
