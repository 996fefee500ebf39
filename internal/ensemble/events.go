package ensemble

import (
	"encoding/json"
	"io"
	"sync"

	"ensembled/pkg/types"
)

// Stage tags observable by the caller. Model stages are derived from the
// configured order: model1..modelN.
const (
	StageThinking   = "thinking"
	StageFiltering  = "filtering"
	StageEnsembling = "ensembling"
)

// EventKind discriminates progress events. The wire protocol discriminates
// by field presence; internally the union is explicit.
type EventKind int

const (
	KindStage EventKind = iota
	KindResult
	KindError
	KindAck
)

// Event is one progress notification within a run. Events are ordered and
// append-only; a run emits exactly one terminal event (result or error for
// pipeline runs, ack for feedback submissions), always last.
type Event struct {
	Kind     EventKind
	Stage    string   // KindStage
	Answer   string   // KindResult
	ModelIDs []string // KindResult, contributing models (may be empty)
	Message  string   // KindError, KindAck
}

func StageEvent(stage string) Event { return Event{Kind: KindStage, Stage: stage} }

func ResultEvent(answer string, modelIDs []string) Event {
	return Event{Kind: KindResult, Answer: answer, ModelIDs: modelIDs}
}

func ErrorEvent(message string) Event { return Event{Kind: KindError, Message: message} }

func AckEvent(message string) Event { return Event{Kind: KindAck, Message: message} }

// Terminal reports whether the event ends its run.
func (e Event) Terminal() bool { return e.Kind != KindStage }

// MarshalJSON renders the NDJSON wire shape. The tagged-by-presence layout
// exists only here, at the serialization edge.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindStage:
		return json.Marshal(struct {
			Stage string `json:"stage"`
		}{e.Stage})
	case KindResult:
		if len(e.ModelIDs) == 0 {
			return json.Marshal(struct {
				FinalAnswer string `json:"finalAnswer"`
			}{e.Answer})
		}
		refs := make([]types.ModelRef, 0, len(e.ModelIDs))
		for _, id := range e.ModelIDs {
			refs = append(refs, types.ModelRef{ModelID: id})
		}
		return json.Marshal(struct {
			FinalAnswer string           `json:"finalAnswer"`
			Models      []types.ModelRef `json:"models"`
		}{e.Answer, refs})
	case KindError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Message})
	default: // KindAck
		return json.Marshal(struct {
			Message string `json:"message"`
		}{e.Message})
	}
}

// Emitter receives the ordered event sequence of a single run. It is
// single-producer (the pipeline) and single-consumer; Emit returning an
// error aborts the run.
type Emitter interface {
	Emit(Event) error
}

// writerEmitter streams events as NDJSON lines, flushing per line so the
// caller observes stages in real time.
type writerEmitter struct {
	w     io.Writer
	flush func()
}

func (we *writerEmitter) Emit(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := we.w.Write(append(b, '\n')); err != nil {
		return err
	}
	if we.flush != nil {
		we.flush()
	}
	return nil
}

// MemoryEmitter records events in-memory for tests.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEmitter() *MemoryEmitter { return &MemoryEmitter{} }

func (m *MemoryEmitter) Emit(ev Event) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

func (m *MemoryEmitter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
