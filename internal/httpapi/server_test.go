package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ensembled/internal/ensemble"
	"ensembled/pkg/types"
)

type mockService struct {
	models []types.ModelSpec
	status types.StatusResponse
	ready  bool
	runErr error
	// errAfterLine makes Run write one line before failing.
	errAfterLine bool
	gotReq       types.ChatRequest
	sawFlush     bool
}

func (m *mockService) ListModels() []types.ModelSpec {
	return append([]types.ModelSpec(nil), m.models...)
}
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Run(ctx context.Context, req types.ChatRequest, w io.Writer, flush func()) error {
	m.gotReq = req
	m.sawFlush = flush != nil
	enc := json.NewEncoder(w)
	if m.runErr != nil {
		if m.errAfterLine {
			_ = enc.Encode(map[string]any{"stage": "thinking"})
			if flush != nil {
				flush()
			}
			_ = enc.Encode(map[string]any{"error": m.runErr.Error()})
			if flush != nil {
				flush()
			}
		}
		return m.runErr
	}
	_ = enc.Encode(map[string]any{"stage": "thinking"})
	if flush != nil {
		flush()
	}
	_ = enc.Encode(map[string]any{"finalAnswer": "hi"})
	if flush != nil {
		flush()
	}
	return nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.ModelSpec{{ID: "m1"}, {ID: "m2"}}}
	r := NewMux(svc)
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("content-type=%s", ct) }
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if len(body.Models) != 2 { t.Fatalf("models len=%d", len(body.Models)) }
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Strategy: "majority-vote", Models: 3}}
	r := NewMux(svc)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Strategy != "majority-vote" || body.Models != 3 { t.Fatalf("unexpected body: %+v", body) }
}

func TestReadyz(t *testing.T) {
	svc := &mockService{ready: true}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestReadyz_NotReady(t *testing.T) {
	svc := &mockService{ready: false}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), "loading") { t.Fatalf("body=%q", w.Body.String()) }
}

func TestChatStreams(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postChat(t, r, `{"prompt":"hi"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" { t.Fatalf("content-type=%s", ct) }
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 { t.Fatalf("expected 2 ndjson lines, got %d", len(lines)) }
}

func TestChatFlushSurvivesMiddleware(t *testing.T) {
	// The full middleware chain (metrics recorder included) must keep
	// exposing http.Flusher, or stage events buffer until the run ends.
	svc := &mockService{}
	r := NewMux(svc)
	w := postChat(t, r, `{"prompt":"hi"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if !svc.sawFlush {
		t.Fatalf("service received nil flush through the middleware chain")
	}
}

func TestStatusRecorderForwardsFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: 200}
	var _ http.Flusher = sr
	sr.Flush()
	if !rec.Flushed {
		t.Fatalf("flush not forwarded to the wrapped writer")
	}
}

func TestChatPassesFeedbackThrough(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postChat(t, r, `{"feedback":{"modelId":"acme/alpha","rating":1}}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	if svc.gotReq.Feedback == nil || svc.gotReq.Feedback.ModelID != "acme/alpha" {
		t.Fatalf("request not forwarded: %+v", svc.gotReq)
	}
}

func TestChatBadJSON(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postChat(t, r, "not-json")
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
}

func TestChatValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", `{}`},
		{"blank prompt", `{"prompt":"   "}`},
		{"prompt and feedback", `{"prompt":"hi","feedback":{"modelId":"m","rating":1}}`},
		{"feedback without model", `{"feedback":{"modelId":"","rating":1}}`},
		{"feedback bad rating", `{"feedback":{"modelId":"m","rating":2}}`},
		{"feedback zero rating", `{"feedback":{"modelId":"m","rating":0}}`},
	}
	r := NewMux(&mockService{})
	for _, tc := range cases {
		if w := postChat(t, r, tc.body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d, want 400", tc.name, w.Code)
		}
	}
}

func TestChatHTTPErrorMapping(t *testing.T) {
	svc := &mockService{runErr: mockHTTPError{msg: "too busy", code: http.StatusTooManyRequests}}
	r := NewMux(svc)
	w := postChat(t, r, `{"prompt":"hi"}`)
	if w.Code != http.StatusTooManyRequests { t.Fatalf("status=%d", w.Code) }
}

func TestChatUpstreamErrorMaps502(t *testing.T) {
	svc := &mockService{runErr: ensemble.ErrUpstream("generate acme/alpha", errors.New("boom"))}
	r := NewMux(svc)
	w := postChat(t, r, `{"prompt":"hi"}`)
	if w.Code != http.StatusBadGateway { t.Fatalf("status=%d", w.Code) }
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Code != http.StatusBadGateway { t.Fatalf("body=%+v", body) }
}

func TestChatGenericErrorMaps500(t *testing.T) {
	svc := &mockService{runErr: io.EOF}
	r := NewMux(svc)
	w := postChat(t, r, `{"prompt":"hi"}`)
	if w.Code != http.StatusInternalServerError { t.Fatalf("status=%d", w.Code) }
}

func TestChatErrorAfterStreamStartStaysInStream(t *testing.T) {
	svc := &mockService{runErr: errors.New("mid-run failure"), errAfterLine: true}
	r := NewMux(svc)
	w := postChat(t, r, `{"prompt":"hi"}`)
	// The stream already carried the terminal error event; the HTTP status
	// stays 200 and no JSON error payload is appended.
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 { t.Fatalf("lines=%v", lines) }
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil { t.Fatalf("json: %v", err) }
	if last["error"] != "mid-run failure" { t.Fatalf("terminal line=%v", last) }
}

func TestChatUnsupportedMediaType(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType { t.Fatalf("status=%d", w.Code) }
}

func TestChatBodyTooLarge(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	// Create >1MiB body
	big := make([]byte, (1<<20)+10)
	for i := range big { big[i] = 'a' }
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest { t.Fatalf("expected 400 for too-large body, got %d", w.Code) }
}

func TestHealthz(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}
