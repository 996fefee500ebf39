package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":        LevelOff,
		"off":     LevelOff,
		"error":   LevelError,
		"info":    LevelInfo,
		"debug":   LevelDebug,
		"unknown": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevelQueryOverride(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/chat?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("got %v", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/chat?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("got %v", got)
	}
}

func TestRequestLogLevelHeaderOverride(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/chat", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("got %v", got)
	}
}

func TestLoggingLineWriterBuffersPartialLines(t *testing.T) {
	lw := &loggingLineWriter{}
	if _, err := lw.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if string(lw.buf) != "partial" {
		t.Fatalf("buf=%q", lw.buf)
	}
	if _, err := lw.Write([]byte(" line\nnext")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if string(lw.buf) != "next" {
		t.Fatalf("buf=%q, want remainder after flushed line", lw.buf)
	}
}
