package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ensembled/internal/ensemble"
	"ensembled/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.ModelSpec
	Status() types.StatusResponse
	Run(ctx context.Context, req types.ChatRequest, w io.Writer, flush func()) error
	Ready() bool
}

// countingWriter tracks whether any stream bytes reached the client. Once
// they have, errors must go in-stream rather than as an HTTP error payload.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if msg := validateChat(req); msg != "" {
			writeJSONError(w, http.StatusBadRequest, msg)
			return
		}

		// Stream NDJSON via the pipeline service (centralized logic)
		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		start := time.Now()
		cw := &countingWriter{w: w}
		// Optional logging of NDJSON events
		writer := io.Writer(cw)
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(cw, &loggingLineWriter{})
		}
		if lvl >= LevelInfo {
			if zlog != nil {
				z := zlog.Info().Str("path", r.URL.Path).Bool("feedback", req.Feedback != nil)
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				z.Msg("chat start")
			} else {
				log.Printf("chat start path=%s feedback=%v", r.URL.Path, req.Feedback != nil)
			}
		}
		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Run(joinedCtx, req, writer, flush); err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			// Once stream bytes are out, the terminal error event already
			// went in-stream; a second HTTP error would corrupt the stream.
			if cw.n > 0 {
				logChatEnd(r, lvl, "stream-error", start, err)
				return
			}
			status := http.StatusInternalServerError
			if ensemble.IsUpstream(err) {
				status = http.StatusBadGateway
			}
			if he, ok := err.(HTTPError); ok {
				status = he.StatusCode()
			}
			writeJSONError(w, status, err.Error())
			logChatEnd(r, lvl, itoa(status), start, err)
			return
		}
		logChatEnd(r, lvl, "200", start, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// validateChat enforces the request shape: exactly one of prompt or feedback.
// Returns an empty string when the request is valid.
func validateChat(req types.ChatRequest) string {
	hasPrompt := strings.TrimSpace(req.Prompt) != ""
	if req.Feedback == nil {
		if !hasPrompt {
			return "prompt or feedback is required"
		}
		return ""
	}
	if hasPrompt {
		return "prompt and feedback are mutually exclusive"
	}
	if strings.TrimSpace(req.Feedback.ModelID) == "" {
		return "feedback.modelId is required"
	}
	if req.Feedback.Rating != 1 && req.Feedback.Rating != -1 {
		return "feedback.rating must be 1 or -1"
	}
	return ""
}

func logChatEnd(r *http.Request, lvl LogLevel, status string, start time.Time, err error) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("chat end")
		return
	}
	if err != nil {
		log.Printf("chat end status=%s dur=%s err=%v", status, time.Since(start), err)
		return
	}
	log.Printf("chat end status=%s dur=%s", status, time.Since(start))
}
