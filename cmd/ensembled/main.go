package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ensembled/internal/config"
	"ensembled/internal/ensemble"
	"ensembled/internal/feedback"
	"ensembled/internal/hfapi"
	"ensembled/internal/httpapi"
	"ensembled/internal/registry"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("ENSEMBLED_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml)")
	modelsFile := flag.String("models", "", "Model spec file (.yaml/.json); empty uses the built-in trio")
	strategy := flag.String("strategy", "", "Consensus strategy: weighted-summarize|majority-vote")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "models":
			cfg.ModelsFile = *modelsFile
		case "strategy":
			cfg.Strategy = *strategy
		}
	})
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.HFAPIKeyEnv == "" {
		cfg.HFAPIKeyEnv = "HF_API_KEY"
	}

	logger := buildLogger(cfg.LogLevel)

	models := registry.Defaults()
	if cfg.ModelsFile != "" {
		loaded, err := registry.LoadFile(cfg.ModelsFile)
		if err != nil {
			log.Fatalf("failed to load models: %v", err)
		}
		models = loaded
	}
	if err := registry.Validate(models); err != nil {
		log.Fatalf("invalid model spec: %v", err)
	}

	hf := hfapi.New(hfapi.Config{
		BaseURL:         cfg.HFBaseURL,
		APIKey:          os.Getenv(cfg.HFAPIKeyEnv),
		SimilarityModel: cfg.SimilarityModel,
		SummaryModel:    cfg.SummaryModel,
		Timeout:         time.Duration(cfg.HFTimeoutSeconds) * time.Second,
	})

	store, closeStore, err := buildFeedbackStore(cfg)
	if err != nil {
		log.Fatalf("failed to connect feedback store: %v", err)
	}
	defer closeStore()

	ensemblingDelay := delayFromMS(cfg.EnsemblingDelayMS, ensemble.DefaultEnsemblingDelay)
	var strat ensemble.Strategy
	switch cfg.Strategy {
	case "", "weighted-summarize":
		strat = &ensemble.WeightedSummarizer{
			Scorer:          hf,
			Summarizer:      hf,
			Weights:         store,
			Threshold:       cfg.RelevanceThreshold,
			EnsemblingDelay: ensemblingDelay,
		}
	case "majority-vote":
		strat = &ensemble.MajorityVote{
			Threshold:       cfg.ClusterThreshold,
			EnsemblingDelay: ensemblingDelay,
		}
	default:
		log.Fatalf("unknown strategy: %s", cfg.Strategy)
	}

	svc := ensemble.New(ensemble.ServiceConfig{
		Models:        models,
		Generator:     hf,
		Strategy:      strat,
		Feedback:      store,
		ThinkingDelay: delayFromMS(cfg.ThinkingDelayMS, ensemble.DefaultThinkingDelay),
		Logger:        logger,
	})

	// Base context cancels in-flight runs on shutdown.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(logger)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins, nil, nil)
	}

	mux := httpapi.NewMux(svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("strategy", strat.Name()).Int("models", len(models)).Msg("ensembled listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

func buildLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// delayFromMS maps a config value to a duration: unset keeps the default,
// negative disables the delay.
func delayFromMS(ms int, def time.Duration) time.Duration {
	switch {
	case ms > 0:
		return time.Duration(ms) * time.Millisecond
	case ms < 0:
		return 0
	default:
		return def
	}
}

func buildFeedbackStore(cfg config.Config) (feedback.Store, func(), error) {
	switch cfg.FeedbackStore {
	case "", "memory":
		return feedback.NewMemoryStore(), func() {}, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := feedback.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		store := feedback.NewRedisStore(client)
		return store, func() { _ = store.Close() }, nil
	default:
		log.Fatalf("unknown feedback store: %s", cfg.FeedbackStore)
		return nil, nil, nil
	}
}
