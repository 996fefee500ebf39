package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsFile string `json:"models_file" yaml:"models_file" toml:"models_file"`
	// Consensus strategy: weighted-summarize or majority-vote.
	Strategy string `json:"strategy" yaml:"strategy" toml:"strategy"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// Upstream inference API.
	HFBaseURL        string `json:"hf_base_url" yaml:"hf_base_url" toml:"hf_base_url"`
	HFAPIKeyEnv      string `json:"hf_api_key_env" yaml:"hf_api_key_env" toml:"hf_api_key_env"`
	SimilarityModel  string `json:"similarity_model" yaml:"similarity_model" toml:"similarity_model"`
	SummaryModel     string `json:"summary_model" yaml:"summary_model" toml:"summary_model"`
	HFTimeoutSeconds int    `json:"hf_timeout_seconds" yaml:"hf_timeout_seconds" toml:"hf_timeout_seconds"`

	// Pipeline tuning.
	ThinkingDelayMS    int     `json:"thinking_delay_ms" yaml:"thinking_delay_ms" toml:"thinking_delay_ms"`
	EnsemblingDelayMS  int     `json:"ensembling_delay_ms" yaml:"ensembling_delay_ms" toml:"ensembling_delay_ms"`
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold" toml:"relevance_threshold"`
	ClusterThreshold   float64 `json:"cluster_threshold" yaml:"cluster_threshold" toml:"cluster_threshold"`

	// Feedback store: memory (default) or redis.
	FeedbackStore string `json:"feedback_store" yaml:"feedback_store" toml:"feedback_store"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`

	// CORS (opt-in; the usual caller is a browser chat UI).
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
