// Package hfapi is a thin client for the Hugging Face Inference API. It
// covers the three calls the pipeline consumes as black boxes: text
// generation, sentence similarity, and summarization. No retries; a failed
// call fails the caller's run.
package hfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ensembled/pkg/types"
)

const (
	DefaultBaseURL         = "https://api-inference.huggingface.co"
	DefaultSimilarityModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultSummaryModel    = "facebook/bart-large-cnn"
	defaultTimeout         = 120 * time.Second

	// Upper bound on response bodies we are willing to read.
	maxResponseBytes = 2 << 20
)

// Config holds client construction parameters. Zero values fall back to
// package defaults.
type Config struct {
	BaseURL         string
	APIKey          string
	SimilarityModel string
	SummaryModel    string
	Timeout         time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SimilarityModel == "" {
		cfg.SimilarityModel = DefaultSimilarityModel
	}
	if cfg.SummaryModel == "" {
		cfg.SummaryModel = DefaultSummaryModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// Generate queries a text-generation model and returns the generated text.
func (c *Client) Generate(ctx context.Context, modelID, prompt string, params types.GenerationParams) (string, error) {
	payload := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens": params.MaxTokens,
			"temperature":    params.Temperature,
		},
	}
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := c.post(ctx, modelID, payload, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%s: empty generation response", modelID)
	}
	return out[0].GeneratedText, nil
}

// Similarity scores how semantically related text is to source, in [0,1].
func (c *Client) Similarity(ctx context.Context, source, text string) (float64, error) {
	payload := map[string]any{
		"inputs": map[string]any{
			"source_sentence": source,
			"sentences":       []string{text},
		},
	}
	var scores []float64
	if err := c.post(ctx, c.cfg.SimilarityModel, payload, &scores); err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("%s: empty similarity response", c.cfg.SimilarityModel)
	}
	return scores[0], nil
}

// Summarize compresses text with the configured summarization model.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	payload := map[string]any{"inputs": text}
	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := c.post(ctx, c.cfg.SummaryModel, payload, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%s: empty summarization response", c.cfg.SummaryModel)
	}
	return out[0].SummaryText, nil
}

func (c *Client) post(ctx context.Context, modelID string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", modelID, err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + modelID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create %s request: %w", modelID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s http call: %w", modelID, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", modelID, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s status %d: %s", modelID, resp.StatusCode, trim(string(body), 300))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", modelID, err)
	}
	return nil
}

func trim(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
