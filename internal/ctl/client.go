package ctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ensembled/pkg/types"
)

// WireEvent is one NDJSON line of a chat stream. Exactly one field group is
// set per line; FinalAnswer is a pointer so an empty answer still registers.
type WireEvent struct {
	Stage       string           `json:"stage,omitempty"`
	FinalAnswer *string          `json:"finalAnswer,omitempty"`
	Models      []types.ModelRef `json:"models,omitempty"`
	Error       string           `json:"error,omitempty"`
	Message     string           `json:"message,omitempty"`
}

// Client talks to a running ensembled instance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client for addr ("host:port" or a full URL).
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		// No overall timeout: chat streams are open-ended.
		HTTP: &http.Client{},
	}
}

// Ask streams a prompt's pipeline events, invoking onEvent per line.
func (c *Client) Ask(ctx context.Context, prompt string, onEvent func(WireEvent)) error {
	body, err := json.Marshal(types.ChatRequest{Prompt: prompt})
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, "/chat", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev WireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("bad stream line %q: %w", line, err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
	return sc.Err()
}

// Feedback submits a rating and returns the acknowledgement message.
func (c *Client) Feedback(ctx context.Context, modelID string, rating int) (string, error) {
	body, err := json.Marshal(types.ChatRequest{Feedback: &types.Feedback{ModelID: modelID, Rating: rating}})
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, "/chat", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	var ev WireEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return "", err
	}
	if ev.Error != "" {
		return "", fmt.Errorf("%s", ev.Error)
	}
	return ev.Message, nil
}

// Models lists the configured model specs.
func (c *Client) Models(ctx context.Context) ([]types.ModelSpec, error) {
	var out types.ModelsResponse
	if err := c.getJSON(ctx, "/models", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Status fetches the service status.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.getJSON(ctx, "/status", &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.HTTP.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var er types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
		return fmt.Errorf("%s (status %d)", er.Error, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
