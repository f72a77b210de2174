// Package api is the HTTP client for the persona/chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the API client. Both values are injected explicitly;
// there is no process-wide default base URL.
type Config struct {
	BaseURL string        // e.g. "http://localhost:8000"
	Timeout time.Duration // per-request timeout
}

// DefaultConfig returns sensible defaults for a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
		Timeout: 30 * time.Second,
	}
}

// Client talks to the persona/chat backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg = DefaultConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "api-client").Logger(),
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// ListPersonas fetches all personas.
func (c *Client) ListPersonas(ctx context.Context) ([]Persona, error) {
	var out []Persona
	if err := c.doJSON(ctx, http.MethodGet, "/api/personas", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch personas: %w", err)
	}
	return out, nil
}

// GetPersona fetches one persona by id.
func (c *Client) GetPersona(ctx context.Context, id int) (*Persona, error) {
	var out Persona
	if err := c.doJSON(ctx, http.MethodGet, "/api/personas/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch persona: %w", err)
	}
	return &out, nil
}

// CreatePersona creates a persona and returns the stored record.
func (c *Client) CreatePersona(ctx context.Context, p PersonaCreate) (*Persona, error) {
	var out Persona
	if err := c.doJSON(ctx, http.MethodPost, "/api/personas", p, &out); err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}
	return &out, nil
}

// UpdatePersona applies a partial update to a persona.
func (c *Client) UpdatePersona(ctx context.Context, id int, p PersonaUpdate) (*Persona, error) {
	var out Persona
	if err := c.doJSON(ctx, http.MethodPut, "/api/personas/"+strconv.Itoa(id), p, &out); err != nil {
		return nil, fmt.Errorf("update persona: %w", err)
	}
	return &out, nil
}

// DeletePersona removes a persona.
func (c *Client) DeletePersona(ctx context.Context, id int) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/personas/"+strconv.Itoa(id), nil, nil); err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	return nil
}

// Initial fetches the greeting (text plus optional audio) for a persona.
func (c *Client) Initial(ctx context.Context, personaID int) (*InitialResponse, error) {
	path := "/api/initial"
	if personaID > 0 {
		path += "?persona_id=" + url.QueryEscape(strconv.Itoa(personaID))
	}
	var out InitialResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch initial message: %w", err)
	}
	return &out, nil
}

// ChatSimple sends a chat turn. The session id travels in the x-session-id
// header so the backend can correlate conversation state. A 200 response
// carrying a non-empty error field is treated as a failure.
func (c *Client) ChatSimple(ctx context.Context, sessionID string, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat/simple", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-session-id", sessionID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%s", out.Error)
	}
	return &out, nil
}

// ClearSession asks the backend to discard a session's conversation state.
// Callers treat this as fire-and-forget: failures are logged, never fatal.
func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/session/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Health probes backend reachability and returns the round-trip latency.
func (c *Client) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// doJSON performs a request with an optional JSON body, decoding a JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError extracts the backend's human-readable detail/error field,
// falling back to the HTTP status.
func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if msg := eb.message(); msg != "" {
			return fmt.Errorf("%s", msg)
		}
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("body", string(data)).
		Msg("Backend error without detail field")
	return fmt.Errorf("request failed: %s", resp.Status)
}
