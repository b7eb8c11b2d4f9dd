package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pefman/w40k-challenge/internal/models"
	"github.com/pefman/w40k-challenge/internal/stats"
)

const defaultCacheTTL = 5 * time.Minute

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Code, e.Message)
}

// Client talks to a running API server. The character list is cached since
// the catalogue never changes while a server is up.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration

	mu         sync.RWMutex
	characters []CharacterSummary
	fetched    time.Time
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithCacheTTL(d time.Duration) ClientOption {
	return func(c *Client) { c.ttl = d }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 8 * time.Second},
		ttl:     defaultCacheTTL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb ErrorBody
		if json.NewDecoder(resp.Body).Decode(&eb) != nil || eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: eb.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Characters lists the catalogue, served from cache within the TTL.
func (c *Client) Characters(ctx context.Context) ([]CharacterSummary, error) {
	c.mu.RLock()
	if len(c.characters) > 0 && time.Since(c.fetched) < c.ttl {
		out := append([]CharacterSummary(nil), c.characters...)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	var res []CharacterSummary
	if err := c.do(ctx, http.MethodGet, "/api/characters", nil, &res); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.characters = append([]CharacterSummary(nil), res...)
	c.fetched = time.Now()
	c.mu.Unlock()
	return res, nil
}

func (c *Client) Character(ctx context.Context, id string) (models.Character, error) {
	var ch models.Character
	err := c.do(ctx, http.MethodGet, "/api/characters/"+url.PathEscape(id), nil, &ch)
	return ch, err
}

// Gambits lists what id may ever select, before per-round filtering.
func (c *Client) Gambits(ctx context.Context, id string) ([]models.Gambit, error) {
	var gs []models.Gambit
	err := c.do(ctx, http.MethodGet, "/api/characters/"+url.PathEscape(id)+"/gambits", nil, &gs)
	return gs, err
}

func (c *Client) StartSimulation(ctx context.Context, req SimulationRequest) (SimulationStatus, error) {
	var st SimulationStatus
	err := c.do(ctx, http.MethodPost, "/api/simulations", req, &st)
	return st, err
}

func (c *Client) Simulation(ctx context.Context, id uuid.UUID) (SimulationStatus, error) {
	var st SimulationStatus
	err := c.do(ctx, http.MethodGet, "/api/simulations/"+id.String(), nil, &st)
	return st, err
}

// WaitSimulation polls until the job leaves the running state.
func (c *Client) WaitSimulation(ctx context.Context, id uuid.UUID, every time.Duration) (SimulationStatus, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		st, err := c.Simulation(ctx, id)
		if err != nil || st.finished() {
			return st, err
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) Stats(ctx context.Context) (stats.Summary, error) {
	var sum stats.Summary
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &sum)
	return sum, err
}
