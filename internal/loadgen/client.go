package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/nrtgrade/internal/domain/grading"
)

// Client talks to the grading service.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Path: path, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/healthz", nil)
}

// GradingConfig fetches the rules the service grades with.
func (c *Client) GradingConfig(ctx context.Context) (grading.Configuration, error) {
	var cfg grading.Configuration
	err := c.getJSON(ctx, "/grading-config", &cfg)
	return cfg, err
}

// CycleSummary mirrors one entry of GET /cycles.
type CycleSummary struct {
	Cycle    string `json:"cycle"`
	Students int    `json:"students"`
	Entries  int    `json:"entries"`
}

// Entries returns how many entries the service holds for cycle.
func (c *Client) Entries(ctx context.Context, cycle string) (int, error) {
	var resp struct {
		Cycles []CycleSummary `json:"cycles"`
	}
	if err := c.getJSON(ctx, "/cycles", &resp); err != nil {
		return 0, err
	}
	for _, cs := range resp.Cycles {
		if cs.Cycle == cycle {
			return cs.Entries, nil
		}
	}
	return 0, nil
}

// Results fetches the ranked results of a cycle.
func (c *Client) Results(ctx context.Context, cycle string) ([]grading.ProcessedStudent, error) {
	var resp struct {
		Students []grading.ProcessedStudent `json:"students"`
	}
	path := "/results?" + url.Values{"cycle": {cycle}, "order": {string(grading.SortByRank)}}.Encode()
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Students, nil
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeBackpressure
	outcomeFailed
)

// errBackpressure marks a 429 answer.
var errBackpressure = errors.New("service applied backpressure")

// postScore submits one score and classifies the answer.
func (c *Client) postScore(ctx context.Context, s Submission) (outcome, error) { //nolint:gocritic // hugeParam
	resp, err := c.do(ctx, http.MethodPost, "/scores", s)
	if err != nil {
		return outcomeFailed, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted, nil
	case http.StatusOK:
		return outcomeDuplicate, nil
	case http.StatusTooManyRequests:
		return outcomeBackpressure, errBackpressure
	default:
		return outcomeFailed, &StatusError{Path: "/scores", Status: resp.StatusCode, Body: string(body)}
	}
}
