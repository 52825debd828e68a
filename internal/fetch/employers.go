package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"employers-engine/internal/domain"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("network failure")
	// ErrParse covers bodies that are not valid JSON or not a JSON array.
	// Records inside the array are decoded leniently.
	ErrParse = errors.New("parse failure")
)

// Doer is the slice of *http.Client the fetcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	URL     string        // full endpoint, e.g. http://127.0.0.1:5000/api/employers
	Timeout time.Duration // 0 leaves the client default
	Limiter *HostLimiter  // optional
}

type Client struct {
	cfg Config
	hc  Doer
}

// New builds a Client. A nil hc gets an *http.Client with cfg.Timeout.
func New(cfg Config, hc Doer) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, hc: hc}
}

func (c *Client) URL() string { return c.cfg.URL }

// Employers issues one GET with no body, query or extra headers and decodes
// the response as an ordered employer list.
func (c *Client) Employers(ctx context.Context) (domain.EmployerCollection, error) {
	if err := c.cfg.Limiter.WaitURL(ctx, c.cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrNetwork, c.cfg.URL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		return nil, fmt.Errorf("%w: get %s: status %s body=%q", ErrNetwork, c.cfg.URL, res.Status, string(b))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	return decodeEmployers(body)
}

func decodeEmployers(body []byte) (domain.EmployerCollection, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected JSON array, got %q", ErrParse, preview(trimmed))
	}

	out := domain.EmployerCollection{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("%w: decode employers: %w", ErrParse, err)
	}
	return out, nil
}

func preview(b []byte) string {
	if len(b) > 64 {
		return string(b[:64]) + "..."
	}
	return string(b)
}
