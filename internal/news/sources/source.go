// Package sources defines the provider adapter interface and one adapter per
// external news API. Each adapter turns a generic query into its provider's
// request format and maps the response into news.Article values.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
	"github.com/RobinCoderZhao/newsdesk/pkg/logctx"
)

// ErrMissingConfig is returned when an adapter has no endpoint or API key.
var ErrMissingConfig = errors.New("provider endpoint or API key is not configured")

// DefaultTimeout bounds each provider request unless overridden.
const DefaultTimeout = 15 * time.Second

// Adapter is the interface every news provider must implement.
type Adapter interface {
	// Source identifies the provider.
	Source() news.Source

	// FetchArticles issues one request. A zero date disables date filtering;
	// a non-empty category replaces the query term.
	FetchArticles(ctx context.Context, query string, date time.Time, category news.Category) ([]news.Article, error)
}

// Config holds the settings shared by all adapters.
type Config struct {
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
}

// Options tunes the HTTP behaviour of an adapter.
type Options struct {
	Client *http.Client
	Logger *slog.Logger
}

// TransportError reports a failed provider call: a network error, a non-2xx
// status or an undecodable body.
type TransportError struct {
	Source     news.Source
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// client carries the plumbing common to every adapter.
type client struct {
	source news.Source
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func newClient(source news.Source, cfg Config, opts Options) client {
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return client{
		source: source,
		cfg:    cfg,
		http:   hc,
		logger: logctx.Logger(logger).With("source", string(source)),
	}
}

func (c client) checkConfig() error {
	if c.cfg.Endpoint == "" || c.cfg.APIKey == "" {
		return fmt.Errorf("%s: %w", c.source, ErrMissingConfig)
	}
	return nil
}

// getJSON sends a GET to the configured endpoint with params and decodes the
// JSON body into out. Failures are logged and returned as *TransportError.
func (c client) getJSON(ctx context.Context, params url.Values, out any) error {
	err := c.doGet(ctx, params, out)
	if err != nil {
		c.logger.ErrorContext(ctx, "error fetching news", "error", err)
	}
	return err
}

func (c client) doGet(ctx context.Context, params url.Values, out any) error {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return &TransportError{Source: c.source, Err: fmt.Errorf("parse endpoint: %w", err)}
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &TransportError{Source: c.source, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "newsdesk/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Source: c.source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Source: c.source, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Source: c.source, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Source: c.source, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// searchTerm applies the category-overrides-query rule.
func searchTerm(query string, category news.Category) string {
	if category != "" {
		return string(category)
	}
	return query
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	if len(body) == 0 {
		return "empty response body"
	}
	return string(body)
}
