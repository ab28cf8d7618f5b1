// Package fred downloads daily and weekly series from the FRED graph CSV endpoint.
package fred

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/observability"
	"credit-signal-lab/internal/panel"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://fred.stlouisfed.org/graph/fredgraph.csv"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 2 // requests per second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// ErrMalformedCSV is returned when a response is not a two-column date,value CSV.
var ErrMalformedCSV = errors.New("malformed fred csv")

// StatusError is a non-200 response.
type StatusError struct {
	StatusCode int
	SeriesID   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fred %s: status %d: %s", e.SeriesID, e.StatusCode, e.Body)
}

// Client fetches FRED series.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL sets the CSV endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithRetries sets the retry count and the initial backoff delay.
func WithRetries(n int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
		c.retryDelay = delay
	}
}

// NewClient creates a FRED client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     arbor.NewLogger(),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads s between start and end (inclusive). Missing values ('.')
// become NaN observations; rows outside the range are dropped.
func (c *Client) Fetch(ctx context.Context, s Series, start, end time.Time) ([]*domain.Observation, error) {
	began := time.Now()
	obs, err := c.fetch(ctx, s, start, end)
	observability.RecordFREDFetch(s.ID, time.Since(began).Seconds(), err)
	if err != nil {
		c.logger.Warn().Str("series", s.ID).Err(err).Msg("FRED fetch failed")
		return nil, err
	}
	observability.RecordObservationsIngested(s.Column, len(obs))
	c.logger.Debug().Str("series", s.ID).Int("observations", len(obs)).Msg("FRED series fetched")
	return obs, nil
}

func (c *Client) fetch(ctx context.Context, s Series, start, end time.Time) ([]*domain.Observation, error) {
	params := url.Values{}
	params.Set("id", s.ID)
	params.Set("cosd", start.Format(time.DateOnly))
	params.Set("coed", end.Format(time.DateOnly))
	reqURL := c.baseURL + "?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, SeriesID: s.ID, Body: truncate(string(body))}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, &StatusError{StatusCode: resp.StatusCode, SeriesID: s.ID, Body: truncate(string(body))}
		}

		obs, err := ParseCSV(strings.NewReader(string(body)), s.Column)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.ID, err)
		}
		return clip(obs, start, end), nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// ParseCSV reads a FRED graph CSV (header row, then date,value rows) into
// observations of column.
func ParseCSV(r io.Reader, column string) ([]*domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedCSV, err)
	}

	var obs []*domain.Observation
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line, err)
		}
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line, err)
		}
		v, err := panel.ParseValue(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line, err)
		}
		obs = append(obs, &domain.Observation{Series: column, Date: d, Value: v})
	}
	return obs, nil
}

func clip(obs []*domain.Observation, start, end time.Time) []*domain.Observation {
	out := obs[:0]
	for _, o := range obs {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func truncate(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
