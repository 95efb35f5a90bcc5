// Package source talks to the dashboard backend over REST.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// Backend endpoints relative to the API base address.
const (
	CalibrationPath = "/calibration"
	FailuresPath    = "/failures"
)

// maxBodyBytes bounds a single backend response.
const maxBodyBytes = 64 << 20

// ErrStatus is returned when the backend answers with a non-2xx status.
var ErrStatus = errors.New("unexpected backend status")

// ErrTooLarge is returned when a response body exceeds the size limit.
var ErrTooLarge = errors.New("backend response too large")

// RESTClient implements the DataSource interface over HTTP.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	maxTries   uint
	maxBody    int64
}

var _ contract.DataSource = &RESTClient{} // Compile-time check

// Option customizes a RESTClient.
type Option func(*RESTClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *RESTClient) { r.httpClient = c }
}

// WithMaxTries sets how many attempts a request gets before giving up.
func WithMaxTries(n uint) Option {
	return func(r *RESTClient) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

// NewRESTClient creates a client for the backend at baseURL.
func NewRESTClient(baseURL string, timeout time.Duration, opts ...Option) *RESTClient {
	c := &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxTries:   3,
		maxBody:    maxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCalibrationLog implements the DataSource interface.
func (c *RESTClient) GetCalibrationLog(ctx context.Context, start, end time.Time) ([]byte, error) {
	return c.fetch(ctx, CalibrationPath, start, end)
}

// GetFailureLog implements the DataSource interface.
func (c *RESTClient) GetFailureLog(ctx context.Context, start, end time.Time) ([]byte, error) {
	return c.fetch(ctx, FailuresPath, start, end)
}

// fetch GETs a window of records. Transport errors and 5xx answers are retried
// with exponential backoff. 4xx answers fail immediately.
func (c *RESTClient) fetch(ctx context.Context, path string, start, end time.Time) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no api-url configured")
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	q := endpoint.Query()
	q.Set("start", start.UTC().Format(schema.DateLayout))
	q.Set("end", end.UTC().Format(schema.DateLayout))
	endpoint.RawQuery = q.Encode()

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
		if err != nil {
			return nil, err
		}
		if int64(len(body)) > c.maxBody {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, path, c.maxBody))
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, path)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, backoff.Permanent(fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, path))
		}
		return body, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	return body, nil
}
