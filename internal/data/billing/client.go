package billing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/penwyp/go-molty-meter/internal/util"
)

const (
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
	defaultTimeout    = 30 * time.Second
	maxPagesPerQuery  = 200
	maxBodySize       = 16 * 1024 * 1024
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client issues paginated billing requests with rate-limit retry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	sleep      SleepFunc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithRetry sets how many extra attempts a rate-limited request gets and
// the base delay; attempt n waits n times the base delay.
func WithRetry(maxRetries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithSleep replaces the backoff sleep.
func WithSleep(sleep SleepFunc) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// WithLimiter paces outgoing requests.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a Client for the Anthropic admin API.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTotal runs every query the source plans for [start, now), following
// cursors until the API reports no more pages, and returns the summed USD
// amount. Any failing page fails the whole fetch.
func (c *Client) FetchTotal(ctx context.Context, src Source, cred Credential, start, now time.Time) (float64, error) {
	total := decimal.Zero
	requests := 0

	for _, q := range src.Plan(start, now) {
		cursor := ""
		for page := 1; ; page++ {
			if page > maxPagesPerQuery {
				return 0, fmt.Errorf("%w: more than %d pages", ErrMalformedResponse, maxPagesPerQuery)
			}

			body, err := c.do(ctx, func() (*http.Request, error) {
				return src.NewRequest(ctx, c.baseURL, cred, q, cursor)
			})
			requests++
			if err != nil {
				return 0, fmt.Errorf("%s page %d: %w", src.Name(), page, err)
			}

			p, err := src.DecodePage(body)
			if err != nil {
				return 0, fmt.Errorf("%s page %d: %w", src.Name(), page, err)
			}
			total = total.Add(p.Amount)

			util.LogDebug("Billing page fetched",
				util.F("source", src.Name()),
				util.F("bucket", q.BucketWidth),
				util.F("page", page),
				util.F("amount", p.Amount.StringFixed(4)),
				util.F("has_more", p.HasMore))

			if !p.HasMore {
				break
			}
			if p.Next == cursor {
				return 0, fmt.Errorf("%w: cursor did not advance", ErrMalformedResponse)
			}
			cursor = p.Next
		}
	}

	result, _ := total.Float64()
	util.LogDebug("Billing fetch complete",
		util.F("source", src.Name()),
		util.F("requests", requests),
		util.F("total", total.StringFixed(2)))
	return result, nil
}

// do sends one logical request, retrying rate-limited and transport-failed
// attempts. newReq is called once per attempt.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.retryDelay
			util.LogDebug("Retrying billing request",
				util.F("attempt", attempt+1),
				util.F("delay", delay.String()),
				util.F("reason", lastErr.Error()))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()

		util.LogDebug("Billing HTTP response", util.F("status", resp.StatusCode), util.F("attempt", attempt+1))

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
		case err != nil:
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}
		return body, nil
	}

	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
