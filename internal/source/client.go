package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fightsync/internal/config"
	"fightsync/internal/constants"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

// Browser-like headers. The stats site serves plain HTML but rejects
// obviously non-browser clients.
const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// FetchError is the terminal failure for one URL after retries are exhausted.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client fetches pages from the stats site one at a time, keeping a minimum
// spacing between requests and retrying each page with exponential backoff.
type Client struct {
	baseURL   string
	delay     time.Duration
	retries   uint64
	retryBase time.Duration
	client    *fasthttp.Client
	logger    zerolog.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

func New(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:   cfg.SourceBaseURL,
		delay:     cfg.RequestDelay,
		retries:   uint64(cfg.FetchRetries),
		retryBase: constants.FetchRetryBase,
		client: &fasthttp.Client{
			MaxConnsPerHost:     2,
			ReadTimeout:         constants.FetchReadTimeout,
			WriteTimeout:        constants.FetchReadTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) CompletedEventsURL() string {
	return c.baseURL + "/statistics/events/completed?page=all"
}

func (c *Client) EventURL(eventID string) string {
	return fmt.Sprintf("%s/event-details/%s", c.baseURL, eventID)
}

func (c *Client) FightURL(fightID string) string {
	return fmt.Sprintf("%s/fight-details/%s", c.baseURL, fightID)
}

// Fetch GETs one URL and returns the raw HTML body. Transport failures and
// non-2xx statuses are retried up to the configured bound; the last cause is
// carried in the returned *FetchError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	var body []byte
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.get(ctx, url)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("fetch attempt failed")
			return retry.RetryableError(err)
		}
		body = b
		return nil
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	c.logger.Debug().Str("url", url).Int("bytes", len(body)).Msg("page fetched")
	return body, nil
}

// throttle blocks until at least the configured delay has passed since the
// previous request. One request is in flight at a time by construction.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.delay - time.Since(c.lastRequest)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	c.mu.Lock()
	c.lastRequest = time.Now()
	c.mu.Unlock()

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, &FetchError{URL: url, StatusCode: status}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
