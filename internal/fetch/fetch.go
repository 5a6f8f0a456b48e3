package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Error is returned after all attempts for a URL are exhausted.
type Error struct {
	URL        string
	LastStatus int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.LastStatus > 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempts", e.URL, e.LastStatus, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempts", e.URL, e.Err, e.Attempts)
}

func (e *Error) Unwrap() error { return e.Err }

type Options struct {
	Retries     int
	BackoffBase time.Duration
	RatePerSec  float64
	UserAgent   string
}

// Client is the single point of outbound HTTP in the pipeline. Target sites
// reject or degrade requests without browser-looking headers, so every
// request carries them, including a Referer pointing at the URL's own origin.
type Client struct {
	httpClient  *http.Client
	retries     int
	backoffBase time.Duration
	userAgent   string
	limiter     *rate.Limiter
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 4
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Client{
		httpClient:  httpClient,
		retries:     opts.Retries,
		backoffBase: opts.BackoffBase,
		userAgent:   opts.UserAgent,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// Text fetches rawURL and returns the response body as a string. Non-2xx
// responses and transport failures are retried with linear backoff (attempt
// i waits i×base); after the configured attempts it returns *Error.
func (c *Client) Text(ctx context.Context, rawURL string) (string, error) {
	lastStatus := 0
	var lastErr error

	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * c.backoffBase
			select {
			case <-ctx.Done():
				return "", &Error{URL: rawURL, LastStatus: lastStatus, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{URL: rawURL, LastStatus: lastStatus, Attempts: attempt, Err: err}
		}

		body, status, err := c.once(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if status > 0 {
			lastStatus = status
		}
	}

	return "", &Error{URL: rawURL, LastStatus: lastStatus, Attempts: c.retries, Err: lastErr}
}

func (c *Client) once(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if referer := originOf(rawURL); referer != "" {
		req.Header.Set("Referer", referer)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", res.StatusCode, fmt.Errorf("unexpected status: %d", res.StatusCode)
	}

	rawBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", res.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	return string(rawBody), res.StatusCode, nil
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + "/"
}
