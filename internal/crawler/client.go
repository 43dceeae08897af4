package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"mtfcrawler/internal/config"
)

// ErrDisallowedByRobots marks a URL the site's robots.txt forbids for our
// user agent. Callers skip such URLs instead of retrying.
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// Client is a polite HTTP fetcher: one shared rate limiter across all
// requests, per-host robots.txt enforcement and bounded retries with
// exponential backoff on transient status codes.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	log        *zap.SugaredLogger

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

func NewClient(cfg config.Config, log *zap.SugaredLogger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(time.Duration(cfg.RateLimitDelayMs) * time.Millisecond),
		log:        log.Named("http"),
		robots:     map[string]*robotstxt.RobotsData{},
	}
}

// Allowed reports whether robots.txt permits fetching rawURL.
func (c *Client) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}

	data, err := c.robotsFor(ctx, u)
	if err != nil {
		// unreachable robots.txt does not block the crawl
		c.log.Warnw("robots.txt fetch failed, allowing", "host", u.Host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}
	return data.FindGroup(c.cfg.UserAgent).Test(u.Path), nil
}

func (c *Client) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	c.mu.Lock()
	data, ok := c.robots[u.Host]
	c.mu.Unlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	body, status, err := c.fetch(ctx, robotsURL)
	if err != nil {
		return nil, err
	}

	data, err = robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.robots[u.Host] = data
	c.mu.Unlock()
	return data, nil
}

// Get fetches rawURL after the robots.txt gate. Returns the response body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	allowed, err := c.Allowed(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
	}

	body, status, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, status)
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if isRetryableStatus(resp.StatusCode) && attempt < 3 {
			backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
			c.log.Debugw("retrying", "url", rawURL, "status", resp.StatusCode, "backoff", backoff)
			time.Sleep(backoff)
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		return body, resp.StatusCode, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, 0, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
