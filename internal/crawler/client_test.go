package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"mtfcrawler/internal/config"
	"mtfcrawler/internal/logging"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	cfg, _ := config.Load()
	cfg.RateLimitDelayMs = 1
	cfg.UserAgent = "mytechfun-research-bot/1.0"

	client := NewClient(cfg, logging.NewNop())
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/robots.txt" {
			return respond(200, "User-agent: *\nDisallow: /private/\n"), nil
		}
		if got := r.Header.Get("User-Agent"); got != "mytechfun-research-bot/1.0" {
			t.Fatalf("user-agent=%q", got)
		}
		attempt++
		if attempt == 1 {
			return respond(http.StatusServiceUnavailable, "busy"), nil
		}
		return respond(http.StatusOK, "<html>post</html>"), nil
	})

	body, err := client.Get(context.Background(), "https://example.test/video/pla-test")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "<html>post</html>" {
		t.Fatalf("body=%q", body)
	}
	if attempt != 2 {
		t.Fatalf("attempt=%d", attempt)
	}
}

func TestGetBlockedByRobots(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/robots.txt" {
			return respond(200, "User-agent: *\nDisallow: /private/\n"), nil
		}
		t.Fatalf("unexpected fetch of %s", r.URL.Path)
		return nil, nil
	})

	_, err := client.Get(context.Background(), "https://example.test/private/data.xlsx")
	if !errors.Is(err, ErrDisallowedByRobots) {
		t.Fatalf("err=%v", err)
	}
}

func TestRobotsCachedPerHost(t *testing.T) {
	robotsFetches := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/robots.txt" {
			robotsFetches++
			return respond(200, "User-agent: *\nAllow: /\n"), nil
		}
		return respond(http.StatusOK, "ok"), nil
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), "https://example.test/video/some-post"); err != nil {
			t.Fatal(err)
		}
	}
	if robotsFetches != 1 {
		t.Fatalf("robotsFetches=%d", robotsFetches)
	}
}

func TestRobotsUnreachableAllowsFetch(t *testing.T) {
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/robots.txt" {
			return nil, errors.New("connection refused")
		}
		return respond(http.StatusOK, "ok"), nil
	})

	body, err := client.Get(context.Background(), "https://example.test/video/some-post")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" {
		t.Fatalf("body=%q", body)
	}
}
