package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newswatch/internal/config"
	"newswatch/internal/errkind"
)

// fakeCounter implements RequestCounter with a fixed remaining budget.
type fakeCounter struct {
	remaining int
	calls     int
}

func (f *fakeCounter) ConsumeRequest(limit int) error {
	f.calls++
	if f.remaining <= 0 {
		return errkind.ErrRateLimited
	}
	f.remaining--
	return nil
}

func TestNewProviderSelection(t *testing.T) {
	cfg := config.Providers{}
	cfg.NewsAPI.APIKey = "key"

	for name, want := range map[string]string{"newsapi": "newsapi", "": "newsapi", "bluesky": "bluesky", "mock": "mock"} {
		p, err := New(name, cfg, SearchParams{})
		if err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
			continue
		}
		if p.Name() != want {
			t.Errorf("New(%q).Name() = %q, want %q", name, p.Name(), want)
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("newsapi", config.Providers{}, SearchParams{})
	if !errors.Is(err, errkind.ErrValidation) {
		t.Errorf("Expected validation error without API key, got %v", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("rss", config.Providers{}, SearchParams{})
	if !errors.Is(err, errkind.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestLimitedConsumesBeforeCalling(t *testing.T) {
	mock := NewMockProvider()
	counter := &fakeCounter{remaining: 1}
	limited := NewLimited(mock, counter, 100)

	if _, err := limited.Search(context.Background(), "q", "t", 5, time.Time{}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if counter.calls != 1 || mock.Calls != 1 {
		t.Errorf("Expected counter then provider, got counter=%d provider=%d", counter.calls, mock.Calls)
	}
}

func TestLimitedBlocksAtBudget(t *testing.T) {
	mock := NewMockProvider()
	limited := NewLimited(mock, &fakeCounter{remaining: 0}, 100)

	_, err := limited.Search(context.Background(), "q", "t", 5, time.Time{})
	if !errors.Is(err, errkind.ErrRateLimited) {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
	if mock.Calls != 0 {
		t.Errorf("Expected no provider call past the budget, got %d", mock.Calls)
	}
}

func TestNewsAPISearchParsesResponse(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("Expected API key header, got %q", r.Header.Get("X-Api-Key"))
		}
		w.Write([]byte(`{"status": "ok", "articles": [
			{"title": "Good Article", "url": "https://ex.com/a1", "publishedAt": "2025-06-01T00:00:00Z",
			 "description": "A summary.", "source": {"name": "Example"}},
			{"title": "[Removed]", "url": "https://ex.com/a2", "source": {"name": "Gone"}}
		]}`))
	}))
	t.Cleanup(server.Close)

	p := NewNewsAPIProvider("key", SearchParams{})
	p.baseURL = server.URL

	articles, err := p.Search(context.Background(), "machine learning", "AI", 10, time.Time{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "machine learning" {
		t.Errorf("Unexpected query sent: %q", gotQuery)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected removed article filtered, got %d", len(articles))
	}
	if articles[0].URL != "https://ex.com/a1" || articles[0].Source != "Example" {
		t.Errorf("Unexpected article: %+v", articles[0])
	}
}

func TestNewsAPISearchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	p := NewNewsAPIProvider("key", SearchParams{})
	p.baseURL = server.URL

	_, err := p.Search(context.Background(), "q", "t", 10, time.Time{})
	if !errors.Is(err, errkind.ErrRateLimited) {
		t.Errorf("Expected rate limit error, got %v", err)
	}
}

func TestNewsAPISearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "code": "apiKeyInvalid", "message": "bad key"}`))
	}))
	t.Cleanup(server.Close)

	p := NewNewsAPIProvider("key", SearchParams{})
	p.baseURL = server.URL

	_, err := p.Search(context.Background(), "q", "t", 10, time.Time{})
	if !errors.Is(err, errkind.ErrProvider) {
		t.Errorf("Expected provider error, got %v", err)
	}
}

func TestNewsAPISearchSendsSinceFilter(t *testing.T) {
	var gotFrom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	t.Cleanup(server.Close)

	p := NewNewsAPIProvider("key", SearchParams{})
	p.baseURL = server.URL

	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := p.Search(context.Background(), "q", "t", 10, since); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotFrom != "2025-06-01T12:00:00Z" {
		t.Errorf("Unexpected from filter: %q", gotFrom)
	}
}

func TestBlueskySearchParsesPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"posts": [
			{"uri": "at://did:plc:abc/app.bsky.feed.post/xyz123",
			 "author": {"handle": "user.bsky.social", "displayName": "User"},
			 "record": {"text": "Interesting development in AI research.", "createdAt": "2025-06-01T00:00:00Z"}},
			{"uri": "at://did:plc:def/app.bsky.feed.post/",
			 "author": {"handle": "", "displayName": ""},
			 "record": {"text": "unresolvable", "createdAt": ""}}
		]}`))
	}))
	t.Cleanup(server.Close)

	p := NewBlueskyProvider("", "")
	p.baseURL = server.URL

	articles, err := p.Search(context.Background(), "AI", "AI", 10, time.Time{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected unresolvable post dropped, got %d", len(articles))
	}
	if articles[0].URL != "https://bsky.app/profile/user.bsky.social/post/xyz123" {
		t.Errorf("Unexpected permalink: %q", articles[0].URL)
	}
	if articles[0].Source != "user.bsky.social" {
		t.Errorf("Unexpected source: %q", articles[0].Source)
	}
}

func TestBlueskyTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"posts": [
			{"uri": "at://did:plc:abc/app.bsky.feed.post/xyz123",
			 "author": {"handle": "user.bsky.social"},
			 "record": {"text": "` + long + `", "createdAt": "2025-06-01T00:00:00Z"}}
		]}`))
	}))
	t.Cleanup(server.Close)

	p := NewBlueskyProvider("", "")
	p.baseURL = server.URL

	articles, err := p.Search(context.Background(), "q", "t", 10, time.Time{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(articles[0].Title) != 120 {
		t.Errorf("Expected title capped at 120 chars, got %d", len(articles[0].Title))
	}
	if len(articles[0].Summary) != 200 {
		t.Errorf("Expected full text in summary, got %d chars", len(articles[0].Summary))
	}
}

func TestMockProviderStampsQuery(t *testing.T) {
	mock := NewMockProvider()
	articles, err := mock.Search(context.Background(), "solar", "Energy", 1, time.Time{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected maxResults honored, got %d", len(articles))
	}
	if !strings.Contains(articles[0].Title, "solar") {
		t.Errorf("Expected query stamped into title, got %q", articles[0].Title)
	}
}

func TestPostWebURL(t *testing.T) {
	if got := postWebURL("at://did:plc:abc/app.bsky.feed.post/rkey1", "user.bsky.social"); got != "https://bsky.app/profile/user.bsky.social/post/rkey1" {
		t.Errorf("Unexpected URL: %q", got)
	}
	if got := postWebURL("at://x/", "user.bsky.social"); got != "" {
		t.Errorf("Expected empty for missing rkey, got %q", got)
	}
	if got := postWebURL("at://x/y/z", ""); got != "" {
		t.Errorf("Expected empty for missing handle, got %q", got)
	}
}
