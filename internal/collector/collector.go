// Package collector queries external news providers for keyword matches.
// Every provider shares one contract and is wrapped by a rate limiter
// backed by the daily request counter.
package collector

import (
	"context"
	"fmt"
	"time"

	"newswatch/internal/config"
	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

// Provider is the collector contract: one keyword query against one
// backend.
type Provider interface {
	Search(ctx context.Context, query, topic string, maxResults int, since time.Time) ([]core.ProviderArticle, error)
	Name() string
}

// SearchParams carries the query shaping fields of the monitor settings.
type SearchParams struct {
	SearchFields string
	Language     string
	SortBy       string
}

// New builds a provider by name. Supported: newsapi, bluesky, mock.
func New(name string, cfg config.Providers, params SearchParams) (Provider, error) {
	switch name {
	case "newsapi", "":
		if cfg.NewsAPI.APIKey == "" {
			return nil, fmt.Errorf("%w: NEWSAPI_API_KEY is not set", errkind.ErrValidation)
		}
		return NewNewsAPIProvider(cfg.NewsAPI.APIKey, params), nil
	case "bluesky":
		return NewBlueskyProvider(cfg.Bluesky.Handle, cfg.Bluesky.AppPassword), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", errkind.ErrValidation, name)
	}
}

// RequestCounter is the slice of the store the rate limiter needs.
type RequestCounter interface {
	ConsumeRequest(limit int) error
}

// Limited decorates a provider with the shared daily request budget. The
// counter is consumed before any external call is made.
type Limited struct {
	inner   Provider
	counter RequestCounter
	limit   int
}

func NewLimited(inner Provider, counter RequestCounter, dailyLimit int) *Limited {
	return &Limited{inner: inner, counter: counter, limit: dailyLimit}
}

func (l *Limited) Name() string {
	return l.inner.Name()
}

func (l *Limited) Search(ctx context.Context, query, topic string, maxResults int, since time.Time) ([]core.ProviderArticle, error) {
	if err := l.counter.ConsumeRequest(l.limit); err != nil {
		return nil, err
	}
	return l.inner.Search(ctx, query, topic, maxResults, since)
}
