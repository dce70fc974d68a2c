package collector

import (
	"context"
	"fmt"
	"time"

	"newswatch/internal/core"
)

// MockProvider returns canned results for tests and offline runs.
type MockProvider struct {
	articles []core.ProviderArticle
	err      error
	Calls    int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		articles: []core.ProviderArticle{
			{
				URL:           "https://example.com/article-1",
				Title:         "Example Article 1",
				Source:        "example.com",
				PublishedDate: time.Now().UTC().Format(time.RFC3339),
				Summary:       "A canned result for offline runs.",
			},
			{
				URL:           "https://example.org/article-2",
				Title:         "Example Article 2",
				Source:        "example.org",
				PublishedDate: time.Now().UTC().Format(time.RFC3339),
				Summary:       "Another canned result.",
			},
		},
	}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Search(ctx context.Context, query, topic string, maxResults int, since time.Time) ([]core.ProviderArticle, error) {
	m.Calls++
	if m.err != nil {
		return nil, m.err
	}
	n := maxResults
	if n <= 0 || n > len(m.articles) {
		n = len(m.articles)
	}
	results := make([]core.ProviderArticle, n)
	for i := 0; i < n; i++ {
		result := m.articles[i]
		result.Title = fmt.Sprintf("%s (query: %s)", result.Title, query)
		results[i] = result
	}
	return results, nil
}

// SetArticles replaces the canned result set.
func (m *MockProvider) SetArticles(articles []core.ProviderArticle) {
	m.articles = articles
}

// SetError makes every subsequent search fail.
func (m *MockProvider) SetError(err error) {
	m.err = err
}
