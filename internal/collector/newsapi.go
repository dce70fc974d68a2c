package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIProvider searches the NewsAPI.org everything endpoint.
type NewsAPIProvider struct {
	apiKey  string
	params  SearchParams
	baseURL string
	client  *http.Client
}

func NewNewsAPIProvider(apiKey string, params SearchParams) *NewsAPIProvider {
	if params.Language == "" {
		params.Language = "en"
	}
	if params.SortBy == "" {
		params.SortBy = "publishedAt"
	}
	return &NewsAPIProvider{
		apiKey:  apiKey,
		params:  params,
		baseURL: newsAPIBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *NewsAPIProvider) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (p *NewsAPIProvider) Search(ctx context.Context, query, topic string, maxResults int, since time.Time) ([]core.ProviderArticle, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("language", p.params.Language)
	values.Set("sortBy", p.params.SortBy)
	values.Set("pageSize", strconv.Itoa(maxResults))
	if p.params.SearchFields != "" {
		values.Set("searchIn", p.params.SearchFields)
	}
	if !since.IsZero() {
		values.Set("from", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build newsapi request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("newsapi: %w", errkind.ErrRateLimited)
	}

	var decoded newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: unreadable newsapi response: %v", errkind.ErrParse, err)
	}
	if decoded.Status != "ok" {
		return nil, fmt.Errorf("%w: newsapi error %s: %s", errkind.ErrProvider, decoded.Code, decoded.Message)
	}

	articles := make([]core.ProviderArticle, 0, len(decoded.Articles))
	for _, item := range decoded.Articles {
		if item.URL == "" || strings.Contains(item.Title, "[Removed]") {
			continue
		}
		articles = append(articles, core.ProviderArticle{
			URL:           item.URL,
			Title:         item.Title,
			Source:        item.Source.Name,
			PublishedDate: item.PublishedAt,
			Summary:       item.Description,
		})
	}
	return articles, nil
}
