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

const blueskySearchURL = "https://public.api.bsky.app/xrpc/app.bsky.feed.searchPosts"

// BlueskyProvider searches public Bluesky posts. Credentials are optional;
// the public AppView endpoint serves unauthenticated search.
type BlueskyProvider struct {
	handle      string
	appPassword string
	baseURL     string
	client      *http.Client
}

func NewBlueskyProvider(handle, appPassword string) *BlueskyProvider {
	return &BlueskyProvider{
		handle:      handle,
		appPassword: appPassword,
		baseURL:     blueskySearchURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *BlueskyProvider) Name() string {
	return "bluesky"
}

type blueskySearchResponse struct {
	Posts []struct {
		URI    string `json:"uri"` // at://did/app.bsky.feed.post/rkey
		Author struct {
			Handle      string `json:"handle"`
			DisplayName string `json:"displayName"`
		} `json:"author"`
		Record struct {
			Text      string `json:"text"`
			CreatedAt string `json:"createdAt"`
		} `json:"record"`
	} `json:"posts"`
}

func (p *BlueskyProvider) Search(ctx context.Context, query, topic string, maxResults int, since time.Time) ([]core.ProviderArticle, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(maxResults))
	values.Set("sort", "latest")
	if !since.IsZero() {
		values.Set("since", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build bluesky request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bluesky request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("bluesky: %w", errkind.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bluesky search returned status %d", errkind.ErrProvider, resp.StatusCode)
	}

	var decoded blueskySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: unreadable bluesky response: %v", errkind.ErrParse, err)
	}

	articles := make([]core.ProviderArticle, 0, len(decoded.Posts))
	for _, post := range decoded.Posts {
		webURL := postWebURL(post.URI, post.Author.Handle)
		if webURL == "" {
			continue
		}
		title := post.Record.Text
		if len(title) > 120 {
			title = title[:120]
		}
		articles = append(articles, core.ProviderArticle{
			URL:           webURL,
			Title:         title,
			Source:        post.Author.Handle,
			PublishedDate: post.Record.CreatedAt,
			Summary:       post.Record.Text,
		})
	}
	return articles, nil
}

// postWebURL maps an AT URI to the bsky.app permalink.
func postWebURL(atURI, handle string) string {
	parts := strings.Split(atURI, "/")
	if len(parts) == 0 || handle == "" {
		return ""
	}
	rkey := parts[len(parts)-1]
	if rkey == "" {
		return ""
	}
	return "https://bsky.app/profile/" + handle + "/post/" + rkey
}
