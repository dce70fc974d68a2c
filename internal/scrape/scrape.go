// Package scrape turns article URLs into cleaned document text, preferring
// a batch scraping backend when one is configured and falling back to
// per-URL direct fetching.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

const directFetchTimeout = 30 * time.Second

var blankLines = regexp.MustCompile(`(\n\s*){2,}`)

// Document is the scraper's output for one URL.
type Document struct {
	URL             string
	Title           string
	Source          string
	Content         string
	PublicationDate string
}

// Scraper fetches pages directly over HTTP and extracts readable text.
type Scraper struct {
	client *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{client: &http.Client{Timeout: directFetchTimeout}}
}

// IsBlueskyURL reports whether a URL belongs to the Bluesky network. Such
// URLs go to the dedicated collector and are never batched.
func IsBlueskyURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	return host == "bsky.app" || host == "bsky.social" || strings.HasSuffix(host, ".bsky.social")
}

// Fetch retrieves one URL and extracts its main text, truncated to the
// content budget.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %s", errkind.ErrValidation, rawURL)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newswatch/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s returned status %d", errkind.ErrProvider, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}

	content := extractText(doc)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no readable text at %s: %w", rawURL, errkind.ErrNoContent)
	}

	parsed, _ := url.Parse(rawURL)
	source := ""
	if parsed != nil {
		source = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	}

	return &Document{
		URL:     rawURL,
		Title:   extractTitle(doc),
		Source:  source,
		Content: core.TruncateAtWord(content, core.MaxContentChars),
	}, nil
}

// extractTitle prefers head title, then OpenGraph, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractText strips boilerplate nodes and reads the main content region,
// falling back to the whole body.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, .ad, .advertisement, .cookie-banner").Remove()

	var builder strings.Builder
	collect := func(scope *goquery.Selection) {
		scope.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
			text := strings.TrimSpace(item.Text())
			if text != "" {
				builder.WriteString(text)
				builder.WriteString("\n\n")
			}
		})
	}

	for _, selector := range []string{"article", "main", "[role='main']", ".entry-content", ".post-content", ".article-body", "#content"} {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) { collect(s) })
		if builder.Len() > 0 {
			break
		}
	}
	if builder.Len() == 0 {
		collect(doc.Find("body"))
	}

	return strings.TrimSpace(blankLines.ReplaceAllString(builder.String(), "\n"))
}
