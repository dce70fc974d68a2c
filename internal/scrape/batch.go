package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/logger"
)

// Batch poll schedule.
const (
	batchPollInitial  = 5 * time.Second
	batchPollFactor   = 1.2
	batchPollMax      = 30 * time.Second
	batchPollDeadline = 300 * time.Second
)

// BatchClient drives a Firecrawl-style batch scraping backend: submit all
// URLs in one request, poll the job until it completes, read per-URL
// markdown.
type BatchClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewBatchClient returns nil when no backend is configured, which callers
// treat as batch mode unavailable.
func NewBatchClient(baseURL, apiKey string) *BatchClient {
	if baseURL == "" {
		return nil
	}
	return &BatchClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type batchSubmitRequest struct {
	URLs    []string `json:"urls"`
	Formats []string `json:"formats"`
}

type batchSubmitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

type batchStatusResponse struct {
	Status string `json:"status"` // scraping, completed, failed
	Error  string `json:"error"`
	Data   []struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			SourceURL       string `json:"sourceURL"`
			Title           string `json:"title"`
			PublicationDate string `json:"publishedTime"`
		} `json:"metadata"`
	} `json:"data"`
}

// FetchBatch submits the URLs as one job and polls with exponential backoff
// until the job completes or the deadline passes. Returns documents keyed by
// source URL; URLs the backend could not scrape are simply absent.
func (b *BatchClient) FetchBatch(ctx context.Context, urls []string) (map[string]*Document, error) {
	if len(urls) == 0 {
		return map[string]*Document{}, nil
	}

	jobID, err := b.submit(ctx, urls)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = batchPollInitial
	policy.Multiplier = batchPollFactor
	policy.MaxInterval = batchPollMax
	policy.MaxElapsedTime = batchPollDeadline
	policy.RandomizationFactor = 0

	var status *batchStatusResponse
	operation := func() error {
		var pollErr error
		status, pollErr = b.poll(ctx, jobID)
		if pollErr != nil {
			return backoff.Permanent(pollErr)
		}
		switch status.Status {
		case "completed":
			return nil
		case "failed":
			return backoff.Permanent(fmt.Errorf("%w: batch job %s failed: %s", errkind.ErrProvider, jobID, status.Error))
		default:
			return fmt.Errorf("batch job %s still %s", jobID, status.Status)
		}
	}
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		if status != nil && status.Status != "completed" && status.Status != "failed" {
			return nil, fmt.Errorf("%w: batch job %s did not complete within deadline", errkind.ErrTimeout, jobID)
		}
		return nil, err
	}

	docs := make(map[string]*Document, len(status.Data))
	for _, item := range status.Data {
		if item.Metadata.SourceURL == "" || strings.TrimSpace(item.Markdown) == "" {
			continue
		}
		docs[item.Metadata.SourceURL] = &Document{
			URL:             item.Metadata.SourceURL,
			Title:           item.Metadata.Title,
			Content:         core.TruncateAtWord(item.Markdown, core.MaxContentChars),
			PublicationDate: item.Metadata.PublicationDate,
		}
	}
	return docs, nil
}

func (b *BatchClient) submit(ctx context.Context, urls []string) (string, error) {
	payload, err := json.Marshal(batchSubmitRequest{URLs: urls, Formats: []string{"markdown"}})
	if err != nil {
		return "", fmt.Errorf("failed to encode batch request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/batch/scrape", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("batch submit failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: batch submit returned status %d", errkind.ErrProvider, resp.StatusCode)
	}

	var submitted batchSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("%w: unreadable batch submit response: %v", errkind.ErrParse, err)
	}
	if !submitted.Success || submitted.ID == "" {
		return "", fmt.Errorf("%w: batch submit rejected: %s", errkind.ErrProvider, submitted.Error)
	}
	return submitted.ID, nil
}

func (b *BatchClient) poll(ctx context.Context, jobID string) (*batchStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/batch/scrape/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch status request: %w", err)
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch status poll failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: batch status returned %d: %s", errkind.ErrProvider, resp.StatusCode, string(body))
	}

	var status batchStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: unreadable batch status response: %v", errkind.ErrParse, err)
	}
	return &status, nil
}

// Fetcher combines the batch backend with the direct scraper. Bluesky URLs
// are never batched; batch failure falls back to per-URL fetching.
type Fetcher struct {
	batch   *BatchClient
	scraper *Scraper
}

func NewFetcher(batch *BatchClient, scraper *Scraper) *Fetcher {
	if scraper == nil {
		scraper = NewScraper()
	}
	return &Fetcher{batch: batch, scraper: scraper}
}

// FetchAll resolves every URL to a document where possible. The result maps
// URL to document; unresolvable URLs are absent.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) map[string]*Document {
	docs := make(map[string]*Document, len(urls))

	var batchable []string
	for _, u := range urls {
		if IsBlueskyURL(u) {
			continue
		}
		batchable = append(batchable, u)
	}

	if f.batch != nil && len(batchable) > 0 {
		fetched, err := f.batch.FetchBatch(ctx, batchable)
		if err != nil {
			logger.Warn("batch scrape failed, falling back to direct fetch", map[string]any{
				"urls": len(batchable), "error": err.Error(),
			})
		} else {
			for u, doc := range fetched {
				docs[u] = doc
			}
		}
	}

	for _, u := range batchable {
		if _, ok := docs[u]; ok {
			continue
		}
		doc, err := f.scraper.Fetch(ctx, u)
		if err != nil {
			logger.Warn("direct fetch failed", map[string]any{"url": u, "error": err.Error()})
			continue
		}
		docs[u] = doc
	}
	return docs
}

// Fetch resolves a single URL, trying the batch path first when available.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if f.batch != nil && !IsBlueskyURL(url) {
		if docs, err := f.batch.FetchBatch(ctx, []string{url}); err == nil {
			if doc, ok := docs[url]; ok {
				return doc, nil
			}
		}
	}
	return f.scraper.Fetch(ctx, url)
}
