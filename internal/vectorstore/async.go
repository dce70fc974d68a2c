package vectorstore

import (
	"context"

	"golang.org/x/sync/semaphore"

	"newswatch/internal/core"
	"newswatch/internal/logger"
)

// Async wraps a Store with a bounded worker pool so callers on the
// scheduler path never block on embedding or indexing.
type Async struct {
	store Store
	sem   *semaphore.Weighted
}

func NewAsync(store Store, workers int) *Async {
	if workers <= 0 {
		workers = 4
	}
	return &Async{store: store, sem: semaphore.NewWeighted(int64(workers))}
}

// UpsertAsync indexes in the background. Failures are logged, never
// surfaced; vector indexing must not fail the enclosing persistence.
func (a *Async) UpsertAsync(ctx context.Context, article core.Article, rawText string) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return
	}
	go func() {
		defer a.sem.Release(1)
		if err := a.store.Upsert(ctx, article, rawText); err != nil {
			logger.Warn("async vector upsert failed", map[string]any{
				"uri": article.URI, "error": err.Error(),
			})
		}
	}()
}

// SearchAsync delivers results on a channel that closes after one send.
func (a *Async) SearchAsync(ctx context.Context, query string, topK int, filter map[string]any) <-chan []SearchResult {
	out := make(chan []SearchResult, 1)
	if err := a.sem.Acquire(ctx, 1); err != nil {
		close(out)
		return out
	}
	go func() {
		defer a.sem.Release(1)
		defer close(out)
		results, err := a.store.Search(ctx, query, topK, filter)
		if err != nil {
			logger.Warn("async vector search failed", map[string]any{"error": err.Error()})
			out <- []SearchResult{}
			return
		}
		out <- results
	}()
	return out
}

// SimilarAsync delivers neighbors on a channel that closes after one send.
func (a *Async) SimilarAsync(ctx context.Context, uri string, topK int) <-chan []SearchResult {
	out := make(chan []SearchResult, 1)
	if err := a.sem.Acquire(ctx, 1); err != nil {
		close(out)
		return out
	}
	go func() {
		defer a.sem.Release(1)
		defer close(out)
		results, err := a.store.Similar(ctx, uri, topK)
		if err != nil {
			logger.Warn("async vector similar failed", map[string]any{"uri": uri, "error": err.Error()})
			out <- []SearchResult{}
			return
		}
		out <- results
	}()
	return out
}

// Store exposes the wrapped synchronous surface.
func (a *Async) Store() Store {
	return a.store
}
