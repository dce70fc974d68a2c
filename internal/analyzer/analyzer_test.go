package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newswatch/internal/analysiscache"
	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/llm"
	"newswatch/internal/prompts"
)

// stubGenerator returns canned responses and counts calls.
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const goodResponse = `Title: AI Breakthrough Announced
Summary: Researchers announced a new model architecture.
Category: Technology
Future Signal: Weak Signal
Future Signal Explanation: Early stage research.
Sentiment: Positive
Sentiment Explanation: Optimistic coverage.
Time to Impact: 1-3 years
Time to Impact Explanation: Needs productization.
Driver Type: Technological
Driver Type Explanation: Pure research driver.
Tags: ai, research, models
Publication Date: 2025-06-01`

func TestAnalyzeParsesResponse(t *testing.T) {
	gen := &stubGenerator{response: goodResponse}
	a := New(gen, prompts.NewRegistry(), nil, "m1")

	analysis, err := a.Analyze(context.Background(), "article body", "AI Breakthrough", "ex.com", "https://ex.com/a1", core.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.Title != "AI Breakthrough Announced" {
		t.Errorf("Unexpected title: %q", analysis.Title)
	}
	if analysis.Category != "Technology" || analysis.Sentiment != "Positive" {
		t.Errorf("Unexpected classification: %+v", analysis)
	}
	if len(analysis.Tags) != 3 || analysis.Tags[0] != "ai" {
		t.Errorf("Unexpected tags: %v", analysis.Tags)
	}
	if analysis.URI != "https://ex.com/a1" || analysis.ModelName != "m1" {
		t.Errorf("Expected uri and model stamped, got %+v", analysis)
	}
	if analysis.PublicationDate != "2025-06-01" {
		t.Errorf("Unexpected publication date: %q", analysis.PublicationDate)
	}
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	a := New(&stubGenerator{}, prompts.NewRegistry(), nil, "m1")
	_, err := a.Analyze(context.Background(), "   ", "t", "s", "u", core.DefaultAnalysisConfig())
	if !errors.Is(err, errkind.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestAnalyzeCacheHit(t *testing.T) {
	cache, err := analysiscache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	gen := &stubGenerator{response: goodResponse}
	a := New(gen, prompts.NewRegistry(), cache, "m1")

	first, err := a.Analyze(context.Background(), "article body", "Title", "ex.com", "https://ex.com/a1", core.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("First analyze failed: %v", err)
	}
	second, err := a.Analyze(context.Background(), "article body", "Title", "ex.com", "https://ex.com/a1", core.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("Second analyze failed: %v", err)
	}

	if gen.calls != 1 {
		t.Errorf("Expected exactly one LLM call, got %d", gen.calls)
	}
	if first.Summary != second.Summary || first.Category != second.Category {
		t.Error("Expected bit-identical cached result")
	}
}

func TestAnalyzeCacheMissOnContentChange(t *testing.T) {
	cache, _ := analysiscache.New(t.TempDir(), time.Hour)
	gen := &stubGenerator{response: goodResponse}
	a := New(gen, prompts.NewRegistry(), cache, "m1")

	_, _ = a.Analyze(context.Background(), "first body", "Title", "ex.com", "https://ex.com/a1", core.DefaultAnalysisConfig())
	_, _ = a.Analyze(context.Background(), "second body", "Title", "ex.com", "https://ex.com/a1", core.DefaultAnalysisConfig())

	if gen.calls != 2 {
		t.Errorf("Expected two LLM calls for changed content, got %d", gen.calls)
	}
}

func TestExtractTitle(t *testing.T) {
	gen := &stubGenerator{response: `"The Headline"`}
	a := New(gen, prompts.NewRegistry(), nil, "m1")

	title, err := a.ExtractTitle(context.Background(), "some article text")
	if err != nil {
		t.Fatalf("ExtractTitle failed: %v", err)
	}
	if title != "The Headline" {
		t.Errorf("Expected quotes stripped, got %q", title)
	}
}

func TestExtractPublicationDate(t *testing.T) {
	gen := &stubGenerator{response: "2025-03-14"}
	a := New(gen, prompts.NewRegistry(), nil, "m1")
	if got := a.ExtractPublicationDate(context.Background(), "text"); got != "2025-03-14" {
		t.Errorf("Expected parsed date, got %q", got)
	}
}

func TestExtractPublicationDateFallsBackToToday(t *testing.T) {
	gen := &stubGenerator{response: "sometime last week"}
	a := New(gen, prompts.NewRegistry(), nil, "m1")

	got := a.ExtractPublicationDate(context.Background(), "text")
	today := time.Now().UTC().Format("2006-01-02")
	if got != today {
		t.Errorf("Expected today %s, got %q", today, got)
	}
}

func TestAnalyzeTruncatesLongContent(t *testing.T) {
	gen := &stubGenerator{response: goodResponse}
	a := New(gen, prompts.NewRegistry(), nil, "m1")

	long := strings.Repeat("word ", core.MaxContentChars/4)
	if _, err := a.Analyze(context.Background(), long, "Title", "ex.com", "https://ex.com/a1", core.DefaultAnalysisConfig()); err != nil {
		t.Fatalf("Analyze failed on long content: %v", err)
	}
}
