package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"newswatch/internal/collector"
	"newswatch/internal/core"
	"newswatch/internal/errkind"
	"newswatch/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mockFactory(mock *collector.MockProvider) ProviderFactory {
	return func(core.MonitorSettings) (collector.Provider, error) {
		return mock, nil
	}
}

func seedKeyword(t *testing.T, s *store.Store, topic, keyword string) int64 {
	t.Helper()
	groupID, err := s.CreateKeywordGroup(topic+" group", topic)
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := s.AddKeyword(groupID, keyword); err != nil {
		t.Fatalf("Failed to add keyword: %v", err)
	}
	return groupID
}

func TestCheckNowRecordsArticleAndAlert(t *testing.T) {
	s := newTestStore(t)
	seedKeyword(t, s, "AI", "machine learning")

	mock := collector.NewMockProvider()
	mock.SetArticles([]core.ProviderArticle{{
		URL:           "https://ex.com/a1",
		Title:         "New Model Released",
		Source:        "ex.com",
		PublishedDate: "2025-06-01",
		Summary:       "A summary.",
	}})

	m := New(s, mockFactory(mock))
	result, err := m.CheckNow(context.Background(), 0)
	if err != nil {
		t.Fatalf("CheckNow failed: %v", err)
	}
	if result.KeywordsChecked != 1 || result.NewArticles != 1 || result.NewAlerts != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}

	article, err := s.GetArticle("https://ex.com/a1")
	if err != nil {
		t.Fatalf("Expected article persisted: %v", err)
	}
	if article.IngestStatus != core.IngestPending {
		t.Errorf("Expected pending ingest status, got %q", article.IngestStatus)
	}
	if article.Topic != "AI" {
		t.Errorf("Expected group topic on article, got %q", article.Topic)
	}

	alerts, err := s.ListAlerts(false)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected one alert, got %d", len(alerts))
	}
}

func TestCheckNowSuppressesDuplicateAlerts(t *testing.T) {
	s := newTestStore(t)
	seedKeyword(t, s, "AI", "machine learning")

	mock := collector.NewMockProvider()
	mock.SetArticles([]core.ProviderArticle{{
		URL:    "https://ex.com/a1",
		Title:  "New Model Released",
		Source: "ex.com",
	}})
	m := New(s, mockFactory(mock))

	if _, err := m.CheckNow(context.Background(), 0); err != nil {
		t.Fatalf("First check failed: %v", err)
	}
	second, err := m.CheckNow(context.Background(), 0)
	if err != nil {
		t.Fatalf("Second check failed: %v", err)
	}
	if second.NewArticles != 0 || second.NewAlerts != 0 {
		t.Errorf("Expected duplicate suppression, got %+v", second)
	}

	alerts, _ := s.ListAlerts(false)
	if len(alerts) != 1 {
		t.Errorf("Expected a single alert after two checks, got %d", len(alerts))
	}
}

func TestCheckNowTouchesKeyword(t *testing.T) {
	s := newTestStore(t)
	groupID := seedKeyword(t, s, "AI", "machine learning")

	m := New(s, mockFactory(collector.NewMockProvider()))
	before := time.Now().UTC().Add(-time.Second)
	if _, err := m.CheckNow(context.Background(), 0); err != nil {
		t.Fatalf("CheckNow failed: %v", err)
	}

	keywords, err := s.ListKeywords(groupID)
	if err != nil {
		t.Fatalf("ListKeywords failed: %v", err)
	}
	if keywords[0].LastChecked.Before(before) {
		t.Errorf("Expected last_checked updated, got %v", keywords[0].LastChecked)
	}
}

func TestCheckNowGroupFilter(t *testing.T) {
	s := newTestStore(t)
	seedKeyword(t, s, "AI", "machine learning")
	groupB := seedKeyword(t, s, "Energy", "solar")

	mock := collector.NewMockProvider()
	m := New(s, mockFactory(mock))

	result, err := m.CheckNow(context.Background(), groupB)
	if err != nil {
		t.Fatalf("CheckNow failed: %v", err)
	}
	if result.KeywordsChecked != 1 {
		t.Errorf("Expected only the filtered group checked, got %+v", result)
	}
	if mock.Calls != 1 {
		t.Errorf("Expected one provider call, got %d", mock.Calls)
	}
}

func TestProviderErrorAbortsPass(t *testing.T) {
	s := newTestStore(t)
	groupID, err := s.CreateKeywordGroup("AI group", "AI")
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, kw := range []string{"first", "second", "third"} {
		if _, err := s.AddKeyword(groupID, kw); err != nil {
			t.Fatalf("Failed to add keyword: %v", err)
		}
	}

	mock := collector.NewMockProvider()
	mock.SetError(errors.New("upstream down"))
	m := New(s, mockFactory(mock))

	if _, err := m.CheckNow(context.Background(), 0); err == nil {
		t.Fatal("Expected error from failing provider")
	}
	if mock.Calls != 1 {
		t.Errorf("Expected pass aborted after first failure, got %d calls", mock.Calls)
	}

	status, err := s.GetMonitorStatus()
	if err != nil {
		t.Fatalf("GetMonitorStatus failed: %v", err)
	}
	if status.LastError == "" {
		t.Error("Expected error recorded in status")
	}
}

func TestFailedPassErrorSurvivesRecordRun(t *testing.T) {
	s := newTestStore(t)
	seedKeyword(t, s, "AI", "machine learning")

	mock := collector.NewMockProvider()
	mock.SetError(errors.New("upstream down"))
	m := New(s, mockFactory(mock))

	if _, err := m.CheckNow(context.Background(), 0); err == nil {
		t.Fatal("Expected error from failing provider")
	}

	// The scheduler stamps the run times after every tick, failed or not.
	now := time.Now().UTC()
	if err := s.RecordRun(now, now.Add(time.Minute)); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	status, err := s.GetMonitorStatus()
	if err != nil {
		t.Fatalf("GetMonitorStatus failed: %v", err)
	}
	if status.LastError == "" {
		t.Error("Expected failed pass error still visible after run stamped")
	}

	mock.SetError(nil)
	if _, err := m.CheckNow(context.Background(), 0); err != nil {
		t.Fatalf("CheckNow failed: %v", err)
	}
	status, _ = s.GetMonitorStatus()
	if status.LastError != "" {
		t.Errorf("Expected successful pass to clear error, got %q", status.LastError)
	}
}

func TestDailyLimitStopsBeforeProviderCall(t *testing.T) {
	s := newTestStore(t)
	seedKeyword(t, s, "AI", "machine learning")

	settings, err := s.GetMonitorSettings()
	if err != nil {
		t.Fatalf("GetMonitorSettings failed: %v", err)
	}
	settings.DailyRequestLimit = 1
	if err := s.SaveMonitorSettings(settings); err != nil {
		t.Fatalf("SaveMonitorSettings failed: %v", err)
	}

	// Exhaust today's budget.
	if err := s.ConsumeRequest(1); err != nil {
		t.Fatalf("ConsumeRequest failed: %v", err)
	}

	mock := collector.NewMockProvider()
	m := New(s, mockFactory(mock))

	_, err = m.CheckNow(context.Background(), 0)
	if !errors.Is(err, errkind.ErrRateLimited) {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
	if mock.Calls != 0 {
		t.Errorf("Expected no provider call past the limit, got %d", mock.Calls)
	}
}

func TestCheckNowCancelledContext(t *testing.T) {
	s := newTestStore(t)
	seedKeyword(t, s, "AI", "machine learning")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := collector.NewMockProvider()
	m := New(s, mockFactory(mock))
	if _, err := m.CheckNow(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context error, got %v", err)
	}
	if mock.Calls != 0 {
		t.Errorf("Expected no provider calls after cancel, got %d", mock.Calls)
	}
}
