package store

import (
	"errors"
	"testing"
	"time"

	"newswatch/internal/core"
	"newswatch/internal/errkind"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveArticleUpsert(t *testing.T) {
	s := newTestStore(t)

	article := core.Article{
		URI:          "https://example.com/a1",
		Title:        "First title",
		NewsSource:   "example.com",
		Topic:        "AI",
		Tags:         []string{"ai", "ml"},
		IngestStatus: core.IngestPending,
	}
	if err := s.SaveArticle(article); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}

	article.Title = "Updated title"
	article.TopicAlignmentScore = 0.8
	if err := s.SaveArticle(article); err != nil {
		t.Fatalf("SaveArticle upsert failed: %v", err)
	}

	got, err := s.GetArticle(article.URI)
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if got.Title != "Updated title" {
		t.Errorf("Expected updated title, got %q", got.Title)
	}
	if got.TopicAlignmentScore != 0.8 {
		t.Errorf("Expected score 0.8, got %v", got.TopicAlignmentScore)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ai" {
		t.Errorf("Expected tags [ai ml], got %v", got.Tags)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one row after double save, got %d", count)
	}
}

func TestSaveArticleEmptyURI(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveArticle(core.Article{Title: "no uri"})
	if !errors.Is(err, errkind.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetArticle("https://example.com/missing")
	if !errors.Is(err, errkind.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestKeywordGroupsAndKeywords(t *testing.T) {
	s := newTestStore(t)

	groupID, err := s.CreateKeywordGroup("g1", "AI")
	if err != nil {
		t.Fatalf("CreateKeywordGroup failed: %v", err)
	}

	id1, err := s.AddKeyword(groupID, "AGI")
	if err != nil {
		t.Fatalf("AddKeyword failed: %v", err)
	}
	id2, err := s.AddKeyword(groupID, "machine learning")
	if err != nil {
		t.Fatalf("AddKeyword failed: %v", err)
	}

	keywords, err := s.ListKeywords(groupID)
	if err != nil {
		t.Fatalf("ListKeywords failed: %v", err)
	}
	if len(keywords) != 2 {
		t.Fatalf("Expected 2 keywords, got %d", len(keywords))
	}
	// ID order is the iteration contract for monitor ticks.
	if keywords[0].ID != id1 || keywords[1].ID != id2 {
		t.Errorf("Expected keywords in id order, got %v then %v", keywords[0].ID, keywords[1].ID)
	}

	checked := time.Now().UTC().Truncate(time.Second)
	if err := s.TouchKeyword(id1, checked); err != nil {
		t.Fatalf("TouchKeyword failed: %v", err)
	}
	keywords, _ = s.ListKeywords(groupID)
	if keywords[0].LastChecked.Before(checked) {
		t.Errorf("Expected last_checked >= %v, got %v", checked, keywords[0].LastChecked)
	}
}

func TestInsertAlertRequiresArticle(t *testing.T) {
	s := newTestStore(t)

	groupID, _ := s.CreateKeywordGroup("g1", "AI")
	keywordID, _ := s.AddKeyword(groupID, "AGI")

	_, err := s.InsertAlert([]int64{keywordID}, "https://example.com/missing")
	if !errors.Is(err, errkind.ErrConflict) {
		t.Errorf("Expected conflict for missing article, got %v", err)
	}
}

func TestInsertAlertDuplicateSuppression(t *testing.T) {
	s := newTestStore(t)

	groupID, _ := s.CreateKeywordGroup("g1", "AI")
	keywordID, _ := s.AddKeyword(groupID, "AGI")
	if err := s.SaveArticle(core.Article{URI: "https://ex.com/a1", Title: "AGI soon", IngestStatus: core.IngestPending}); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}

	inserted, err := s.InsertAlert([]int64{keywordID}, "https://ex.com/a1")
	if err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}
	if !inserted {
		t.Error("Expected first alert to be inserted")
	}

	inserted, err = s.InsertAlert([]int64{keywordID}, "https://ex.com/a1")
	if err != nil {
		t.Fatalf("Second InsertAlert failed: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate alert to be suppressed")
	}

	alerts, err := s.ListAlerts(false)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected exactly one alert, got %d", len(alerts))
	}
	if alerts[0].Article == nil || alerts[0].Article.URI != "https://ex.com/a1" {
		t.Error("Expected alert to carry its nested article")
	}
}

func TestSetAlertRead(t *testing.T) {
	s := newTestStore(t)

	groupID, _ := s.CreateKeywordGroup("g1", "AI")
	keywordID, _ := s.AddKeyword(groupID, "AGI")
	_ = s.SaveArticle(core.Article{URI: "https://ex.com/a1", IngestStatus: core.IngestPending})
	_, _ = s.InsertAlert([]int64{keywordID}, "https://ex.com/a1")

	alerts, _ := s.ListAlerts(false)
	if err := s.SetAlertRead(alerts[0].ID, true); err != nil {
		t.Fatalf("SetAlertRead failed: %v", err)
	}

	unread, _ := s.ListAlerts(false)
	if len(unread) != 0 {
		t.Errorf("Expected no unread alerts, got %d", len(unread))
	}
	all, _ := s.ListAlerts(true)
	if len(all) != 1 {
		t.Errorf("Expected one alert including read, got %d", len(all))
	}
}

func TestPendingIngest(t *testing.T) {
	s := newTestStore(t)

	groupID, _ := s.CreateKeywordGroup("g1", "AI")
	keywordID, _ := s.AddKeyword(groupID, "AGI")

	_ = s.SaveArticle(core.Article{URI: "https://ex.com/a1", IngestStatus: core.IngestPending})
	_ = s.SaveArticle(core.Article{URI: "https://ex.com/a2", AutoIngested: true, IngestStatus: core.IngestApproved})
	_, _ = s.InsertAlert([]int64{keywordID}, "https://ex.com/a1")
	_, _ = s.InsertAlert([]int64{keywordID}, "https://ex.com/a2")

	pending, err := s.PendingIngest(10)
	if err != nil {
		t.Fatalf("PendingIngest failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending article, got %d", len(pending))
	}
	if pending[0].URI != "https://ex.com/a1" {
		t.Errorf("Expected the not-yet-ingested article, got %s", pending[0].URI)
	}
}

func TestConsumeRequestDailyLimit(t *testing.T) {
	s := newTestStore(t)

	if err := s.ConsumeRequest(2); err != nil {
		t.Fatalf("First request should pass: %v", err)
	}
	if err := s.ConsumeRequest(2); err != nil {
		t.Fatalf("Second request should pass: %v", err)
	}
	err := s.ConsumeRequest(2)
	if !errors.Is(err, errkind.ErrRateLimited) {
		t.Errorf("Expected rate limited at cap, got %v", err)
	}

	status, err := s.GetMonitorStatus()
	if err != nil {
		t.Fatalf("GetMonitorStatus failed: %v", err)
	}
	if status.RequestsToday != 2 {
		t.Errorf("Expected 2 requests counted, got %d", status.RequestsToday)
	}
}

func TestMonitorSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	settings, err := s.GetMonitorSettings()
	if err != nil {
		t.Fatalf("GetMonitorSettings failed: %v", err)
	}
	if settings.MinRelevanceThreshold != 0.7 {
		t.Errorf("Expected seeded threshold 0.7, got %v", settings.MinRelevanceThreshold)
	}

	settings.CheckInterval = 5
	settings.IntervalUnit = "minutes"
	settings.AutoIngestEnabled = true
	if err := s.SaveMonitorSettings(settings); err != nil {
		t.Fatalf("SaveMonitorSettings failed: %v", err)
	}

	got, _ := s.GetMonitorSettings()
	if got.CheckInterval != 5 || !got.AutoIngestEnabled {
		t.Errorf("Settings did not round-trip: %+v", got)
	}
}

func TestSaveMonitorSettingsValidatesThreshold(t *testing.T) {
	s := newTestStore(t)
	settings, _ := s.GetMonitorSettings()
	settings.MinRelevanceThreshold = 1.5
	err := s.SaveMonitorSettings(settings)
	if !errors.Is(err, errkind.ErrValidation) {
		t.Errorf("Expected validation error for threshold > 1, got %v", err)
	}
}

func TestMediaBiasUpsertAndEnable(t *testing.T) {
	s := newTestStore(t)

	src := core.MediaBiasSource{Source: "example.com", Bias: "center", Enabled: false}
	if err := s.UpsertMediaBiasSource(src); err != nil {
		t.Fatalf("UpsertMediaBiasSource failed: %v", err)
	}
	// Upsert again with new data; domain must stay unique.
	src.Bias = "left-center"
	if err := s.UpsertMediaBiasSource(src); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := s.GetMediaBiasSource("example.com")
	if err != nil {
		t.Fatalf("GetMediaBiasSource failed: %v", err)
	}
	if got.Bias != "left-center" {
		t.Errorf("Expected updated bias, got %q", got.Bias)
	}
	if got.Enabled {
		t.Error("Expected source to start disabled")
	}

	if err := s.EnableMediaBiasSource(got.ID); err != nil {
		t.Fatalf("EnableMediaBiasSource failed: %v", err)
	}
	got, _ = s.GetMediaBiasSource("example.com")
	if !got.Enabled {
		t.Error("Expected source enabled after update")
	}
}

func TestRawArticleTruncation(t *testing.T) {
	s := newTestStore(t)
	_ = s.SaveArticle(core.Article{URI: "https://ex.com/a1", IngestStatus: core.IngestPending})

	long := make([]byte, core.MaxContentChars+500)
	for i := range long {
		long[i] = 'x'
		if i%10 == 9 {
			long[i] = ' '
		}
	}
	if err := s.SaveRawArticle(core.RawArticle{URI: "https://ex.com/a1", RawMarkdown: string(long), Topic: "AI"}); err != nil {
		t.Fatalf("SaveRawArticle failed: %v", err)
	}

	raw, err := s.GetRawArticle("https://ex.com/a1")
	if err != nil {
		t.Fatalf("GetRawArticle failed: %v", err)
	}
	if len(raw.RawMarkdown) > core.MaxContentChars {
		t.Errorf("Expected raw content truncated to %d chars, got %d", core.MaxContentChars, len(raw.RawMarkdown))
	}
}

func TestAlertTrends(t *testing.T) {
	s := newTestStore(t)

	groupID, _ := s.CreateKeywordGroup("g1", "AI")
	keywordID, _ := s.AddKeyword(groupID, "AGI")
	_ = s.SaveArticle(core.Article{URI: "https://ex.com/a1", IngestStatus: core.IngestPending})
	_, _ = s.InsertAlert([]int64{keywordID}, "https://ex.com/a1")

	trends, err := s.AlertTrends(7)
	if err != nil {
		t.Fatalf("AlertTrends failed: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("Expected one trend point, got %d", len(trends))
	}
	if trends[0].GroupName != "g1" || trends[0].Count != 1 {
		t.Errorf("Unexpected trend point: %+v", trends[0])
	}
}
