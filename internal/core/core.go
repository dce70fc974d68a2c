package core

import "time"

// IngestStatus is the terminal decision recorded for an article that passed
// through the auto-ingest pipeline.
type IngestStatus string

const (
	IngestPending  IngestStatus = "pending"  // queued, not yet decided
	IngestApproved IngestStatus = "approved" // passed relevance and quality review
	IngestFailed   IngestStatus = "failed"   // rejected by relevance or quality review
	IngestManual   IngestStatus = "manual"   // inserted outside the pipeline
)

// Article is the canonical persisted record for a discovered news article.
// The URI is the sole natural key; saving an article with an existing URI is
// an upsert.
type Article struct {
	URI             string `json:"uri"`              // Canonical article URL, primary key
	Title           string `json:"title"`            // Article title
	NewsSource      string `json:"news_source"`      // Source domain or publication name
	PublicationDate string `json:"publication_date"` // Publication date as reported (ISO preferred)
	SubmissionDate  string `json:"submission_date"`  // When the article entered the system
	Summary         string `json:"summary"`          // Short summary (provider snippet or LLM output)
	Topic           string `json:"topic"`            // User-defined topic label driving the ontology
	Analyzed        bool   `json:"analyzed"`         // Whether the analyzer has produced outputs

	// Analyzer outputs.
	Category                string   `json:"category"`
	Sentiment               string   `json:"sentiment"`
	SentimentExplanation    string   `json:"sentiment_explanation"`
	FutureSignal            string   `json:"future_signal"`
	FutureSignalExplanation string   `json:"future_signal_explanation"`
	TimeToImpact            string   `json:"time_to_impact"`
	TimeToImpactExplanation string   `json:"time_to_impact_explanation"`
	DriverType              string   `json:"driver_type"`
	DriverTypeExplanation   string   `json:"driver_type_explanation"`
	Tags                    []string `json:"tags"`

	// Media-bias enrichment.
	Bias                  string `json:"bias"`
	FactualReporting      string `json:"factual_reporting"`
	MBFCCredibilityRating string `json:"mbfc_credibility_rating"`
	BiasSource            string `json:"bias_source"`
	BiasCountry           string `json:"bias_country"`
	PressFreedom          string `json:"press_freedom"`
	MediaType             string `json:"media_type"`
	Popularity            string `json:"popularity"`

	// Relevance scoring, all in [0,1].
	TopicAlignmentScore      float64  `json:"topic_alignment_score"`
	KeywordRelevanceScore    float64  `json:"keyword_relevance_score"`
	ConfidenceScore          float64  `json:"confidence_score"`
	OverallMatchExplanation  string   `json:"overall_match_explanation"`
	ExtractedArticleTopics   []string `json:"extracted_article_topics"`
	ExtractedArticleKeywords []string `json:"extracted_article_keywords"`

	// Auto-ingest bookkeeping.
	AutoIngested  bool         `json:"auto_ingested"`
	IngestStatus  IngestStatus `json:"ingest_status"`
	QualityScore  float64      `json:"quality_score"`
	QualityIssues []string     `json:"quality_issues"`
}

// RawArticle holds the full scraped document text for an article, one-to-one
// with Article by URI. Text is truncated to the configured character budget
// before storage.
type RawArticle struct {
	URI         string `json:"uri"`
	RawMarkdown string `json:"raw_markdown"`
	Topic       string `json:"topic"`
}

// KeywordGroup is the unit of scheduling: a named set of keywords sharing a
// topic.
type KeywordGroup struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

// Keyword is a literal query string monitored on behalf of a group.
type Keyword struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	Keyword     string    `json:"keyword"`
	LastChecked time.Time `json:"last_checked"`
}

// Alert records a (keyword set, article) match discovered during a monitor
// tick. Alerts are the queue feeding the auto-ingest pipeline.
type Alert struct {
	ID         int64     `json:"id"`
	KeywordIDs []int64   `json:"keyword_ids"`
	ArticleURI string    `json:"article_uri"`
	IsRead     bool      `json:"is_read"`
	DetectedAt time.Time `json:"detected_at"`
	Article    *Article  `json:"article,omitempty"` // Populated on list queries
}

// ProviderArticle is the normalized shape returned by news provider
// collectors before an article is persisted.
type ProviderArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	PublishedDate string `json:"published_date"`
	Summary       string `json:"summary"`
}

// MediaBiasSource describes bias/factuality metadata for a news domain.
// A domain appears at most once.
type MediaBiasSource struct {
	ID                    int64  `json:"id"`
	Source                string `json:"source"` // Normalized domain
	Country               string `json:"country"`
	Bias                  string `json:"bias"`
	FactualReporting      string `json:"factual_reporting"`
	PressFreedom          string `json:"press_freedom"`
	MediaType             string `json:"media_type"`
	Popularity            string `json:"popularity"`
	MBFCCredibilityRating string `json:"mbfc_credibility_rating"`
	Enabled               bool   `json:"enabled"`
}

// AnalysisConfig enumerates the per-topic ontology the analyzer classifies
// against.
type AnalysisConfig struct {
	SummaryLength       int      `json:"summary_length"`
	SummaryVoice        string   `json:"summary_voice"`
	SummaryType         string   `json:"summary_type"`
	Categories          []string `json:"categories"`
	FutureSignals       []string `json:"future_signals"`
	SentimentOptions    []string `json:"sentiment_options"`
	TimeToImpactOptions []string `json:"time_to_impact_options"`
	DriverTypes         []string `json:"driver_types"`
}

// DefaultAnalysisConfig returns the built-in ontology used when a topic has
// no custom configuration.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SummaryLength:       120,
		SummaryVoice:        "active",
		SummaryType:         "analytical",
		Categories:          []string{"Technology", "Business", "Science", "Policy", "Society", "Environment"},
		FutureSignals:       []string{"Weak Signal", "Emerging Trend", "Established Trend", "Megatrend"},
		SentimentOptions:    []string{"positive", "negative", "neutral", "mixed"},
		TimeToImpactOptions: []string{"Immediate", "1-2 years", "3-5 years", "5-10 years", "10+ years"},
		DriverTypes:         []string{"Technological", "Economic", "Social", "Political", "Environmental", "Legal"},
	}
}

// Analysis is the structured output of a full article classification.
type Analysis struct {
	Title                   string   `json:"title"`
	Summary                 string   `json:"summary"`
	Category                string   `json:"category"`
	FutureSignal            string   `json:"future_signal"`
	FutureSignalExplanation string   `json:"future_signal_explanation"`
	Sentiment               string   `json:"sentiment"`
	SentimentExplanation    string   `json:"sentiment_explanation"`
	TimeToImpact            string   `json:"time_to_impact"`
	TimeToImpactExplanation string   `json:"time_to_impact_explanation"`
	DriverType              string   `json:"driver_type"`
	DriverTypeExplanation   string   `json:"driver_type_explanation"`
	Tags                    []string `json:"tags"`
	PublicationDate         string   `json:"publication_date"`
	URI                     string   `json:"uri"`
	ModelName               string   `json:"model_name"`
}

// RelevanceResult scores an article against the topic and keyword list that
// produced its alert. Scores are clamped to [0,1]; a parse failure yields an
// all-zero record with an explanation rather than an invalid one.
type RelevanceResult struct {
	TopicAlignmentScore      float64  `json:"topic_alignment_score"`
	KeywordRelevanceScore    float64  `json:"keyword_relevance_score"`
	ConfidenceScore          float64  `json:"confidence_score"`
	OverallMatchExplanation  string   `json:"overall_match_explanation"`
	ExtractedArticleTopics   []string `json:"extracted_article_topics"`
	ExtractedArticleKeywords []string `json:"extracted_article_keywords"`
}

// Overall folds the component scores into the single value compared against
// the auto-ingest relevance threshold.
func (r RelevanceResult) Overall() float64 {
	return (r.TopicAlignmentScore + r.KeywordRelevanceScore) / 2
}

// QualityRecommendation is the verdict of the content-quality review step.
type QualityRecommendation string

const (
	QualityApprove    QualityRecommendation = "approve"
	QualityNeedsCheck QualityRecommendation = "review"
	QualityReject     QualityRecommendation = "reject"
)

// QualityReview is the structured output of the content-quality LLM call.
type QualityReview struct {
	QualityScore   float64               `json:"quality_score"`
	IssuesDetected []string              `json:"issues_detected"`
	Recommendation QualityRecommendation `json:"recommendation"`
	Explanation    string                `json:"explanation"`
	ContentType    string                `json:"content_type"` // article, cookie_notice, paywall, error_page, navigation, other
}

// MonitorSettings is the singleton configuration row for the keyword monitor
// and the auto-ingest pipeline.
type MonitorSettings struct {
	CheckInterval         int     `json:"check_interval"`
	IntervalUnit          string  `json:"interval_unit"` // seconds, minutes, hours, days
	SearchFields          string  `json:"search_fields"`
	Language              string  `json:"language"`
	SortBy                string  `json:"sort_by"`
	PageSize              int     `json:"page_size"`
	DailyRequestLimit     int     `json:"daily_request_limit"`
	Provider              string  `json:"provider"`
	AutoIngestEnabled     bool    `json:"auto_ingest_enabled"`
	MinRelevanceThreshold float64 `json:"min_relevance_threshold"`
	QualityControlEnabled bool    `json:"quality_control_enabled"`
	AutoSaveApprovedOnly  bool    `json:"auto_save_approved_only"`
	DefaultLLMModel       string  `json:"default_llm_model"`
	LLMTemperature        float64 `json:"llm_temperature"`
	LLMMaxTokens          int     `json:"llm_max_tokens"`
	BatchSize             int     `json:"batch_size"`
	MaxConcurrentBatches  int     `json:"max_concurrent_batches"`
}

// DefaultMonitorSettings returns the settings seeded into a fresh database.
func DefaultMonitorSettings() MonitorSettings {
	return MonitorSettings{
		CheckInterval:         30,
		IntervalUnit:          "minutes",
		SearchFields:          "title,description",
		Language:              "en",
		SortBy:                "publishedAt",
		PageSize:              20,
		DailyRequestLimit:     100,
		Provider:              "newsapi",
		AutoIngestEnabled:     false,
		MinRelevanceThreshold: 0.7,
		QualityControlEnabled: true,
		AutoSaveApprovedOnly:  true,
		DefaultLLMModel:       "gpt-4o-mini",
		LLMTemperature:        0.2,
		LLMMaxTokens:          2048,
		BatchSize:             5,
		MaxConcurrentBatches:  1,
	}
}

// TickInterval converts CheckInterval plus IntervalUnit into a duration.
func (s MonitorSettings) TickInterval() time.Duration {
	unit := time.Minute
	switch s.IntervalUnit {
	case "seconds":
		unit = time.Second
	case "hours":
		unit = time.Hour
	case "days":
		unit = 24 * time.Hour
	}
	if s.CheckInterval <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.CheckInterval) * unit
}

// MonitorStatus is the singleton runtime status row shared by all provider
// collectors; RequestsToday backs the daily rate limit.
type MonitorStatus struct {
	LastRunTime   time.Time `json:"last_run_time"`
	NextRunTime   time.Time `json:"next_run_time"`
	LastError     string    `json:"last_error"`
	RequestsToday int       `json:"requests_today"`
	LastResetDate string    `json:"last_reset_date"` // YYYY-MM-DD in UTC
}

// TrendPoint is one day of alert volume for a keyword group.
type TrendPoint struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
	Day       string `json:"day"` // YYYY-MM-DD
	Count     int    `json:"count"`
}

// IngestDetail records the per-article outcome of an auto-ingest run.
type IngestDetail struct {
	URI          string       `json:"uri"`
	Title        string       `json:"title"`
	Status       IngestStatus `json:"status"`
	Relevance    float64      `json:"relevance"`
	QualityScore float64      `json:"quality_score"`
	Error        string       `json:"error,omitempty"`
}

// IngestResult summarizes one auto-ingest run.
type IngestResult struct {
	Processed         int            `json:"processed"`
	Ingested          int            `json:"ingested"`
	RejectedRelevance int            `json:"rejected_relevance"`
	RejectedQuality   int            `json:"rejected_quality"`
	Errors            int            `json:"errors"`
	Details           []IngestDetail `json:"details"`
}
