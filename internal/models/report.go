package models

import (
	"encoding/json"
	"time"
)

// Valuation verdicts.
const (
	VerdictUndervalued  = "undervalued"
	VerdictFairlyValued = "fairly_valued"
	VerdictOvervalued   = "overvalued"
)

// StockReportInput is everything the prompt builder needs for one ticker.
// Only Ticker, CompanyName, Price and MarketCap are required; every analytic
// metric is optional. Ratio fields are fractions.
type StockReportInput struct {
	Ticker      string `json:"ticker" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`

	Price     float64 `json:"price" validate:"gt=0"`
	MarketCap float64 `json:"marketCap" validate:"gte=0"`

	PE        *float64 `json:"pe"`
	ForwardPE *float64 `json:"forwardPe"`
	PS        *float64 `json:"ps"`
	PB        *float64 `json:"pb"`
	EVEBITDA  *float64 `json:"evEbitda"`

	GrossMargin     *float64 `json:"grossMargin"`
	OperatingMargin *float64 `json:"operatingMargin"`
	NetMargin       *float64 `json:"netMargin"`
	ROE             *float64 `json:"roe"`
	ROIC            *float64 `json:"roic"`

	RevenueGrowthYoY *float64 `json:"revenueGrowthYoY"`
	EPSGrowthYoY     *float64 `json:"epsGrowthYoY"`

	DividendYield *float64 `json:"dividendYield"`
	PayoutRatio   *float64 `json:"payoutRatio"`

	DebtToEquity *float64 `json:"debtToEquity"`
	CurrentRatio *float64 `json:"currentRatio"`

	RecentNews []string `json:"recentNews"`

	AnalystTargetPrice *float64 `json:"analystTargetPrice"`
	NumberOfAnalysts   *int     `json:"numberOfAnalysts"`
}

// GeneratedReport is the structured report returned by the LLM. The JSON
// field names are the wire contract with the model and with API callers.
// Every key must be present, but string values may be empty; thin content
// is a quality issue, not a validation failure.
type GeneratedReport struct {
	ExecutiveSummary    string        `json:"executiveSummary"`
	BullCase            []string      `json:"bullCase" validate:"required,min=3,max=5"`
	BearCase            []string      `json:"bearCase" validate:"required,min=3,max=5"`
	ValuationAssessment string        `json:"valuationAssessment"`
	ValuationVerdict    string        `json:"valuationVerdict" validate:"required,oneof=undervalued fairly_valued overvalued"`
	KeyMetrics          []KeyMetric   `json:"keyMetrics" validate:"required,min=5,max=7"`
	RecentDevelopments  []Development `json:"recentDevelopments,omitempty"`
	CatalystCalendar    []Catalyst    `json:"catalystCalendar,omitempty" validate:"omitempty,dive"`
}

// KeyMetric is one highlighted metric with its relevance.
type KeyMetric struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Explanation string `json:"explanation"`
}

// Development is a recent material event.
type Development struct {
	Date     string `json:"date"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// Catalyst is a known upcoming event.
type Catalyst struct {
	Date  string `json:"date"`
	Event string `json:"event"`
	Type  string `json:"type" validate:"required,oneof=earnings dividend product regulatory other"`
}

// QualityScore grades a report. Every field is in [0, 100].
type QualityScore struct {
	Overall      int      `json:"overall"`
	Completeness int      `json:"completeness"`
	Specificity  int      `json:"specificity"`
	Balance      int      `json:"balance"`
	Issues       []string `json:"issues"`
}

// TriggerType records why a report was (re)generated.
type TriggerType string

const (
	TriggerEarnings         TriggerType = "earnings"
	TriggerMajorNews        TriggerType = "major_news"
	TriggerPriceMove        TriggerType = "price_move"
	TriggerEstimateRevision TriggerType = "estimate_revision"
	TriggerWeeklyRefresh    TriggerType = "weekly_refresh"
	TriggerManual           TriggerType = "manual"
)

// Priority returns the queue priority for the trigger; 1 is most urgent.
func (t TriggerType) Priority() int {
	switch t {
	case TriggerEarnings, TriggerManual:
		return 1
	case TriggerMajorNews:
		return 2
	case TriggerPriceMove:
		return 3
	case TriggerEstimateRevision:
		return 4
	default:
		return 5
	}
}

// Valid reports whether t is a known trigger.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerEarnings, TriggerMajorNews, TriggerPriceMove, TriggerEstimateRevision, TriggerWeeklyRefresh, TriggerManual:
		return true
	}
	return false
}

// StockReport is a persisted, versioned report for one ticker.
type StockReport struct {
	ID      string `json:"id"`
	Ticker  string `json:"ticker" badgerhold:"index"`
	Version int    `json:"version"`

	Content     GeneratedReport `json:"content"`
	ContentHash string          `json:"content_hash"`
	Quality     QualityScore    `json:"quality"`

	HumanReviewed bool `json:"human_reviewed"`

	ModelUsed        string   `json:"model_used"`
	PromptVersion    string   `json:"prompt_version"`
	Research         string   `json:"research,omitempty"`
	Sources          []string `json:"sources,omitempty"`
	GenerationTimeMs int64    `json:"generation_time_ms"`
	Attempts         int      `json:"attempts"`

	TriggerType TriggerType     `json:"trigger_type"`
	TriggerData json.RawMessage `json:"trigger_data,omitempty"`

	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// JobStatus is the lifecycle state of a ReportJob.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the job will not run again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// DefaultJobMaxAttempts bounds how often a report job is tried.
const DefaultJobMaxAttempts = 3

// ReportJob is a queued request to (re)generate a ticker's report.
type ReportJob struct {
	ID          string          `json:"id"`
	Ticker      string          `json:"ticker" badgerhold:"index"`
	Priority    int             `json:"priority"`
	TriggerType TriggerType     `json:"trigger_type"`
	TriggerData json.RawMessage `json:"trigger_data,omitempty"`

	Status      JobStatus `json:"status" badgerhold:"index"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	ReportID    string    `json:"report_id,omitempty"`

	ScheduledFor time.Time  `json:"scheduled_for"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
