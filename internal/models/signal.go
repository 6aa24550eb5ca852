package models

import "time"

// Sentiment classifies the tone of a signal toward the monitored company.
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// SubjectCategory classifies what a signal is about. The set matches the
// categories the analysis provider is asked to choose from.
type SubjectCategory string

const (
	SubjectSecurityFraud        SubjectCategory = "security_fraud"
	SubjectLegalCompliance      SubjectCategory = "legal_compliance"
	SubjectEthicsManagement     SubjectCategory = "ethics_management"
	SubjectLaborRelations       SubjectCategory = "labor_relations"
	SubjectFinancialPerformance SubjectCategory = "financial_performance"
	SubjectOperationalIncident  SubjectCategory = "operational_incident"
	SubjectProductBug           SubjectCategory = "product_bug"
	SubjectCustomerService      SubjectCategory = "customer_service"
	SubjectDefault              SubjectCategory = "general"
)

// Signal is one candidate news item about the monitored company.
//
// Lifecycle: rating fields are populated during ingestion, the risk fields
// (ReachEstimate, ChurnRiskPercent, ValueAtRisk) during quantification.
// Derived fields are recomputed from the ratings, never set directly, and a
// Signal is treated as read-only once quantification has finished.
type Signal struct {
	ID          string     `json:"id" badgerhold:"key"`
	Title       string     `json:"title"`
	SourceURL   string     `json:"source_url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	RawContent  string     `json:"raw_content,omitempty"`
	Summary     string     `json:"summary"`

	// Qualitative ratings from the analysis provider (1-5).
	AuthorityRating int             `json:"authority_rating"`
	SeverityRating  int             `json:"severity_rating"`
	SubjectCategory SubjectCategory `json:"subject_category"`
	Sentiment       Sentiment       `json:"sentiment"`

	// Deterministic scoring components.
	RecencyMultiplier     float64 `json:"recency_multiplier"`
	SubjectRiskMultiplier float64 `json:"subject_risk_multiplier"`
	SentimentWeight       float64 `json:"sentiment_weight"`
	ExposureScore         float64 `json:"exposure_score"`

	// Risk quantifier outputs.
	TopicWeight      float64 `json:"topic_weight,omitempty"`
	ViralCoefficient float64 `json:"viral_coefficient,omitempty"`
	ReachEstimate    float64 `json:"reach_estimate,omitempty"`
	ChurnRiskPercent float64 `json:"churn_risk_percent,omitempty"`
	ValueAtRisk      float64 `json:"value_at_risk,omitempty"`

	// DiscoveryIndex preserves the order items came back from search so
	// that exposure-score ties sort deterministically.
	DiscoveryIndex int `json:"discovery_index"`
}

// TopicGroup clusters signals sharing a theme. Groups are created once per
// ingestion run and read-only afterward. Signals are ordered by exposure
// score descending; RepresentativeSummary is the summary of the highest
// scoring member.
type TopicGroup struct {
	Label                 string          `json:"label"`
	Subject               SubjectCategory `json:"subject"`
	RepresentativeSummary string          `json:"representative_summary"`
	Signals               []Signal        `json:"signals"`
	GroupExposure         float64         `json:"group_exposure"`
}

// PortfolioRisk aggregates the run's enriched signals using the
// dedup-weighted VaR sum. Computed once, immutable.
type PortfolioRisk struct {
	TotalValueAtRisk float64 `json:"total_value_at_risk"`
	MaxSeverity      int     `json:"max_severity"`
}
