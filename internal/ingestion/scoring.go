// Package ingestion collects raw news signals, rates them via the analysis
// provider, and computes the deterministic exposure score used to rank and
// group them. Scoring functions are stateless and perform no I/O.
package ingestion

import (
	"time"

	"github.com/ternarybob/aegis/internal/models"
)

// Recency multiplier schedule. Age decays in day-scale steps; very fresh
// coverage gets a breaking-news boost. No publish date is neutral (1.0).
const (
	RecencyBreaking = 3.0 // younger than 2 hours
	RecencyActive   = 1.5 // younger than 3 days
	RecencyRecent   = 1.2 // younger than 7 days
	RecencyStandard = 1.0 // younger than 30 days
	RecencyArchive  = 0.7 // older
	RecencyNeutral  = 1.0 // no publish date
)

// Sentiment weights. Negative coverage weighs full, positive roughly a
// tenth of that, neutral the midpoint.
const (
	WeightNegative = 1.0
	WeightNeutral  = 0.5
	WeightPositive = 0.1
)

// subjectRiskMultipliers maps a subject category to its exposure-layer
// multiplier. Unknown subjects are neutral.
var subjectRiskMultipliers = map[models.SubjectCategory]float64{
	models.SubjectSecurityFraud:        1.8,
	models.SubjectLegalCompliance:      1.5,
	models.SubjectEthicsManagement:     1.4,
	models.SubjectLaborRelations:       1.3,
	models.SubjectFinancialPerformance: 1.2,
	models.SubjectOperationalIncident:  1.1,
	models.SubjectProductBug:           1.0,
	models.SubjectCustomerService:      0.8,
}

// RecencyMultiplier computes the age-decay factor for a signal:
//
//	age < 2h  : 3.0 (breaking)
//	age < 3d  : 1.5
//	age < 7d  : 1.2
//	age < 30d : 1.0
//	older     : 0.7
//	no date   : 1.0
func RecencyMultiplier(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return RecencyNeutral
	}

	age := now.Sub(*publishedAt)
	switch {
	case age < 2*time.Hour:
		return RecencyBreaking
	case age < 3*24*time.Hour:
		return RecencyActive
	case age < 7*24*time.Hour:
		return RecencyRecent
	case age < 30*24*time.Hour:
		return RecencyStandard
	default:
		return RecencyArchive
	}
}

// SubjectRiskMultiplier returns the exposure multiplier for a subject
// category, 1.0 when unknown.
func SubjectRiskMultiplier(subject models.SubjectCategory) float64 {
	if m, ok := subjectRiskMultipliers[subject]; ok {
		return m
	}
	return 1.0
}

// SentimentWeight returns the scoring weight for a sentiment.
func SentimentWeight(sentiment models.Sentiment) float64 {
	switch sentiment {
	case models.SentimentPositive:
		return WeightPositive
	case models.SentimentNeutral:
		return WeightNeutral
	default:
		return WeightNegative
	}
}

// ExposureScore combines the rating components:
//
//	authority * severity * subjectRisk * recency * sentimentWeight
func ExposureScore(authority, severity int, subjectRisk, recency, sentimentWeight float64) float64 {
	return float64(authority) * float64(severity) * subjectRisk * recency * sentimentWeight
}
