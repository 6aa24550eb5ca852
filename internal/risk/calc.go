// Package risk converts qualitative signal ratings into financial
// exposure figures: reach, churn risk and value at risk, aggregated into
// one portfolio figure with deduplication weighting. Calculation functions
// are stateless and perform no I/O.
package risk

import (
	"sort"

	"github.com/ternarybob/aegis/internal/models"
)

// Simulation constants for the default client profile.
const (
	// CostPerAcquiredCustomer in EUR.
	CostPerAcquiredCustomer = 100.0
	// AverageRevenuePerCustomer is annual revenue per customer in EUR.
	AverageRevenuePerCustomer = 1200.0
	// TotalClientBase is the monitored company's customer count.
	TotalClientBase = 10000.0
	// ReachCap bounds any single signal's estimated reach.
	ReachCap = 1000000.0
	// ReachBase scales authority into audience size.
	ReachBase = 5000.0
	// AcquisitionConversionRate: share of reach that were acquirable
	// prospects now lost.
	AcquisitionConversionRate = 0.005
	// ExposureRate: share of the client base exposed to tier-1 coverage.
	ExposureRate = 0.1
	// ChurnDampening: not every exposed client churns.
	ChurnDampening = 0.1
)

// Fallback enrichment weights when the provider call fails.
const (
	FallbackTopicWeight      = 1.0
	FallbackViralCoefficient = 1.2
)

// dedupWeights is the decreasing weight sequence applied to signals sorted
// by VaR descending; the last weight repeats for any remaining signals.
// Multiple signals about one incident largely reach the same audience, so
// full-weight summation would double-count it.
var dedupWeights = []float64{1.0, 0.2, 0.1}

// topicChurnWeights maps a subject category to its churn sensitivity
// (default bank-style profile). Unknown subjects weigh 1.0.
var topicChurnWeights = map[models.SubjectCategory]float64{
	models.SubjectSecurityFraud:        3.0,
	models.SubjectLegalCompliance:      2.0,
	models.SubjectLaborRelations:       1.6,
	models.SubjectEthicsManagement:     1.5,
	models.SubjectFinancialPerformance: 1.4,
	models.SubjectOperationalIncident:  1.3,
	models.SubjectProductBug:           1.0,
	models.SubjectCustomerService:      0.5,
}

// TopicWeight returns the churn sensitivity for a subject, 1.0 if unknown.
func TopicWeight(subject models.SubjectCategory) float64 {
	if w, ok := topicChurnWeights[subject]; ok {
		return w
	}
	return 1.0
}

// SnapViralCoefficient snaps a free-form coefficient to the discrete
// bands 0.8 / 1.2 / 1.5 / 2.5 so provider output cannot arbitrarily
// inflate reach.
func SnapViralCoefficient(v float64) float64 {
	switch {
	case v <= 1.0:
		return 0.8
	case v <= 1.35:
		return 1.2
	case v <= 2.0:
		return 1.5
	default:
		return 2.5
	}
}

// Reach estimates audience size: base * authority * (severity/2) * viral,
// capped at ReachCap.
func Reach(authority, severity int, viralCoefficient float64) float64 {
	raw := ReachBase * float64(authority) * (float64(severity) / 2) * viralCoefficient
	if raw > ReachCap {
		return ReachCap
	}
	return raw
}

// ExposedClients estimates how many existing clients saw the coverage.
func ExposedClients(authority int) float64 {
	return TotalClientBase * (float64(authority) / 5.0) * ExposureRate
}

// AcquisitionLoss: lost prospects among the reach.
func AcquisitionLoss(reach float64) float64 {
	return reach * AcquisitionConversionRate * CostPerAcquiredCustomer
}

// ChurnLoss: exposed clients * severity factor * topic sensitivity *
// dampening * annual revenue.
func ChurnLoss(authority, severity int, topicWeight float64) float64 {
	return ExposedClients(authority) *
		(float64(severity) / 5.0) *
		(topicWeight / 10.0) *
		ChurnDampening *
		AverageRevenuePerCustomer
}

// ValueAtRisk is the signal's total financial exposure.
func ValueAtRisk(reach float64, authority, severity int, topicWeight float64) float64 {
	return AcquisitionLoss(reach) + ChurnLoss(authority, severity, topicWeight)
}

// ChurnRiskPercent is the exposed share of the client base.
func ChurnRiskPercent(authority int) float64 {
	return ExposedClients(authority) / TotalClientBase * 100
}

// AggregatePortfolio computes the dedup-weighted portfolio VaR and max
// severity over enriched signals. Signals are ranked by VaR descending
// (without mutating the input) and weighted 1.0, 0.2, 0.1, 0.1, ...
// With a single signal the result equals its VaR; with several it is
// always at or below the plain sum.
func AggregatePortfolio(signals []models.Signal) models.PortfolioRisk {
	if len(signals) == 0 {
		return models.PortfolioRisk{}
	}

	ranked := make([]models.Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ValueAtRisk > ranked[j].ValueAtRisk
	})

	total := 0.0
	maxSeverity := 0
	for i, sig := range ranked {
		w := dedupWeights[len(dedupWeights)-1]
		if i < len(dedupWeights) {
			w = dedupWeights[i]
		}
		total += w * sig.ValueAtRisk

		if sig.SeverityRating > maxSeverity {
			maxSeverity = sig.SeverityRating
		}
	}

	return models.PortfolioRisk{
		TotalValueAtRisk: total,
		MaxSeverity:      maxSeverity,
	}
}
