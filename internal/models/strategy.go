package models

// AlertLabel is the provider's raw crisis classification.
type AlertLabel string

const (
	AlertIgnore   AlertLabel = "IGNORE"
	AlertSoft     AlertLabel = "SOFT"
	AlertMedium   AlertLabel = "MEDIUM"
	AlertCritical AlertLabel = "CRITICAL"
)

// AlertTier is the pricing/response bucket derived from the alert label.
// Derived once, immutable.
type AlertTier string

const (
	TierDismissed   AlertTier = "DISMISSED"
	TierShield      AlertTier = "SHIELD"
	TierFullDefense AlertTier = "FULL_DEFENSE"
)

// Tier prices in EUR.
const (
	PriceDismissed   = 99.0
	PriceShield      = 649.0
	PriceFullDefense = 1999.0
)

// TierForLabel maps a provider alert label to its tier. Unknown labels are
// treated as MEDIUM so a malformed classification never silences a crisis.
func TierForLabel(label AlertLabel) AlertTier {
	switch label {
	case AlertIgnore, AlertSoft:
		return TierDismissed
	case AlertCritical:
		return TierFullDefense
	default:
		return TierShield
	}
}

// Price returns the fixed price for a tier.
func (t AlertTier) Price() float64 {
	switch t {
	case TierDismissed:
		return PriceDismissed
	case TierFullDefense:
		return PriceFullDefense
	default:
		return PriceShield
	}
}

// Strategy is one of the response options the strategist proposes.
type Strategy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RiskLevel   string `json:"risk_level"`
}

// StrategyReport is the Strategy Synthesis stage output.
type StrategyReport struct {
	AlertLabel              AlertLabel        `json:"alert_label"`
	AlertTier               AlertTier         `json:"alert_tier"`
	RecommendedActionName   string            `json:"recommended_action_name"`
	Strategies              []Strategy        `json:"strategies"`
	RecommendedStrategyName string            `json:"recommended_strategy_name"`
	Drafts                  map[string]string `json:"drafts"`
}

// Successful reports whether the synthesis produced a billable outcome:
// a named recommended strategy and at least two non-empty drafts.
func (r *StrategyReport) Successful() bool {
	if r == nil || r.RecommendedStrategyName == "" {
		return false
	}
	drafts := 0
	for _, d := range r.Drafts {
		if d != "" {
			drafts++
		}
	}
	return drafts >= 2
}
