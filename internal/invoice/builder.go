package invoice

import (
	"fmt"
	"math"

	"github.com/ternarybob/aegis/internal/models"
)

// Human-equivalent consulting rates in EUR. These price what a
// traditional agency would charge for the same deliverables; they never
// enter the billed tier price.
const (
	ConsultingHourRate = 150.0
	HoursPerCase       = 3
	BaseAuditFee       = 500.0
	AuditRiskPercent   = 0.0001
	CrisisStrategyFee  = 2500.0
)

// Inputs carries everything the invoice depends on. Costs are the
// literal per-stage sums reported upstream; the builder never estimates
// spend on its own.
type Inputs struct {
	Tier             models.AlertTier
	CaseCount        int
	TotalValueAtRisk float64

	PrecedentCost float64
	RiskCost      float64
	StrategyCost  float64
}

// Build constructs the invoice for a completed run. Pure and
// deterministic: same inputs, same invoice.
func Build(in Inputs) *models.Invoice {
	tierPrice := in.Tier.Price()
	totalAPI := round4(in.PrecedentCost + in.RiskCost + in.StrategyCost)

	if in.Tier == models.TierDismissed {
		return &models.Invoice{
			TierName:             string(in.Tier),
			TierPrice:            tierPrice,
			LineItems:            []models.InvoiceLineItem{},
			TotalHumanEquivalent: tierPrice,
			TotalAPICost:         totalAPI,
			TierMarginPercent:    0,
			ROIMultiplier:        0,
			Summary: fmt.Sprintf(
				"Threat dismissed at the %s tier (EUR %.0f). Full monitoring and analysis delivered without active defense.",
				in.Tier, tierPrice),
			ActionRefused: true,
			RefusalReason: "The situation is too minor to warrant an active crisis response.",
		}
	}

	researchValue := round2(float64(in.CaseCount) * HoursPerCase * ConsultingHourRate)
	riskValue := round2(BaseAuditFee + in.TotalValueAtRisk*AuditRiskPercent)
	strategyValue := CrisisStrategyFee
	totalValue := round2(researchValue + riskValue + strategyValue)

	items := []models.InvoiceLineItem{
		{
			AgentName:            "Historical Strategist",
			Event:                "historical_precedents_extracted",
			HumanEquivalentValue: researchValue,
			APICost:              round4(in.PrecedentCost),
			MarginPercent:        marginPercent(researchValue, in.PrecedentCost),
			Detail:               fmt.Sprintf("%d cases x %dh x EUR %.0f/h", in.CaseCount, HoursPerCase, ConsultingHourRate),
		},
		{
			AgentName:            "Risk Analyst",
			Event:                "risk_assessment_completed",
			HumanEquivalentValue: riskValue,
			APICost:              round4(in.RiskCost),
			MarginPercent:        marginPercent(riskValue, in.RiskCost),
			Detail:               fmt.Sprintf("EUR %.0f base audit + %.2f%% of EUR %.0f VaR", BaseAuditFee, AuditRiskPercent*100, in.TotalValueAtRisk),
		},
		{
			AgentName:            "Executive Strategist",
			Event:                "crisis_strategy_delivered",
			HumanEquivalentValue: strategyValue,
			APICost:              round4(in.StrategyCost),
			MarginPercent:        marginPercent(strategyValue, in.StrategyCost),
			Detail:               "Full crisis mitigation plan with communication drafts",
		},
	}

	tierMargin := 0.0
	if tierPrice > 0 {
		tierMargin = round2((tierPrice - totalAPI) / tierPrice * 100)
	}
	roi := 0.0
	if totalAPI > 0 {
		roi = round1(totalValue / totalAPI)
	}

	return &models.Invoice{
		TierName:             string(in.Tier),
		TierPrice:            tierPrice,
		LineItems:            items,
		TotalHumanEquivalent: totalValue,
		TotalAPICost:         totalAPI,
		TierMarginPercent:    tierMargin,
		ROIMultiplier:        roi,
		Summary: fmt.Sprintf(
			"%s tier: EUR %.0f. A traditional agency would charge EUR %.0f for the same deliverables.",
			in.Tier, tierPrice, totalValue),
	}
}

func marginPercent(value, cost float64) float64 {
	if value <= 0 {
		return 0
	}
	return round2((value - cost) / value * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
