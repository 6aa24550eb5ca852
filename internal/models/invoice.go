package models

// InvoiceLineItem is one per-stage row of the invoice.
type InvoiceLineItem struct {
	AgentName            string  `json:"agent_name"`
	Event                string  `json:"event"`
	HumanEquivalentValue float64 `json:"human_equivalent_value_eur"`
	APICost              float64 `json:"api_cost_eur"`
	MarginPercent        float64 `json:"margin_percent"`
	Detail               string  `json:"detail"`
}

// Invoice is the tiered billing summary for one run. Built once at the end
// of a run from accumulated per-stage costs; never mutated afterward.
type Invoice struct {
	TierName             string            `json:"tier_name"`
	TierPrice            float64           `json:"tier_price_eur"`
	LineItems            []InvoiceLineItem `json:"line_items"`
	TotalHumanEquivalent float64           `json:"total_human_equivalent_eur"`
	TotalAPICost         float64           `json:"total_api_cost_eur"`
	TierMarginPercent    float64           `json:"tier_margin_percent"`
	ROIMultiplier        float64           `json:"roi_multiplier"`
	Summary              string            `json:"summary"`
	ActionRefused        bool              `json:"action_refused"`
	RefusalReason        string            `json:"refusal_reason,omitempty"`
}
