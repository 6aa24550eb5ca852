package providers

// Token pricing in EUR per 1k tokens. Every provider call reports its euro
// cost from these so the Invoice Builder only ever sums literal costs.
const (
	InputPricePer1K  = 0.003
	OutputPricePer1K = 0.015
)

// ComputeCost converts token usage to euro cost.
func ComputeCost(tokensIn, tokensOut int) float64 {
	return float64(tokensIn)/1000*InputPricePer1K + float64(tokensOut)/1000*OutputPricePer1K
}
