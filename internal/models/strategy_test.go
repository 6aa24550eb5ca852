package models

import "testing"

func TestTierForLabel(t *testing.T) {
	tests := []struct {
		label    AlertLabel
		expected AlertTier
	}{
		{AlertIgnore, TierDismissed},
		{AlertSoft, TierDismissed},
		{AlertMedium, TierShield},
		{AlertCritical, TierFullDefense},
		{AlertLabel(""), TierShield},
		{AlertLabel("WEIRD"), TierShield},
	}
	for _, tt := range tests {
		if got := TierForLabel(tt.label); got != tt.expected {
			t.Errorf("TierForLabel(%q) = %q, want %q", tt.label, got, tt.expected)
		}
	}
}

func TestTierPrice(t *testing.T) {
	if TierDismissed.Price() != PriceDismissed {
		t.Errorf("dismissed price = %v", TierDismissed.Price())
	}
	if TierShield.Price() != PriceShield {
		t.Errorf("shield price = %v", TierShield.Price())
	}
	if TierFullDefense.Price() != PriceFullDefense {
		t.Errorf("full defense price = %v", TierFullDefense.Price())
	}
}

func TestStrategyReportSuccessful(t *testing.T) {
	tests := []struct {
		name     string
		report   *StrategyReport
		expected bool
	}{
		{
			name:     "nil report",
			report:   nil,
			expected: false,
		},
		{
			name:     "no recommended strategy",
			report:   &StrategyReport{Drafts: map[string]string{"a": "x", "b": "y"}},
			expected: false,
		},
		{
			name: "only one draft",
			report: &StrategyReport{
				RecommendedStrategyName: "Transparent apology",
				Drafts:                  map[string]string{"press_statement": "text"},
			},
			expected: false,
		},
		{
			name: "empty drafts do not count",
			report: &StrategyReport{
				RecommendedStrategyName: "Transparent apology",
				Drafts:                  map[string]string{"press_statement": "text", "internal_memo": ""},
			},
			expected: false,
		},
		{
			name: "two non-empty drafts",
			report: &StrategyReport{
				RecommendedStrategyName: "Transparent apology",
				Drafts:                  map[string]string{"press_statement": "text", "internal_memo": "memo"},
			},
			expected: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Successful(); got != tt.expected {
				t.Errorf("Successful() = %v, want %v", got, tt.expected)
			}
		})
	}
}
