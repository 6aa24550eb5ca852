package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/aegis/internal/providers"
	"github.com/ternarybob/arbor"
)

// Result carries the synthesis output and the stage's spend. A failed
// synthesis yields an empty, non-successful report rather than an error:
// the pipeline still bills the work already done.
type Result struct {
	Report   models.StrategyReport
	Cost     float64
	Degraded bool
}

// Service turns the quantified risk picture and historical precedent
// into an alert classification, candidate strategies and ready-to-send
// communication drafts.
type Service struct {
	provider interfaces.AnalysisProvider
	logger   arbor.ILogger
}

func NewService(provider interfaces.AnalysisProvider, logger arbor.ILogger) *Service {
	return &Service{provider: provider, logger: logger}
}

type synthesisPayload struct {
	AlertLabel            string `json:"alert_label"`
	RecommendedActionName string `json:"recommended_action_name"`
	Strategies            []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		RiskLevel   string `json:"risk_level"`
	} `json:"strategies"`
	RecommendedStrategyName string            `json:"recommended_strategy_name"`
	Drafts                  map[string]string `json:"drafts"`
}

var synthesisSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"alert_label":             map[string]interface{}{"type": "string", "enum": []string{"IGNORE", "SOFT", "MEDIUM", "CRITICAL"}},
		"recommended_action_name": map[string]interface{}{"type": "string"},
		"strategies": map[string]interface{}{
			"type":        "array",
			"description": "exactly three options: one defensive, one neutral, one aggressive",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":        map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
					"risk_level":  map[string]interface{}{"type": "string", "enum": []string{"low", "medium", "high"}},
				},
				"required": []string{"name", "description", "risk_level"},
			},
		},
		"recommended_strategy_name": map[string]interface{}{"type": "string"},
		"drafts": map[string]interface{}{
			"type":        "object",
			"description": "channel name to ready-to-send text, at least press_statement and internal_memo",
			"properties": map[string]interface{}{
				"press_statement": map[string]interface{}{"type": "string"},
				"internal_memo":   map[string]interface{}{"type": "string"},
				"social_post":     map[string]interface{}{"type": "string"},
			},
		},
	},
	"required": []string{"alert_label", "recommended_action_name", "strategies", "recommended_strategy_name", "drafts"},
}

// Synthesize produces the strategy report. Provider or parse failure is
// absorbed: the returned report is empty and Successful() reports false,
// which downstream billing treats as refused work.
func (s *Service) Synthesize(ctx context.Context, company string, signals []models.Signal, portfolio models.PortfolioRisk, research models.PrecedentResearch) (*Result, error) {
	if s.provider == nil {
		s.logger.Warn().Msg("No strategy provider configured")
		return &Result{Report: emptyReport(), Degraded: true}, nil
	}

	resp, err := s.provider.Invoke(ctx, &interfaces.AnalysisRequest{
		SystemInstruction: "You are a senior crisis-communications strategist. Be concrete and decisive.",
		Prompt:            buildPrompt(company, signals, portfolio, research),
		OutputSchema:      synthesisSchema,
		Temperature:       0.4,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Strategy synthesis call failed")
		return &Result{Report: emptyReport(), Degraded: true}, nil
	}

	var payload synthesisPayload
	if err := providers.ParseStructured(resp.Text, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Strategy synthesis returned malformed payload")
		return &Result{Report: emptyReport(), Cost: resp.Cost, Degraded: true}, nil
	}

	label := models.AlertLabel(strings.ToUpper(strings.TrimSpace(payload.AlertLabel)))
	report := models.StrategyReport{
		AlertLabel:              label,
		AlertTier:               models.TierForLabel(label),
		RecommendedActionName:   strings.TrimSpace(payload.RecommendedActionName),
		RecommendedStrategyName: strings.TrimSpace(payload.RecommendedStrategyName),
		Drafts:                  map[string]string{},
	}
	for _, st := range payload.Strategies {
		report.Strategies = append(report.Strategies, models.Strategy{
			Name:        strings.TrimSpace(st.Name),
			Description: strings.TrimSpace(st.Description),
			RiskLevel:   strings.ToLower(strings.TrimSpace(st.RiskLevel)),
		})
	}
	for channel, text := range payload.Drafts {
		if strings.TrimSpace(text) != "" {
			report.Drafts[channel] = text
		}
	}

	s.logger.Info().
		Str("alert_label", string(report.AlertLabel)).
		Str("tier", string(report.AlertTier)).
		Int("strategy_count", len(report.Strategies)).
		Int("draft_count", len(report.Drafts)).
		Msg("Strategy synthesis complete")

	return &Result{Report: report, Cost: resp.Cost, Degraded: !report.Successful()}, nil
}

func buildPrompt(company string, signals []models.Signal, portfolio models.PortfolioRisk, research models.PrecedentResearch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company under crisis: %s\n\n", company)

	fmt.Fprintf(&b, "Financial exposure: EUR %.0f value at risk, max severity %d/5.\n\n",
		portfolio.TotalValueAtRisk, portfolio.MaxSeverity)

	b.WriteString("Signals (worst first):\n")
	for i, sig := range signals {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- [%s, severity %d] %s\n", sig.SubjectCategory, sig.SeverityRating, sig.Title)
	}
	b.WriteString("\n")

	if len(research.Cases) > 0 {
		fmt.Fprintf(&b, "Historical precedent (%s confidence): %s\n", research.Confidence, research.Lesson)
		for _, c := range research.Cases {
			fmt.Fprintf(&b, "- %s (%d): %s -> %s\n", c.Company, c.Year, c.StrategyAdopted, c.Outcome)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "No historical precedent was found. %s\n\n", research.Lesson)
	}

	b.WriteString("Classify the alert level, propose exactly three response strategies " +
		"(defensive, neutral, aggressive), pick one, and write ready-to-send drafts " +
		"for press_statement and internal_memo (social_post optional).")
	return b.String()
}

func emptyReport() models.StrategyReport {
	return models.StrategyReport{
		AlertTier: models.TierShield,
		Drafts:    map[string]string{},
	}
}
