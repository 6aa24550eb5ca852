package precedent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/aegis/internal/providers"
	"github.com/ternarybob/arbor"
)

// Confidence thresholds derived from how well-sourced the grounded
// answer is. Confidence is never higher than the weaker of the
// provider's self-assessment and what the source volume supports.
const (
	highSourceCount  = 10
	highContentChars = 10000
	medSourceCount   = 4
	medContentChars  = 3000
)

// Result carries the precedent research output and the stage's spend.
type Result struct {
	Research models.PrecedentResearch
	Cost     float64
	Degraded bool
}

// Service researches historical crises comparable to the current one
// using a grounded (web-search backed) provider call.
type Service struct {
	provider interfaces.AnalysisProvider
	logger   arbor.ILogger
}

func NewService(provider interfaces.AnalysisProvider, logger arbor.ILogger) *Service {
	return &Service{provider: provider, logger: logger}
}

// researchPayload is the structured body requested from the provider.
type researchPayload struct {
	Cases []struct {
		Company         string `json:"company"`
		Year            int    `json:"year"`
		CrisisSummary   string `json:"crisis_summary"`
		StrategyAdopted string `json:"strategy_adopted"`
		Outcome         string `json:"outcome"`
		SuccessScore    int    `json:"success_score"`
		SourceURL       string `json:"source_url"`
	} `json:"cases"`
	Lesson     string `json:"lesson"`
	Confidence string `json:"confidence"`
}

var researchSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"cases": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"company":          map[string]interface{}{"type": "string"},
					"year":             map[string]interface{}{"type": "integer"},
					"crisis_summary":   map[string]interface{}{"type": "string"},
					"strategy_adopted": map[string]interface{}{"type": "string", "description": "how the company responded"},
					"outcome":          map[string]interface{}{"type": "string", "description": "what happened to reputation and revenue"},
					"success_score":    map[string]interface{}{"type": "integer", "description": "1-10, how well the response worked"},
					"source_url":       map[string]interface{}{"type": "string"},
				},
				"required": []string{"company", "year", "crisis_summary", "strategy_adopted", "outcome", "success_score"},
			},
		},
		"lesson":     map[string]interface{}{"type": "string", "description": "the transferable lesson for the current crisis"},
		"confidence": map[string]interface{}{"type": "string", "enum": []string{"low", "medium", "high"}},
	},
	"required": []string{"cases", "lesson", "confidence"},
}

// Research looks for historical cases resembling the lead signal. It
// never fails the run: on provider or parse failure it returns the
// no-precedent fallback at low confidence and marks the result degraded.
func (s *Service) Research(ctx context.Context, company string, signals []models.Signal) (*Result, error) {
	if len(signals) == 0 {
		return &Result{Research: fallbackResearch(), Degraded: true}, nil
	}

	lead := signals[0]
	prompt := buildPrompt(company, lead, signals)

	if s.provider == nil {
		s.logger.Warn().Msg("No research provider configured, using fallback precedent")
		return &Result{Research: fallbackResearch(), Degraded: true}, nil
	}

	resp, err := s.provider.Invoke(ctx, &interfaces.AnalysisRequest{
		SystemInstruction: "You are a corporate crisis historian. Cite only real, verifiable incidents.",
		Prompt:            prompt,
		OutputSchema:      researchSchema,
		Grounded:          true,
		Temperature:       0.3,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Precedent research call failed, using fallback")
		return &Result{Research: fallbackResearch(), Degraded: true}, nil
	}

	var payload researchPayload
	if err := providers.ParseStructured(resp.Text, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Precedent research returned malformed payload, using fallback")
		return &Result{Research: fallbackResearch(), Cost: resp.Cost, Degraded: true}, nil
	}

	research := models.PrecedentResearch{
		Lesson:     strings.TrimSpace(payload.Lesson),
		Confidence: resolveConfidence(payload.Confidence, resp),
	}
	for _, c := range payload.Cases {
		if strings.TrimSpace(c.Company) == "" {
			continue
		}
		score := c.SuccessScore
		if score < 1 {
			score = 1
		} else if score > 10 {
			score = 10
		}
		research.Cases = append(research.Cases, models.PrecedentCase{
			Company:         strings.TrimSpace(c.Company),
			Year:            c.Year,
			CrisisSummary:   strings.TrimSpace(c.CrisisSummary),
			StrategyAdopted: strings.TrimSpace(c.StrategyAdopted),
			Outcome:         strings.TrimSpace(c.Outcome),
			SuccessScore:    score,
			SourceURL:       strings.TrimSpace(c.SourceURL),
		})
	}
	if len(research.Cases) == 0 {
		research.Lesson = models.NoPrecedentLesson
		research.Confidence = models.ConfidenceLow
	}
	if research.Lesson == "" {
		research.Lesson = models.NoPrecedentLesson
	}

	s.logger.Info().
		Int("case_count", len(research.Cases)).
		Str("confidence", string(research.Confidence)).
		Int("source_count", len(resp.Sources)).
		Msg("Precedent research complete")

	return &Result{Research: research, Cost: resp.Cost}, nil
}

func buildPrompt(company string, lead models.Signal, signals []models.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company %s is facing a crisis: %s\n\n", company, lead.Title)
	if lead.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", lead.Summary)
	}
	if len(signals) > 1 {
		b.WriteString("Related headlines:\n")
		for _, sig := range signals[1:] {
			fmt.Fprintf(&b, "- %s\n", sig.Title)
		}
		b.WriteString("\n")
	}
	b.WriteString("Find 2-4 historical incidents at OTHER companies that closely resemble this situation. " +
		"For each, describe the scenario, how the company responded, and the outcome. " +
		"Then extract the single most transferable lesson.")
	return b.String()
}

// resolveConfidence caps the provider's self-assessed confidence by what
// the grounding sources actually support.
func resolveConfidence(declared string, resp *interfaces.AnalysisResponse) models.ConfidenceLevel {
	return minConfidence(parseConfidence(declared), sourceConfidence(resp))
}

func parseConfidence(v string) models.ConfidenceLevel {
	switch models.ConfidenceLevel(strings.ToLower(strings.TrimSpace(v))) {
	case models.ConfidenceHigh:
		return models.ConfidenceHigh
	case models.ConfidenceMedium:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// sourceConfidence rates the grounding evidence by source count and
// total cited content volume. Providers that report source locations
// without cited text are measured by the answer length instead.
func sourceConfidence(resp *interfaces.AnalysisResponse) models.ConfidenceLevel {
	count := len(resp.Sources)
	chars := 0
	for _, src := range resp.Sources {
		chars += len(src.Content)
	}
	if chars == 0 {
		chars = len(resp.Text)
	}
	switch {
	case count >= highSourceCount && chars >= highContentChars:
		return models.ConfidenceHigh
	case count >= medSourceCount && chars >= medContentChars:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func confidenceRank(c models.ConfidenceLevel) int {
	switch c {
	case models.ConfidenceHigh:
		return 2
	case models.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

func minConfidence(a, b models.ConfidenceLevel) models.ConfidenceLevel {
	if confidenceRank(a) <= confidenceRank(b) {
		return a
	}
	return b
}

func fallbackResearch() models.PrecedentResearch {
	return models.PrecedentResearch{
		Cases:      []models.PrecedentCase{},
		Lesson:     models.NoPrecedentLesson,
		Confidence: models.ConfidenceLow,
	}
}
