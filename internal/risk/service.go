package risk

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/aegis/internal/providers"
	"github.com/ternarybob/aegis/internal/workers"
	"github.com/ternarybob/arbor"
)

// Result is the risk quantifier output: signals enriched with reach,
// churn-risk and VaR figures, the aggregated portfolio risk, and the
// stage's provider spend.
type Result struct {
	Signals   []models.Signal
	Portfolio models.PortfolioRisk
	Cost      float64
	Degraded  bool
}

// Service quantifies financial risk per signal and aggregates it. It runs
// on its own provider credential pool so precedent research, which runs
// concurrently, cannot starve it of quota.
type Service struct {
	provider    interfaces.AnalysisProvider
	workerCount int
	logger      arbor.ILogger
}

// NewService creates a risk quantifier. A nil provider is allowed; every
// signal then gets the fallback enrichment weights.
func NewService(provider interfaces.AnalysisProvider, workerCount int, logger arbor.ILogger) *Service {
	return &Service{
		provider:    provider,
		workerCount: workerCount,
		logger:      logger,
	}
}

// topicViral is the structured judgment requested per signal.
type topicViral struct {
	Topic            string  `json:"topic"`
	ViralCoefficient float64 `json:"viral_coefficient"`
}

var topicViralSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"topic": map[string]interface{}{"type": "string", "enum": []string{"security_fraud", "legal_compliance", "ethics_management", "labor_relations", "financial_performance", "operational_incident", "product_bug", "customer_service"}},
		"viral_coefficient": map[string]interface{}{
			"type":        "number",
			"description": "0.8 technical/boring, 1.2 simple factual, 1.5 outrage/privacy, 2.5 celebrity scandal or polarizing",
		},
	},
	"required": []string{"topic", "viral_coefficient"},
}

// Quantify enriches every signal and aggregates the portfolio risk.
// Enrichment calls fan out on a bounded pool; aggregation is a strict
// barrier after every enrichment has completed. A signal whose provider
// call fails still gets a degraded score so the portfolio figure is never
// silently understated by dropped signals. The input slice is not
// mutated; enriched copies are returned re-sorted by exposure score so
// the output ordering is reproducible regardless of worker timing.
func (s *Service) Quantify(ctx context.Context, signals []models.Signal) (*Result, error) {
	if len(signals) == 0 {
		return &Result{Signals: []models.Signal{}, Portfolio: models.PortfolioRisk{}}, nil
	}

	enriched := make([]models.Signal, len(signals))
	costs := make([]float64, len(signals))
	failures := make([]bool, len(signals))

	pool := workers.NewPool(ctx, s.workerCount, s.logger)
	pool.Start()

	for i := range signals {
		i := i
		sig := signals[i]
		if err := pool.Submit(func(taskCtx context.Context) error {
			out, cost, err := s.enrichSignal(taskCtx, sig)
			enriched[i] = out
			costs[i] = cost
			if err != nil {
				failures[i] = true
				return fmt.Errorf("enriching %q: %w", sig.Title, err)
			}
			return nil
		}); err != nil {
			enriched[i] = enrichWithWeights(sig, FallbackTopicWeight, FallbackViralCoefficient)
			failures[i] = true
		}
	}
	pool.Wait()

	totalCost := 0.0
	degraded := false
	for i := range signals {
		totalCost += costs[i]
		if failures[i] {
			degraded = true
		}
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		if enriched[i].ExposureScore != enriched[j].ExposureScore {
			return enriched[i].ExposureScore > enriched[j].ExposureScore
		}
		return enriched[i].DiscoveryIndex < enriched[j].DiscoveryIndex
	})

	portfolio := AggregatePortfolio(enriched)

	s.logger.Info().
		Int("signal_count", len(enriched)).
		Float64("total_var", portfolio.TotalValueAtRisk).
		Int("max_severity", portfolio.MaxSeverity).
		Msg("Risk quantification complete")

	return &Result{
		Signals:   enriched,
		Portfolio: portfolio,
		Cost:      totalCost,
		Degraded:  degraded,
	}, nil
}

// enrichSignal obtains (topicWeight, viralCoefficient) for one signal and
// computes its risk fields. On provider failure the fallback weights are
// applied and the error returned for degradation accounting.
func (s *Service) enrichSignal(ctx context.Context, sig models.Signal) (models.Signal, float64, error) {
	topicWeight := FallbackTopicWeight
	viral := FallbackViralCoefficient
	cost := 0.0

	var callErr error
	if s.provider == nil {
		callErr = interfaces.ErrNotConfigured
	} else {
		content := sig.RawContent
		if len(content) > 1500 {
			content = content[:1500]
		}

		resp, err := s.provider.Invoke(ctx, &interfaces.AnalysisRequest{
			SystemInstruction: "You are an expert in media risk analysis.",
			Prompt: fmt.Sprintf(
				"Classify the topic and shareability of this article.\n\nTitle: %s\nExcerpt: %s",
				sig.Title, content),
			OutputSchema: topicViralSchema,
			Temperature:  0.2,
		})
		if err != nil {
			callErr = err
		} else {
			cost = resp.Cost
			var tv topicViral
			if err := providers.ParseStructured(resp.Text, &tv); err != nil {
				callErr = err
			} else {
				topicWeight = TopicWeight(models.SubjectCategory(tv.Topic))
				viral = SnapViralCoefficient(tv.ViralCoefficient)
			}
		}
	}

	return enrichWithWeights(sig, topicWeight, viral), cost, callErr
}

// enrichWithWeights computes the derived risk fields on a copy of the
// signal. Derived fields are recomputed whole, never mutated in place.
func enrichWithWeights(sig models.Signal, topicWeight, viralCoefficient float64) models.Signal {
	reach := Reach(sig.AuthorityRating, sig.SeverityRating, viralCoefficient)

	out := sig
	out.TopicWeight = topicWeight
	out.ViralCoefficient = viralCoefficient
	out.ReachEstimate = reach
	out.ChurnRiskPercent = ChurnRiskPercent(sig.AuthorityRating)
	out.ValueAtRisk = ValueAtRisk(reach, sig.AuthorityRating, sig.SeverityRating, topicWeight)
	return out
}
