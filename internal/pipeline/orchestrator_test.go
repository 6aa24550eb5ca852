package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/ingestion"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/aegis/internal/precedent"
	"github.com/ternarybob/aegis/internal/risk"
	"github.com/ternarybob/aegis/internal/storage/memory"
	"github.com/ternarybob/aegis/internal/strategy"
	"github.com/ternarybob/arbor"
)

type stubSearch struct {
	results []interfaces.SearchResult
	err     error
}

func (s *stubSearch) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	return s.results, s.err
}

// cannedProvider returns a fixed JSON body for every call.
type cannedProvider struct {
	body string
	err  error
}

func (p *cannedProvider) Invoke(ctx context.Context, req *interfaces.AnalysisRequest) (*interfaces.AnalysisResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &interfaces.AnalysisResponse{Text: p.body, Cost: 0.01}, nil
}

func (p *cannedProvider) Close() error { return nil }

func testConfig() *common.Config {
	config := common.DefaultConfig()
	config.Pipeline.WorkerCount = 2
	return config
}

func healthySearch() *stubSearch {
	published := time.Now().Add(-24 * time.Hour)
	return &stubSearch{results: []interfaces.SearchResult{
		{Title: "Acme Corp hit by data breach", URL: "https://example.com/a", Content: "breach", PublishedAt: &published},
		{Title: "Acme Corp faces regulator scrutiny", URL: "https://example.com/b", Content: "probe", PublishedAt: &published},
	}}
}

func buildOrchestrator(search interfaces.SearchProvider, ingestP, researchP, riskP, strategyP interfaces.AnalysisProvider, repo interfaces.RunRepository) *Orchestrator {
	logger := arbor.NewLogger()
	config := testConfig()
	return NewOrchestrator(
		ingestion.NewService(search, ingestP, config, logger),
		precedent.NewService(researchP, logger),
		risk.NewService(riskP, config.Pipeline.WorkerCount, logger),
		strategy.NewService(strategyP, logger),
		repo,
		logger,
	)
}

const ratingBody = `{"is_substantive": true, "summary": "Serious incident.", "subject_category": "security_fraud", "sentiment": "negative", "authority_rating": 4, "severity_rating": 4}`
const researchBody = `{"cases": [{"company": "Globex", "year": 2019, "crisis_summary": "leak", "strategy_adopted": "disclosure", "outcome": "recovered", "success_score": 8, "source_url": "https://example.com"}], "lesson": "Disclose early.", "confidence": "medium"}`
const riskBody = `{"topic": "security_fraud", "viral_coefficient": 1.5}`
const strategyBody = `{"alert_label": "CRITICAL", "recommended_action_name": "Respond now", "strategies": [{"name": "Full disclosure", "description": "d", "risk_level": "medium"}, {"name": "Hold", "description": "d", "risk_level": "high"}, {"name": "Counter", "description": "d", "risk_level": "high"}], "recommended_strategy_name": "Full disclosure", "drafts": {"press_statement": "p", "internal_memo": "m"}}`

func TestRunHappyPath(t *testing.T) {
	repo := memory.NewReportStorage()
	o := buildOrchestrator(
		healthySearch(),
		&cannedProvider{body: ratingBody},
		&cannedProvider{body: researchBody},
		&cannedProvider{body: riskBody},
		&cannedProvider{body: strategyBody},
		repo,
	)

	var steps []interfaces.StepID
	var terminal *interfaces.ProgressEvent
	for ev := range o.Run(context.Background(), "Acme Corp") {
		if ev.Terminal {
			ev := ev
			terminal = &ev
			continue
		}
		steps = append(steps, ev.Step)
	}

	assert.Equal(t, []interfaces.StepID{
		interfaces.StepIngestionStart,
		interfaces.StepScan,
		interfaces.StepAnalyze,
		interfaces.StepCrossReference,
		interfaces.StepEvaluate,
		interfaces.StepCompile,
	}, steps)

	require.NotNil(t, terminal)
	require.NoError(t, terminal.Err)
	report := terminal.Result
	require.NotNil(t, report)

	assert.False(t, report.Incomplete)
	assert.Len(t, report.Signals, 2)
	require.NotNil(t, report.Strategy)
	assert.Equal(t, models.TierFullDefense, report.Strategy.AlertTier)
	require.NotNil(t, report.Invoice)
	assert.False(t, report.Invoice.ActionRefused)
	assert.Equal(t, models.PriceFullDefense, report.Invoice.TierPrice)
	assert.Greater(t, report.Risk.TotalValueAtRisk, 0.0)
	assert.Equal(t, 4, report.Risk.MaxSeverity)

	// Costs: 2 rating calls + 1 research + 2 risk + 1 strategy at 0.01 each.
	assert.InDelta(t, 0.06, report.TotalCost, 1e-9)
	assert.InDelta(t, report.StageCost[models.StagePrecedent]+report.StageCost[models.StageRisk]+report.StageCost[models.StageStrategy],
		report.Invoice.TotalAPICost, 1e-9)

	for _, stage := range []models.Stage{models.StageIngestion, models.StagePrecedent, models.StageRisk, models.StageStrategy, models.StageInvoice} {
		assert.Equal(t, models.StageComplete, report.StageStatus[stage], "stage %s", stage)
	}

	// Report persisted under its crisis ID.
	stored, err := repo.Get(context.Background(), report.CrisisID)
	require.NoError(t, err)
	assert.Equal(t, report.CrisisID, stored.CrisisID)
}

func TestRunSearchFailureTerminatesEarly(t *testing.T) {
	repo := memory.NewReportStorage()
	o := buildOrchestrator(
		&stubSearch{err: errors.New("dns failure")},
		&cannedProvider{body: ratingBody},
		&cannedProvider{body: researchBody},
		&cannedProvider{body: riskBody},
		&cannedProvider{body: strategyBody},
		repo,
	)

	report, err := o.RunAndWait(context.Background(), "Acme Corp")
	require.Error(t, err)

	var fatal *interfaces.FatalRunError
	require.True(t, errors.As(err, &fatal))

	require.NotNil(t, report)
	assert.True(t, report.Incomplete)
	assert.NotEmpty(t, report.Error)
	assert.Nil(t, report.Invoice)
	assert.Equal(t, models.StageFailed, report.StageStatus[models.StageIngestion])
	assert.Equal(t, models.StagePending, report.StageStatus[models.StageInvoice])

	// The partial report is still persisted.
	stored, getErr := repo.Get(context.Background(), report.CrisisID)
	require.NoError(t, getErr)
	assert.True(t, stored.Incomplete)
}

func TestRunProviderOutageStillCompletes(t *testing.T) {
	outage := errors.New("all provider calls fail")
	repo := memory.NewReportStorage()
	o := buildOrchestrator(
		healthySearch(),
		&cannedProvider{err: outage},
		&cannedProvider{err: outage},
		&cannedProvider{err: outage},
		&cannedProvider{err: outage},
		repo,
	)

	report, err := o.RunAndWait(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.False(t, report.Incomplete)

	// Neutral fallback ratings keep the run fed.
	require.Len(t, report.Signals, 2)
	for _, sig := range report.Signals {
		assert.Equal(t, ingestion.FallbackAuthority, sig.AuthorityRating)
		assert.Equal(t, ingestion.FallbackSeverity, sig.SeverityRating)
		assert.Equal(t, risk.FallbackViralCoefficient, sig.ViralCoefficient)
	}

	require.NotNil(t, report.Precedents)
	assert.Equal(t, models.ConfidenceLow, report.Precedents.Confidence)

	// Strategy degraded to an empty report; billing still runs.
	require.NotNil(t, report.Invoice)

	for _, stage := range []models.Stage{models.StageIngestion, models.StagePrecedent, models.StageRisk, models.StageStrategy} {
		assert.Equal(t, models.StageDegraded, report.StageStatus[stage], "stage %s", stage)
	}
	assert.Equal(t, models.StageComplete, report.StageStatus[models.StageInvoice])
}

func TestRunZeroSignalsProducesDismissedInvoice(t *testing.T) {
	// Search returns results, but none reference the company, so the
	// pre-filter leaves zero candidates. That is a legal empty run.
	search := &stubSearch{results: []interfaces.SearchResult{
		{Title: "Completely unrelated story", URL: "https://example.com/x"},
	}}
	o := buildOrchestrator(
		search,
		&cannedProvider{body: ratingBody},
		&cannedProvider{body: researchBody},
		&cannedProvider{body: riskBody},
		&cannedProvider{body: strategyBody},
		memory.NewReportStorage(),
	)

	report, err := o.RunAndWait(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Empty(t, report.Signals)
	assert.Empty(t, report.TopicGroups)
	assert.Zero(t, report.Risk.TotalValueAtRisk)
	assert.Zero(t, report.Risk.MaxSeverity)

	require.NotNil(t, report.Invoice)
	assert.True(t, report.Invoice.ActionRefused)
	assert.Equal(t, models.PriceDismissed, report.Invoice.TierPrice)
}

func TestRunConsumerMayDisconnect(t *testing.T) {
	o := buildOrchestrator(
		healthySearch(),
		&cannedProvider{body: ratingBody},
		&cannedProvider{body: researchBody},
		&cannedProvider{body: riskBody},
		&cannedProvider{body: strategyBody},
		memory.NewReportStorage(),
	)

	events := o.Run(context.Background(), "Acme Corp")
	// Read one event, then walk away. The run must finish and close the
	// channel on its own.
	<-events

	deadline := time.After(10 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("run did not finish after consumer stopped reading promptly")
		}
	}
}
