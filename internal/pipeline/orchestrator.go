package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/ingestion"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/invoice"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/aegis/internal/precedent"
	"github.com/ternarybob/aegis/internal/risk"
	"github.com/ternarybob/aegis/internal/strategy"
	"github.com/ternarybob/arbor"
)

// eventBuffer sizes the progress channel so a slow or gone consumer
// never blocks the run; events past the buffer are dropped, the work
// itself always completes.
const eventBuffer = 16

// Orchestrator owns the stage graph:
//
//	Ingestion -> {Precedent Research || Risk Quantifier} -> Strategy Synthesis -> Invoice Builder
//
// It is the only component that mutates run bookkeeping; stages receive
// immutable snapshots of upstream output.
type Orchestrator struct {
	ingestion *ingestion.Service
	precedent *precedent.Service
	risk      *risk.Service
	strategy  *strategy.Service
	repo      interfaces.RunRepository
	logger    arbor.ILogger
}

func NewOrchestrator(
	ing *ingestion.Service,
	prec *precedent.Service,
	rk *risk.Service,
	strat *strategy.Service,
	repo interfaces.RunRepository,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		ingestion: ing,
		precedent: prec,
		risk:      rk,
		strategy:  strat,
		repo:      repo,
		logger:    logger,
	}
}

// Run executes the pipeline for a company and streams progress events.
// Step events arrive in fixed order, then exactly one terminal event
// carrying the report (or the fatal error plus the partial report). The
// channel is closed after the terminal event. Consumers may stop reading
// at any point; the run completes regardless.
func (o *Orchestrator) Run(ctx context.Context, companyName string) <-chan interfaces.ProgressEvent {
	events := make(chan interfaces.ProgressEvent, eventBuffer)
	go func() {
		defer close(events)
		o.execute(ctx, companyName, events)
	}()
	return events
}

// RunAndWait executes the pipeline and blocks until the terminal event.
func (o *Orchestrator) RunAndWait(ctx context.Context, companyName string) (*models.CrisisReport, error) {
	var report *models.CrisisReport
	var runErr error
	for ev := range o.Run(ctx, companyName) {
		if ev.Terminal {
			report = ev.Result
			runErr = ev.Err
		}
	}
	return report, runErr
}

func (o *Orchestrator) execute(ctx context.Context, companyName string, events chan<- interfaces.ProgressEvent) {
	run := models.NewPipelineRun(common.NewCrisisID(), common.DeriveCustomerID(companyName), companyName)
	o.logger.Info().
		Str("crisis_id", run.CrisisID).
		Str("company", companyName).
		Msg("Pipeline run started")

	emit(events, interfaces.StepIngestionStart)

	// Stage 1: ingestion. The only stage allowed to end the run early.
	run.StageStatus[models.StageIngestion] = models.StageRunning
	emit(events, interfaces.StepScan)

	ingested, err := o.ingestion.Ingest(ctx, companyName)
	if err != nil {
		var fatal *interfaces.FatalRunError
		if !errors.As(err, &fatal) {
			fatal = &interfaces.FatalRunError{Stage: string(models.StageIngestion), Err: err}
		}
		run.StageStatus[models.StageIngestion] = models.StageFailed
		report := o.finalize(ctx, run, nil, fatal)
		emitTerminal(events, report, fatal)
		return
	}
	run.AddCost(models.StageIngestion, ingested.Cost)
	run.StageStatus[models.StageIngestion] = models.StageComplete
	if ingested.Degraded {
		run.StageStatus[models.StageIngestion] = models.StageDegraded
	}

	emit(events, interfaces.StepAnalyze)

	// Stage 2 || 3: precedent research and risk quantification run
	// concurrently on separate provider credentials. Strict join: both
	// must finish before synthesis sees either output.
	run.StageStatus[models.StagePrecedent] = models.StageRunning
	run.StageStatus[models.StageRisk] = models.StageRunning

	var wg sync.WaitGroup
	var precedentRes *precedent.Result
	var riskRes *risk.Result

	wg.Add(2)
	go func() {
		defer wg.Done()
		precedentRes, _ = o.precedent.Research(ctx, companyName, ingested.Signals)
	}()
	go func() {
		defer wg.Done()
		riskRes, _ = o.risk.Quantify(ctx, ingested.Signals)
	}()
	wg.Wait()

	run.AddCost(models.StagePrecedent, precedentRes.Cost)
	run.StageStatus[models.StagePrecedent] = stageOutcome(precedentRes.Degraded)
	emit(events, interfaces.StepCrossReference)

	run.AddCost(models.StageRisk, riskRes.Cost)
	run.StageStatus[models.StageRisk] = stageOutcome(riskRes.Degraded)
	emit(events, interfaces.StepEvaluate)

	// Stage 4: strategy synthesis. Failure degrades to an empty report;
	// the run still reaches billing.
	run.StageStatus[models.StageStrategy] = models.StageRunning
	strategyRes, _ := o.strategy.Synthesize(ctx, companyName, riskRes.Signals, riskRes.Portfolio, precedentRes.Research)
	run.AddCost(models.StageStrategy, strategyRes.Cost)
	run.StageStatus[models.StageStrategy] = stageOutcome(strategyRes.Degraded)

	emit(events, interfaces.StepCompile)

	// Stage 5: invoice. Pure computation over accumulated stage costs.
	run.StageStatus[models.StageInvoice] = models.StageRunning
	tier := strategyRes.Report.AlertTier
	if len(ingested.Signals) == 0 {
		tier = models.TierDismissed
	}
	bill := invoice.Build(invoice.Inputs{
		Tier:             tier,
		CaseCount:        len(precedentRes.Research.Cases),
		TotalValueAtRisk: riskRes.Portfolio.TotalValueAtRisk,
		PrecedentCost:    run.StageCost[models.StagePrecedent],
		RiskCost:         run.StageCost[models.StageRisk],
		StrategyCost:     run.StageCost[models.StageStrategy],
	})
	run.StageStatus[models.StageInvoice] = models.StageComplete

	report := o.finalize(ctx, run, &stageOutputs{
		signals:     riskRes.Signals,
		topicGroups: ingested.TopicGroups,
		portfolio:   riskRes.Portfolio,
		research:    &precedentRes.Research,
		strategy:    &strategyRes.Report,
		invoice:     bill,
	}, nil)

	o.logger.Info().
		Str("crisis_id", run.CrisisID).
		Str("tier", string(tier)).
		Float64("total_cost", run.TotalCost()).
		Msg("Pipeline run complete")

	emitTerminal(events, report, nil)
}

// stageOutputs bundles everything a completed run contributes to the report.
type stageOutputs struct {
	signals     []models.Signal
	topicGroups []models.TopicGroup
	portfolio   models.PortfolioRisk
	research    *models.PrecedentResearch
	strategy    *models.StrategyReport
	invoice     *models.Invoice
}

// finalize assembles the report and persists it. Persistence failure is
// logged, never fatal: the report is still returned to the caller.
func (o *Orchestrator) finalize(ctx context.Context, run *models.PipelineRun, out *stageOutputs, fatal *interfaces.FatalRunError) *models.CrisisReport {
	report := &models.CrisisReport{
		CrisisID:    run.CrisisID,
		CustomerID:  run.CustomerID,
		CompanyName: run.CompanyName,
		StageStatus: run.StageStatus,
		StageCost:   run.StageCost,
		TotalCost:   run.TotalCost(),
		CreatedAt:   run.StartedAt,
		CompletedAt: time.Now(),
	}
	if out != nil {
		report.Signals = out.signals
		report.TopicGroups = out.topicGroups
		report.Risk = out.portfolio
		report.Precedents = out.research
		report.Strategy = out.strategy
		report.Invoice = out.invoice
	}
	if fatal != nil {
		report.Incomplete = true
		report.Error = fatal.Error()
	}

	if o.repo != nil {
		if err := o.repo.Put(ctx, report); err != nil {
			o.logger.Warn().Err(err).Str("crisis_id", report.CrisisID).Msg("Failed to persist crisis report")
		}
	}
	return report
}

func stageOutcome(degraded bool) models.StageStatus {
	if degraded {
		return models.StageDegraded
	}
	return models.StageComplete
}

// emit delivers a step event without ever blocking. A consumer that has
// stopped reading simply misses later events.
func emit(events chan<- interfaces.ProgressEvent, step interfaces.StepID) {
	select {
	case events <- interfaces.ProgressEvent{Step: step, Timestamp: time.Now()}:
	default:
	}
}

func emitTerminal(events chan<- interfaces.ProgressEvent, report *models.CrisisReport, err error) {
	select {
	case events <- interfaces.ProgressEvent{Timestamp: time.Now(), Terminal: true, Result: report, Err: err}:
	default:
	}
}
