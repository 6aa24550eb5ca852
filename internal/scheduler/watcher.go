package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/pipeline"
	"github.com/ternarybob/arbor"
)

// Watcher runs the pipeline on a cron schedule for a fixed list of
// companies. One run per company per tick; a company still in flight
// from the previous tick is skipped, never doubled up.
type Watcher struct {
	orchestrator *pipeline.Orchestrator
	config       *common.WatchConfig
	logger       arbor.ILogger
	cron         *cron.Cron

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewWatcher(orchestrator *pipeline.Orchestrator, config *common.WatchConfig, logger arbor.ILogger) *Watcher {
	return &Watcher{
		orchestrator: orchestrator,
		config:       config,
		logger:       logger,
		cron:         cron.New(),
		inFlight:     make(map[string]bool),
	}
}

// Start registers the schedule and begins ticking. The default schedule
// checks every 6 hours.
func (w *Watcher) Start(ctx context.Context) error {
	schedule := w.config.Schedule
	if schedule == "" {
		schedule = "0 */6 * * *"
	}
	if len(w.config.Companies) == 0 {
		return fmt.Errorf("watch mode requires at least one company")
	}

	_, err := w.cron.AddFunc(schedule, func() { w.tick(ctx) })
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}

	w.cron.Start()
	w.logger.Info().
		Str("schedule", schedule).
		Int("companies", len(w.config.Companies)).
		Msg("Watch mode started")
	return nil
}

// Stop halts the schedule and waits for running entries to finish.
func (w *Watcher) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info().Msg("Watch mode stopped")
}

func (w *Watcher) tick(ctx context.Context) {
	for _, company := range w.config.Companies {
		company := company
		if !w.claim(company) {
			w.logger.Warn().Str("company", company).Msg("Previous watch run still in flight, skipping")
			continue
		}
		go func() {
			defer w.release(company)
			report, err := w.orchestrator.RunAndWait(ctx, company)
			if err != nil {
				w.logger.Error().Err(err).Str("company", company).Msg("Watch run failed")
				return
			}
			tier := ""
			if report.Invoice != nil {
				tier = report.Invoice.TierName
			}
			w.logger.Info().
				Str("company", company).
				Str("crisis_id", report.CrisisID).
				Str("tier", tier).
				Msg("Watch run complete")
		}()
	}
}

func (w *Watcher) claim(company string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[company] {
		return false
	}
	w.inFlight[company] = true
	return true
}

func (w *Watcher) release(company string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, company)
}
