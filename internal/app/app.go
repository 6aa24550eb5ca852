package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/ingestion"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/pipeline"
	"github.com/ternarybob/aegis/internal/precedent"
	"github.com/ternarybob/aegis/internal/providers"
	"github.com/ternarybob/aegis/internal/risk"
	"github.com/ternarybob/aegis/internal/scheduler"
	"github.com/ternarybob/aegis/internal/search"
	badgerstore "github.com/ternarybob/aegis/internal/storage/badger"
	memorystore "github.com/ternarybob/aegis/internal/storage/memory"
	"github.com/ternarybob/aegis/internal/strategy"
	"github.com/ternarybob/arbor"
)

// App wires configuration, storage, providers and pipeline services into
// a runnable unit. Construction order: storage, then providers, then
// stage services, then the orchestrator.
type App struct {
	Config       *common.Config
	Orchestrator *pipeline.Orchestrator
	Watcher      *scheduler.Watcher

	logger    arbor.ILogger
	db        *badgerstore.BadgerDB
	providers []interfaces.AnalysisProvider
}

// New assembles the application. Missing provider credentials are not
// fatal: the affected stage runs disabled and degrades to its neutral
// default, matching how stages behave when a provider fails mid-run.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: config, logger: logger}

	repo, err := a.buildRepository(config, logger)
	if err != nil {
		return nil, err
	}

	factory := providers.NewFactory(config, logger)
	ingestProvider := a.provider(ctx, factory, providers.PoolIngestion)
	researchProvider := a.provider(ctx, factory, providers.PoolResearch)
	riskProvider := a.provider(ctx, factory, providers.PoolRisk)
	strategyProvider := a.provider(ctx, factory, providers.PoolStrategy)

	searchProvider := search.NewService(&config.Search, logger)

	ingestionSvc := ingestion.NewService(searchProvider, ingestProvider, config, logger)
	precedentSvc := precedent.NewService(researchProvider, logger)
	riskSvc := risk.NewService(riskProvider, config.Pipeline.WorkerCount, logger)
	strategySvc := strategy.NewService(strategyProvider, logger)

	a.Orchestrator = pipeline.NewOrchestrator(ingestionSvc, precedentSvc, riskSvc, strategySvc, repo, logger)
	a.Watcher = scheduler.NewWatcher(a.Orchestrator, &config.Watch, logger)

	return a, nil
}

func (a *App) buildRepository(config *common.Config, logger arbor.ILogger) (interfaces.RunRepository, error) {
	switch config.Storage.Driver {
	case "badger":
		db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger storage: %w", err)
		}
		a.db = db
		return badgerstore.NewReportStorage(db, logger), nil
	case "", "memory":
		return memorystore.NewReportStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", config.Storage.Driver)
	}
}

// provider builds one analysis provider, tolerating missing credentials.
func (a *App) provider(ctx context.Context, factory *providers.Factory, pool providers.Pool) interfaces.AnalysisProvider {
	p, err := factory.Provider(ctx, pool)
	if err != nil {
		a.logger.Warn().Err(err).Str("pool", string(pool)).Msg("Analysis provider unavailable, stage will run degraded")
		return nil
	}
	a.providers = append(a.providers, p)
	return p
}

// Close releases storage and provider connections.
func (a *App) Close() {
	for _, p := range a.providers {
		if err := p.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close analysis provider")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
