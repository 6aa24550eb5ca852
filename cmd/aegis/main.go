package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/aegis/internal/app"
	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/arbor"
)

var (
	configFile  = flag.String("config", "", "Configuration file path")
	companyName = flag.String("company", "", "Run the crisis pipeline once for this company")
	watchMode   = flag.Bool("watch", false, "Run continuously on the configured schedule")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aegis version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence: load config (defaults -> file -> env), then
	// logger, then banner.
	if *configFile == "" {
		if _, err := os.Stat("aegis.toml"); err == nil {
			*configFile = "aegis.toml"
		}
	}
	config, err := common.LoadFromFile(*configFile)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Str("path", *configFile).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *watchMode:
		runWatch(ctx, application, logger)
	case *companyName != "":
		runOnce(ctx, application, *companyName, logger)
	default:
		fmt.Fprintln(os.Stderr, "Usage: aegis -company <name> | aegis -watch")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func runWatch(ctx context.Context, application *app.App, logger arbor.ILogger) {
	if !application.Config.Watch.Enabled && len(application.Config.Watch.Companies) == 0 {
		logger.Fatal().Msg("Watch mode requires [watch] configuration with at least one company")
		os.Exit(1)
	}
	if err := application.Watcher.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start watch mode")
		os.Exit(1)
	}
	<-ctx.Done()
	application.Watcher.Stop()
}

func runOnce(ctx context.Context, application *app.App, company string, logger arbor.ILogger) {
	var report *models.CrisisReport
	var runErr error
	for ev := range application.Orchestrator.Run(ctx, company) {
		if ev.Terminal {
			report = ev.Result
			runErr = ev.Err
			continue
		}
		logger.Info().Str("step", string(ev.Step)).Msg("Pipeline progress")
	}

	if report != nil {
		printReport(report)
	}
	if runErr != nil {
		logger.Error().Err(runErr).Msg("Pipeline run did not complete")
		os.Exit(1)
	}
}

func printReport(r *models.CrisisReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nCrisis report %s — %s\n", r.CrisisID, r.CompanyName)
	if r.Incomplete {
		fmt.Fprintf(&b, "  INCOMPLETE: %s\n", r.Error)
	}
	fmt.Fprintf(&b, "  Signals: %d in %d topic groups\n", len(r.Signals), len(r.TopicGroups))
	fmt.Fprintf(&b, "  Value at risk: EUR %.2f (max severity %d/5)\n", r.Risk.TotalValueAtRisk, r.Risk.MaxSeverity)
	if r.Precedents != nil {
		fmt.Fprintf(&b, "  Precedents: %d cases (%s confidence)\n", len(r.Precedents.Cases), r.Precedents.Confidence)
	}
	if r.Strategy != nil && r.Strategy.RecommendedStrategyName != "" {
		fmt.Fprintf(&b, "  Strategy: %s (%s alert)\n", r.Strategy.RecommendedStrategyName, r.Strategy.AlertLabel)
	}
	if r.Invoice != nil {
		fmt.Fprintf(&b, "  Invoice: %s tier EUR %.0f, API cost EUR %.4f, ROI %.1fx\n",
			r.Invoice.TierName, r.Invoice.TierPrice, r.Invoice.TotalAPICost, r.Invoice.ROIMultiplier)
		if r.Invoice.ActionRefused {
			fmt.Fprintf(&b, "  Action refused: %s\n", r.Invoice.RefusalReason)
		}
	}
	fmt.Fprintf(&b, "  Total provider spend: EUR %.4f\n", r.TotalCost)
	fmt.Print(b.String())
}
