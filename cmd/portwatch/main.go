// Package main is the entry point for portwatch, a periodic portfolio
// valuation job. It fetches prices with source fallback, values the stored
// portfolio, computes performance against a baseline, and emails a summary.
//
// Modes:
//
//	portwatch                 one valuation run (default)
//	portwatch serve           cron-scheduled daemon with a status API
//	portwatch holdings ...    manage holdings (list / add / remove)
//	portwatch history         print recent valuations
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portwatch/internal/backup"
	"github.com/aristath/portwatch/internal/config"
	"github.com/aristath/portwatch/internal/database"
	"github.com/aristath/portwatch/internal/domain"
	"github.com/aristath/portwatch/internal/notify"
	"github.com/aristath/portwatch/internal/performance"
	"github.com/aristath/portwatch/internal/pricing"
	"github.com/aristath/portwatch/internal/runner"
	"github.com/aristath/portwatch/internal/scheduler"
	"github.com/aristath/portwatch/internal/server"
	"github.com/aristath/portwatch/internal/store"
	"github.com/aristath/portwatch/internal/valuation"
	"github.com/aristath/portwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	st := store.NewSQLiteStore(db.Conn(), log)

	mode := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		mode = args[0]
		args = args[1:]
	}

	switch mode {
	case "run":
		if err := runOnce(cfg, st, log); err != nil {
			log.Fatal().Err(err).Msg("Run failed")
		}
	case "serve":
		if err := serve(cfg, st, db.Path(), log); err != nil {
			log.Fatal().Err(err).Msg("Daemon failed")
		}
	case "holdings":
		if err := holdingsCommand(st, args); err != nil {
			log.Fatal().Err(err).Msg("Holdings command failed")
		}
	case "history":
		if err := historyCommand(st, args); err != nil {
			log.Fatal().Err(err).Msg("History command failed")
		}
	default:
		log.Fatal().Str("mode", mode).Msg("Unknown mode (expected run, serve, holdings or history)")
	}
}

// newRunner wires the per-run pipeline from configuration.
func newRunner(cfg *config.Config, st store.Store, log zerolog.Logger) *runner.Runner {
	sources := make([]pricing.ConfiguredSource, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		var src pricing.Source
		switch sc.Name {
		case domain.SourceYahoo:
			src = pricing.NewYahooSource(cfg.HTTPTimeout, log)
		case domain.SourceGoogle:
			src = pricing.NewGoogleSource(cfg.HTTPTimeout, log)
		default:
			log.Warn().Str("source", sc.Name).Msg("Unknown price source in config, skipping")
			continue
		}
		sources = append(sources, pricing.ConfiguredSource{
			Source:     src,
			RetryCount: sc.RetryCount,
			RetryDelay: sc.RetryDelay,
		})
	}

	fetcher := pricing.NewFetcher(sources, st, pricing.Options{
		ValidatePrices: cfg.ValidatePrices,
		MinPrice:       cfg.MinPrice,
		MaxPrice:       cfg.MaxPrice,
		EnableFallback: cfg.EnableFallbackSources,
	}, log)

	return runner.New(
		st,
		fetcher,
		valuation.NewValuator(st, log),
		performance.NewCalculator(log),
		notify.NewEmailNotifier(cfg.Email, log),
		cfg.BaselineMode,
		log,
	)
}

func runOnce(cfg *config.Config, st store.Store, log zerolog.Logger) error {
	r := newRunner(cfg, st, log)

	summary, err := r.Run(context.Background())
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func serve(cfg *config.Config, st store.Store, dbPath string, log zerolog.Logger) error {
	r := newRunner(cfg, st, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.Schedule, scheduler.NewJob("valuation-run", func() error {
		_, err := r.Run(context.Background())
		return err
	})); err != nil {
		return fmt.Errorf("failed to register valuation job: %w", err)
	}

	if cfg.Backup.Enabled {
		backupSvc, err := backup.New(context.Background(), cfg.Backup, dbPath, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup service: %w", err)
		}
		if err := sched.AddJob("@daily", scheduler.NewJob("database-backup", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			return backupSvc.Upload(ctx)
		})); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	srv := server.New(server.Config{
		Port:  cfg.Port,
		Store: st,
		Log:   log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		sched.Stop()
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func holdingsCommand(st store.Store, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		holdings, err := st.GetHoldings()
		if err != nil {
			return err
		}
		if len(holdings) == 0 {
			fmt.Println("no holdings")
			return nil
		}
		for _, h := range holdings {
			fmt.Printf("%-12s qty %-12s cost %s\n", h.Symbol, h.Quantity.String(), h.CostBasis.StringFixed(2))
		}
		return nil

	case "add":
		if len(args) != 4 {
			return fmt.Errorf("usage: portwatch holdings add SYMBOL QUANTITY COST_BASIS")
		}
		quantity, err := decimal.NewFromString(args[2])
		if err != nil || quantity.IsNegative() {
			return fmt.Errorf("invalid quantity %q", args[2])
		}
		costBasis, err := decimal.NewFromString(args[3])
		if err != nil {
			return fmt.Errorf("invalid cost basis %q", args[3])
		}
		return st.UpsertHolding(domain.Holding{
			Symbol:    args[1],
			Quantity:  quantity,
			CostBasis: costBasis,
		})

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: portwatch holdings remove SYMBOL")
		}
		return st.DeleteHolding(args[1])

	default:
		return fmt.Errorf("unknown holdings subcommand %q", args[0])
	}
}

func historyCommand(st store.Store, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	days := fs.Int("days", 7, "days of history to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	history, err := st.ValuationHistory(*days)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no valuation history")
		return nil
	}

	for _, snap := range history {
		fmt.Printf("%s  total %s  (%d holdings)\n",
			snap.At.Format("2006-01-02 15:04"), snap.TotalValue.StringFixed(2), len(snap.PerHolding))
	}

	stats := performance.ComputeHistoryStats(history)
	if stats.Periods > 0 {
		fmt.Printf("mean return %.4f%%  annualized volatility %.4f%% over %d periods\n",
			stats.MeanReturn*100, stats.Volatility*100, stats.Periods)
	}

	return nil
}

func printSummary(summary *runner.Summary) {
	fmt.Printf("run %s\n", summary.RunID)
	fmt.Printf("total value: %s\n", summary.Snapshot.TotalValue.StringFixed(2))
	if summary.Performance != nil {
		fmt.Printf("gain vs %s: %s (%s%%)\n",
			summary.Performance.BaselineMode,
			summary.Performance.AbsoluteGain.StringFixed(2),
			summary.Performance.PercentReturn.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	for _, warning := range summary.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
}
