// Package runner sequences one valuation run: fetch prices, value the
// portfolio, compute performance, notify.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/aristath/portwatch/internal/notify"
	"github.com/aristath/portwatch/internal/performance"
	"github.com/aristath/portwatch/internal/pricing"
	"github.com/aristath/portwatch/internal/store"
	"github.com/aristath/portwatch/internal/valuation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier is the delivery contract the runner depends on.
type Notifier interface {
	Send(summary notify.Summary) error
}

// Summary is the outcome of one run.
type Summary struct {
	RunID       string
	Snapshot    domain.ValuationSnapshot
	Performance *domain.PerformanceRecord
	Warnings    []string
	Failures    map[string]error
}

// Runner orchestrates a single run. Store failures abort the run; per-symbol
// fetch failures degrade to warnings; a zero-baseline computation error is
// reported and the run continues without a performance record.
type Runner struct {
	store      store.Store
	fetcher    *pricing.Fetcher
	valuator   *valuation.Valuator
	calculator *performance.Calculator
	notifier   Notifier
	mode       domain.BaselineMode
	log        zerolog.Logger
}

// New creates a new runner
func New(
	st store.Store,
	fetcher *pricing.Fetcher,
	valuator *valuation.Valuator,
	calculator *performance.Calculator,
	notifier Notifier,
	mode domain.BaselineMode,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		store:      st,
		fetcher:    fetcher,
		valuator:   valuator,
		calculator: calculator,
		notifier:   notifier,
		mode:       mode,
		log:        log.With().Str("component", "runner").Logger(),
	}
}

// Run executes one valuation run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	log := r.log.With().Str("run_id", runID).Logger()
	log.Info().Msg("Starting valuation run")

	symbols, err := r.store.GetSymbols()
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil, errors.New("no holdings in portfolio")
	}

	holdings, err := r.store.GetHoldings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	// Baseline must be resolved before this run's snapshot is persisted,
	// otherwise prior_snapshot would compare the run against itself.
	baseline, mode, err := r.calculator.ResolveBaseline(r.mode, r.store, holdings)
	if err != nil {
		return nil, err
	}

	fetched, err := r.fetcher.FetchPrices(ctx, symbols)
	if err != nil {
		return nil, err
	}
	for symbol, ferr := range fetched.Failures {
		log.Warn().Err(ferr).Str("symbol", symbol).Msg("Symbol has no price this run")
	}

	snapshot, err := r.valuator.ComputeAndPersist(holdings, fetched.Quotes, time.Now())
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:    runID,
		Snapshot: snapshot,
		Warnings: fetched.Warnings,
		Failures: fetched.Failures,
	}

	record, err := r.calculator.Compute(snapshot, baseline, mode)
	switch {
	case errors.Is(err, performance.ErrZeroBaseline):
		log.Warn().Err(err).Msg("Skipping performance record")
		summary.Warnings = append(summary.Warnings, "performance not computed: "+err.Error())
	case err != nil:
		return nil, err
	default:
		if err := r.store.SavePerformance(record); err != nil {
			return nil, err
		}
		summary.Performance = &record
	}

	if err := r.notifier.Send(notify.Summary{
		Snapshot:    summary.Snapshot,
		Performance: summary.Performance,
		Warnings:    summary.Warnings,
	}); err != nil {
		// Delivery failures do not invalidate the persisted run
		log.Error().Err(err).Msg("Failed to send notification")
		summary.Warnings = append(summary.Warnings, "notification failed: "+err.Error())
	}

	log.Info().
		Str("total_value", snapshot.TotalValue.StringFixed(2)).
		Int("warnings", len(summary.Warnings)).
		Msg("Run complete")

	return summary, nil
}
