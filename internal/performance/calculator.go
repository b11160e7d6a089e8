// Package performance computes gain/loss of a valuation against a baseline.
package performance

import (
	"errors"
	"fmt"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// percentPlaces is the precision of the stored percent-return ratio.
const percentPlaces = 8

// ErrZeroBaseline is returned when the baseline value is not positive.
// percent_return is undefined there; the caller reports it and continues the
// run without a performance record.
var ErrZeroBaseline = errors.New("baseline value must be positive")

// BaselineStore is the slice of the portfolio store needed to resolve a
// prior-snapshot baseline.
type BaselineStore interface {
	GetLatestValuation() (*domain.ValuationSnapshot, error)
}

// Calculator derives performance records from valuations.
type Calculator struct {
	log zerolog.Logger
}

// NewCalculator creates a new performance calculator
func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{
		log: log.With().Str("component", "performance").Logger(),
	}
}

// Compute derives a performance record for the current snapshot against a
// baseline value. The baseline is interchangeable: aggregate cost basis or a
// prior snapshot's total, selected by the caller via mode.
func (c *Calculator) Compute(current domain.ValuationSnapshot, baseline decimal.Decimal, mode domain.BaselineMode) (domain.PerformanceRecord, error) {
	if !baseline.IsPositive() {
		return domain.PerformanceRecord{}, fmt.Errorf("baseline %s (%s): %w", baseline.String(), mode, ErrZeroBaseline)
	}

	gain := current.TotalValue.Sub(baseline)

	return domain.PerformanceRecord{
		At:            current.At,
		BaselineMode:  mode,
		BaselineValue: baseline,
		AbsoluteGain:  gain,
		PercentReturn: gain.DivRound(baseline, percentPlaces),
	}, nil
}

// ResolveBaseline produces the baseline value for the requested mode. When
// prior_snapshot is requested but no snapshot exists yet, it falls back to
// cost basis and says so; the returned mode reflects what was actually used.
// A store failure is returned as-is and aborts the run.
func (c *Calculator) ResolveBaseline(mode domain.BaselineMode, store BaselineStore, holdings []domain.Holding) (decimal.Decimal, domain.BaselineMode, error) {
	if mode == domain.BaselinePriorSnapshot {
		prior, err := store.GetLatestValuation()
		if err != nil {
			return decimal.Decimal{}, mode, fmt.Errorf("failed to load prior snapshot: %w", err)
		}
		if prior != nil {
			return prior.TotalValue, domain.BaselinePriorSnapshot, nil
		}
		c.log.Info().Msg("No prior snapshot, falling back to cost basis baseline")
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CostBasis)
	}
	return total, domain.BaselineCostBasis, nil
}
