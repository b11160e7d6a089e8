// Package valuation computes the portfolio's market value from holdings and
// current prices.
package valuation

import (
	"fmt"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// currencyPlaces is the rounding precision for market values. Each per-holding
// value is rounded half away from zero to this many places; the snapshot
// total is the exact sum of the rounded values, so the per-holding sum always
// equals the total.
const currencyPlaces = 2

// SnapshotStore is the slice of the portfolio store the valuator needs.
type SnapshotStore interface {
	SaveValuation(s domain.ValuationSnapshot) error
}

// Valuator turns holdings plus prices into valuation snapshots.
type Valuator struct {
	store SnapshotStore
	log   zerolog.Logger
}

// NewValuator creates a new valuator
func NewValuator(store SnapshotStore, log zerolog.Logger) *Valuator {
	return &Valuator{
		store: store,
		log:   log.With().Str("component", "valuator").Logger(),
	}
}

// Compute builds a snapshot without persisting it. Holdings without a price
// are skipped and recorded in Omitted with a logged warning; this is pure
// computation over already-fetched data, no retries.
func (v *Valuator) Compute(holdings []domain.Holding, prices map[string]domain.PriceQuote) domain.ValuationSnapshot {
	snap := domain.ValuationSnapshot{
		TotalValue: decimal.Zero,
		PerHolding: make(map[string]decimal.Decimal, len(holdings)),
	}

	for _, h := range holdings {
		quote, ok := prices[h.Symbol]
		if !ok {
			v.log.Warn().Str("symbol", h.Symbol).Msg("No price for holding, omitting from valuation")
			snap.Omitted = append(snap.Omitted, h.Symbol)
			continue
		}

		marketValue := h.Quantity.Mul(quote.Price).Round(currencyPlaces)
		snap.PerHolding[h.Symbol] = marketValue
		snap.TotalValue = snap.TotalValue.Add(marketValue)

		v.log.Debug().
			Str("symbol", h.Symbol).
			Str("quantity", h.Quantity.String()).
			Str("price", quote.Price.String()).
			Str("market_value", marketValue.String()).
			Msg("Valued holding")
	}

	return snap
}

// ComputeAndPersist builds a snapshot stamped at the given time and appends
// it to the store.
func (v *Valuator) ComputeAndPersist(holdings []domain.Holding, prices map[string]domain.PriceQuote, at time.Time) (domain.ValuationSnapshot, error) {
	snap := v.Compute(holdings, prices)
	snap.At = at.UTC()

	if err := v.store.SaveValuation(snap); err != nil {
		return domain.ValuationSnapshot{}, fmt.Errorf("failed to persist valuation: %w", err)
	}

	v.log.Info().
		Str("total_value", snap.TotalValue.StringFixed(currencyPlaces)).
		Int("holdings", len(snap.PerHolding)).
		Int("omitted", len(snap.Omitted)).
		Msg("Valuation persisted")

	return snap, nil
}
