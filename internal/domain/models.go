// Package domain holds the core data model shared by all portwatch modules.
// Money amounts use decimal.Decimal throughout; float arithmetic is never
// applied to currency values.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Known price source identifiers. SourceCached marks a quote served from the
// store because every live source failed for the symbol.
const (
	SourceYahoo  = "yahoo_finance"
	SourceGoogle = "google_finance"
	SourceCached = "cached"
)

// Holding is one position in the portfolio. CostBasis is the total purchase
// cost for the position, not a per-share price.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
}

// PriceQuote is a priced observation of a symbol at a point in time from a
// named source. The most recent quote per symbol is retained as the current
// price.
type PriceQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ValuationSnapshot is the portfolio's computed market value at a point in
// time. PerHolding values are rounded to currency precision and TotalValue is
// their exact sum. Omitted lists symbols excluded because no price (live or
// cached) was available.
type ValuationSnapshot struct {
	At         time.Time                  `json:"at"`
	TotalValue decimal.Decimal            `json:"total_value"`
	PerHolding map[string]decimal.Decimal `json:"per_holding"`
	Omitted    []string                   `json:"omitted,omitempty"`
}

// BaselineMode selects what a performance run measures against.
type BaselineMode string

const (
	// BaselineCostBasis measures against the aggregate cost basis of all holdings.
	BaselineCostBasis BaselineMode = "cost_basis"
	// BaselinePriorSnapshot measures against the most recent stored valuation.
	BaselinePriorSnapshot BaselineMode = "prior_snapshot"
)

// PerformanceRecord is the gain/loss of a valuation against a baseline value.
// PercentReturn is a ratio, not a percentage: 0.5 means +50%.
type PerformanceRecord struct {
	At            time.Time       `json:"at"`
	BaselineMode  BaselineMode    `json:"baseline_mode"`
	BaselineValue decimal.Decimal `json:"baseline_value"`
	AbsoluteGain  decimal.Decimal `json:"absolute_gain"`
	PercentReturn decimal.Decimal `json:"percent_return"`
}
