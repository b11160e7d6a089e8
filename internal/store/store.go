// Package store defines the portfolio store contract and its SQLite and
// in-memory implementations. The store is the only shared mutable resource;
// it is written by exactly one run at a time.
package store

import (
	"github.com/aristath/portwatch/internal/domain"
)

// Store is the persistence contract consumed by the fetcher, valuator and
// performance calculator. Lookups for absent rows return nil values, not
// errors; errors indicate the store itself failed and abort the current run.
type Store interface {
	// Holdings
	GetHoldings() ([]domain.Holding, error)
	GetSymbols() ([]string, error)
	UpsertHolding(h domain.Holding) error
	DeleteHolding(symbol string) error

	// Prices (last-write-wins per symbol)
	SavePrice(q domain.PriceQuote) error
	GetLastPrice(symbol string) (*domain.PriceQuote, error)
	LatestPrices() ([]domain.PriceQuote, error)

	// Valuations (append-only)
	SaveValuation(s domain.ValuationSnapshot) error
	GetLatestValuation() (*domain.ValuationSnapshot, error)
	ValuationHistory(days int) ([]domain.ValuationSnapshot, error)

	// Performance records (append-only)
	SavePerformance(p domain.PerformanceRecord) error
	PerformanceHistory(days int) ([]domain.PerformanceRecord, error)
}
