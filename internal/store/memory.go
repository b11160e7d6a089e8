package store

import (
	"sort"
	"sync"
	"time"

	"github.com/aristath/portwatch/internal/domain"
)

// MemoryStore is an in-memory Store implementation. It backs tests and
// ad-hoc dry runs; behavior matches SQLiteStore, including nil results for
// absent rows.
type MemoryStore struct {
	mu           sync.RWMutex
	holdings     map[string]domain.Holding
	prices       map[string]domain.PriceQuote
	valuations   []domain.ValuationSnapshot
	performances []domain.PerformanceRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		holdings: make(map[string]domain.Holding),
		prices:   make(map[string]domain.PriceQuote),
	}
}

func (s *MemoryStore) GetHoldings() ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := make([]domain.Holding, 0, len(s.holdings))
	for _, h := range s.holdings {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}

func (s *MemoryStore) GetSymbols() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.holdings))
	for symbol := range s.holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *MemoryStore) UpsertHolding(h domain.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings[h.Symbol] = h
	return nil
}

func (s *MemoryStore) DeleteHolding(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holdings, symbol)
	return nil
}

func (s *MemoryStore) SavePrice(q domain.PriceQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[q.Symbol] = q
	return nil
}

func (s *MemoryStore) GetLastPrice(symbol string) (*domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.prices[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *MemoryStore) LatestPrices() ([]domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]domain.PriceQuote, 0, len(s.prices))
	for _, q := range s.prices {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes, nil
}

func (s *MemoryStore) SaveValuation(snap domain.ValuationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valuations = append(s.valuations, snap)
	return nil
}

func (s *MemoryStore) GetLatestValuation() (*domain.ValuationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.valuations) == 0 {
		return nil, nil
	}
	latest := s.valuations[0]
	for _, snap := range s.valuations[1:] {
		if !snap.At.Before(latest.At) {
			latest = snap
		}
	}
	return &latest, nil
}

func (s *MemoryStore) ValuationHistory(days int) ([]domain.ValuationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	var history []domain.ValuationSnapshot
	for _, snap := range s.valuations {
		if !snap.At.Before(cutoff) {
			history = append(history, snap)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].At.After(history[j].At) })
	return history, nil
}

func (s *MemoryStore) SavePerformance(p domain.PerformanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.performances = append(s.performances, p)
	return nil
}

func (s *MemoryStore) PerformanceHistory(days int) ([]domain.PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	var history []domain.PerformanceRecord
	for _, p := range s.performances {
		if !p.At.Before(cutoff) {
			history = append(history, p)
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].At.After(history[j].At) })
	return history, nil
}
