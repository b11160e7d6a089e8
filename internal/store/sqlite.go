package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SQLiteStore persists the portfolio in SQLite. Decimal amounts are stored as
// TEXT, timestamps as Unix seconds, and the valuation breakdown as a JSON
// object mapping symbol to market value.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore creates a new SQLite-backed store
func NewSQLiteStore(db *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		log: log.With().Str("repo", "store").Logger(),
	}
}

// GetHoldings returns all holdings ordered by symbol
func (s *SQLiteStore) GetHoldings() ([]domain.Holding, error) {
	rows, err := s.db.Query(`SELECT symbol, quantity, cost_basis FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var symbol, quantity, costBasis string
		if err := rows.Scan(&symbol, &quantity, &costBasis); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h, err := holdingFromRow(symbol, quantity, costBasis)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetSymbols returns the distinct symbols held
func (s *SQLiteStore) GetSymbols() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT symbol FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// UpsertHolding inserts or replaces a holding
func (s *SQLiteStore) UpsertHolding(h domain.Holding) error {
	_, err := s.db.Exec(`INSERT INTO holdings (symbol, quantity, cost_basis)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			quantity = excluded.quantity,
			cost_basis = excluded.cost_basis`,
		h.Symbol, h.Quantity.String(), h.CostBasis.String())
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// DeleteHolding removes a holding by symbol
func (s *SQLiteStore) DeleteHolding(symbol string) error {
	if _, err := s.db.Exec(`DELETE FROM holdings WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	return nil
}

// SavePrice upserts the last-known price for a symbol
func (s *SQLiteStore) SavePrice(q domain.PriceQuote) error {
	_, err := s.db.Exec(`INSERT INTO prices (symbol, price, source, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			source = excluded.source,
			fetched_at = excluded.fetched_at`,
		q.Symbol, q.Price.String(), q.Source, q.FetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save price for %s: %w", q.Symbol, err)
	}
	return nil
}

// GetLastPrice returns the last persisted price for a symbol, or nil if none
// has been stored yet
func (s *SQLiteStore) GetLastPrice(symbol string) (*domain.PriceQuote, error) {
	row := s.db.QueryRow(`SELECT symbol, price, source, fetched_at FROM prices WHERE symbol = ?`, symbol)

	q, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last price for %s: %w", symbol, err)
	}
	return q, nil
}

// LatestPrices returns the last persisted price for every symbol
func (s *SQLiteStore) LatestPrices() ([]domain.PriceQuote, error) {
	rows, err := s.db.Query(`SELECT symbol, price, source, fetched_at FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var quotes []domain.PriceQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return quotes, nil
}

// SaveValuation appends a valuation snapshot
func (s *SQLiteStore) SaveValuation(snap domain.ValuationSnapshot) error {
	breakdown := make(map[string]string, len(snap.PerHolding))
	for symbol, value := range snap.PerHolding {
		breakdown[symbol] = value.String()
	}
	encoded, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode valuation breakdown: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO valuations (created_at, total_value, breakdown)
		VALUES (?, ?, ?)`,
		snap.At.Unix(), snap.TotalValue.String(), string(encoded))
	if err != nil {
		return fmt.Errorf("failed to save valuation: %w", err)
	}
	return nil
}

// GetLatestValuation returns the most recent snapshot, or nil if none exists
func (s *SQLiteStore) GetLatestValuation() (*domain.ValuationSnapshot, error) {
	row := s.db.QueryRow(`SELECT created_at, total_value, breakdown
		FROM valuations ORDER BY created_at DESC, id DESC LIMIT 1`)

	snap, err := scanValuation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest valuation: %w", err)
	}
	return snap, nil
}

// ValuationHistory returns snapshots from the past N days, newest first
func (s *SQLiteStore) ValuationHistory(days int) ([]domain.ValuationSnapshot, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`SELECT created_at, total_value, breakdown
		FROM valuations WHERE created_at >= ? ORDER BY created_at DESC, id DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuation history: %w", err)
	}
	defer rows.Close()

	var history []domain.ValuationSnapshot
	for rows.Next() {
		snap, err := scanValuation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan valuation: %w", err)
		}
		history = append(history, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuations: %w", err)
	}

	return history, nil
}

// SavePerformance appends a performance record
func (s *SQLiteStore) SavePerformance(p domain.PerformanceRecord) error {
	_, err := s.db.Exec(`INSERT INTO performance
		(created_at, baseline_mode, baseline_value, absolute_gain, percent_return)
		VALUES (?, ?, ?, ?, ?)`,
		p.At.Unix(), string(p.BaselineMode), p.BaselineValue.String(),
		p.AbsoluteGain.String(), p.PercentReturn.String())
	if err != nil {
		return fmt.Errorf("failed to save performance record: %w", err)
	}
	return nil
}

// PerformanceHistory returns performance records from the past N days, newest first
func (s *SQLiteStore) PerformanceHistory(days int) ([]domain.PerformanceRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`SELECT created_at, baseline_mode, baseline_value, absolute_gain, percent_return
		FROM performance WHERE created_at >= ? ORDER BY created_at DESC, id DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance history: %w", err)
	}
	defer rows.Close()

	var history []domain.PerformanceRecord
	for rows.Next() {
		var createdAt int64
		var mode, baseline, gain, pct string
		if err := rows.Scan(&createdAt, &mode, &baseline, &gain, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}

		rec := domain.PerformanceRecord{
			At:           time.Unix(createdAt, 0).UTC(),
			BaselineMode: domain.BaselineMode(mode),
		}
		if rec.BaselineValue, err = decimal.NewFromString(baseline); err != nil {
			return nil, fmt.Errorf("corrupt baseline_value %q: %w", baseline, err)
		}
		if rec.AbsoluteGain, err = decimal.NewFromString(gain); err != nil {
			return nil, fmt.Errorf("corrupt absolute_gain %q: %w", gain, err)
		}
		if rec.PercentReturn, err = decimal.NewFromString(pct); err != nil {
			return nil, fmt.Errorf("corrupt percent_return %q: %w", pct, err)
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance records: %w", err)
	}

	return history, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row scanner) (*domain.PriceQuote, error) {
	var symbol, price, source string
	var fetchedAt int64
	if err := row.Scan(&symbol, &price, &source, &fetchedAt); err != nil {
		return nil, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("corrupt price %q for %s: %w", price, symbol, err)
	}

	return &domain.PriceQuote{
		Symbol:    symbol,
		Price:     p,
		Source:    source,
		FetchedAt: time.Unix(fetchedAt, 0).UTC(),
	}, nil
}

func scanValuation(row scanner) (*domain.ValuationSnapshot, error) {
	var createdAt int64
	var total, breakdown string
	if err := row.Scan(&createdAt, &total, &breakdown); err != nil {
		return nil, err
	}

	totalValue, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("corrupt total_value %q: %w", total, err)
	}

	var encoded map[string]string
	if err := json.Unmarshal([]byte(breakdown), &encoded); err != nil {
		return nil, fmt.Errorf("corrupt valuation breakdown: %w", err)
	}
	perHolding := make(map[string]decimal.Decimal, len(encoded))
	for symbol, value := range encoded {
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("corrupt breakdown value %q for %s: %w", value, symbol, err)
		}
		perHolding[symbol] = v
	}

	return &domain.ValuationSnapshot{
		At:         time.Unix(createdAt, 0).UTC(),
		TotalValue: totalValue,
		PerHolding: perHolding,
	}, nil
}

func holdingFromRow(symbol, quantity, costBasis string) (domain.Holding, error) {
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return domain.Holding{}, fmt.Errorf("corrupt quantity %q for %s: %w", quantity, symbol, err)
	}
	c, err := decimal.NewFromString(costBasis)
	if err != nil {
		return domain.Holding{}, fmt.Errorf("corrupt cost_basis %q for %s: %w", costBasis, symbol, err)
	}
	return domain.Holding{Symbol: symbol, Quantity: q, CostBasis: c}, nil
}
