package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/aristath/portwatch/internal/store"
)

// stubSource returns canned prices or errors per symbol and counts calls.
type stubSource struct {
	name   string
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return decimal.Decimal{}, s.err
	}
	price, ok := s.prices[symbol]
	if !ok {
		return decimal.Decimal{}, ErrNotFound
	}
	return price, nil
}

func newTestFetcher(st QuoteStore, opts Options, sources ...*stubSource) *Fetcher {
	configured := make([]ConfiguredSource, 0, len(sources))
	for _, src := range sources {
		configured = append(configured, ConfiguredSource{Source: src, RetryCount: 1})
	}
	f := NewFetcher(configured, st, opts, zerolog.Nop())
	f.sleep = func(time.Duration) {}
	return f
}

func defaultOptions() Options {
	return Options{
		ValidatePrices: true,
		MinPrice:       decimal.Zero,
		MaxPrice:       decimal.NewFromInt(1000000),
		EnableFallback: true,
	}
}

func TestFetchPricePersistsQuote(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, prices: map[string]decimal.Decimal{
		"AAPL": decimal.RequireFromString("150.25"),
	}}
	f := newTestFetcher(st, defaultOptions(), primary)

	quote, err := f.FetchPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, domain.SourceYahoo, quote.Source)

	persisted, err := st.GetLastPrice("AAPL")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.True(t, persisted.Price.Equal(quote.Price))
}

func TestFetchPriceFallsThroughSources(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, err: errors.New("connection refused")}
	secondary := &stubSource{name: domain.SourceGoogle, prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(151),
	}}
	f := newTestFetcher(st, defaultOptions(), primary, secondary)

	quote, err := f.FetchPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGoogle, quote.Source)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFetchPriceFallbackDisabledStopsAtFirstSource(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, err: errors.New("down")}
	secondary := &stubSource{name: domain.SourceGoogle, prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(151),
	}}
	opts := defaultOptions()
	opts.EnableFallback = false
	f := newTestFetcher(st, opts, primary, secondary)

	_, err := f.FetchPrice(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, 0, secondary.calls)
}

func TestFetchPriceRetriesBeforeFallback(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, err: errors.New("flaky")}
	f := NewFetcher([]ConfiguredSource{
		{Source: primary, RetryCount: 3, RetryDelay: time.Millisecond},
	}, st, defaultOptions(), zerolog.Nop())
	f.sleep = func(time.Duration) {}

	_, err := f.FetchPrice(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, 3, primary.calls)
}

func TestFetchPriceRejectsOutOfBounds(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(5000000),
	}}
	secondary := &stubSource{name: domain.SourceGoogle, prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(150),
	}}
	f := newTestFetcher(st, defaultOptions(), primary, secondary)

	quote, err := f.FetchPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGoogle, quote.Source)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(150)))
}

func TestFetchPricesCachedFallback(t *testing.T) {
	st := store.NewMemoryStore()
	cachedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SavePrice(domain.PriceQuote{
		Symbol:    "XYZ",
		Price:     decimal.RequireFromString("42.00"),
		Source:    domain.SourceYahoo,
		FetchedAt: cachedAt,
	}))

	primary := &stubSource{name: domain.SourceYahoo, err: errors.New("down")}
	secondary := &stubSource{name: domain.SourceGoogle, err: errors.New("down")}
	f := newTestFetcher(st, defaultOptions(), primary, secondary)

	result, err := f.FetchPrices(context.Background(), []string{"XYZ"})
	require.NoError(t, err)

	quote, ok := result.Quotes["XYZ"]
	require.True(t, ok, "cached quote must be returned, not an error")
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("42.00")))
	assert.Equal(t, domain.SourceCached, quote.Source)
	assert.Equal(t, []string{"XYZ"}, result.Stale)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "cached")

	// The cached quote must not overwrite the stored source
	stored, err := st.GetLastPrice("XYZ")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceYahoo, stored.Source)
}

func TestFetchPricesOmitsSymbolWithoutCache(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, err: errors.New("down")}
	f := newTestFetcher(st, defaultOptions(), primary)

	result, err := f.FetchPrices(context.Background(), []string{"XYZ"})
	require.NoError(t, err)

	assert.Empty(t, result.Quotes)
	require.Contains(t, result.Failures, "XYZ")

	var fetchErr *FetchError
	require.ErrorAs(t, result.Failures["XYZ"], &fetchErr)
	assert.Equal(t, "XYZ", fetchErr.Symbol)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "excluded")
}

func TestFetchPricesPartialFailureDoesNotAbortBatch(t *testing.T) {
	st := store.NewMemoryStore()
	primary := &stubSource{name: domain.SourceYahoo, prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(150),
	}}
	f := newTestFetcher(st, defaultOptions(), primary)

	result, err := f.FetchPrices(context.Background(), []string{"AAPL", "NOPE"})
	require.NoError(t, err)

	assert.Contains(t, result.Quotes, "AAPL")
	assert.Contains(t, result.Failures, "NOPE")
}
