package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// QuoteStore is the slice of the portfolio store the fetcher needs: persisting
// fresh quotes and reading back the last-known price when every source fails.
type QuoteStore interface {
	SavePrice(q domain.PriceQuote) error
	GetLastPrice(symbol string) (*domain.PriceQuote, error)
}

// ConfiguredSource pairs a source with its retry policy.
type ConfiguredSource struct {
	Source     Source
	RetryCount int
	RetryDelay time.Duration
}

// Options controls validation and fallback behavior.
type Options struct {
	// ValidatePrices rejects prices outside [MinPrice, MaxPrice].
	ValidatePrices bool
	MinPrice       decimal.Decimal
	MaxPrice       decimal.Decimal
	// EnableFallback allows trying lower-priority sources after the first
	// source exhausts its retries.
	EnableFallback bool
}

// Result is the outcome of a batch fetch. A symbol appears in exactly one of
// Quotes or Failures; symbols served from the store instead of a live source
// are additionally listed in Stale. Warnings collects human-readable notes
// for the run summary.
type Result struct {
	Quotes   map[string]domain.PriceQuote
	Failures map[string]error
	Stale    []string
	Warnings []string
}

// Fetcher tries price sources in priority order and persists every fresh
// quote. Per-symbol failures never abort the batch.
type Fetcher struct {
	sources []ConfiguredSource
	store   QuoteStore
	opts    Options
	log     zerolog.Logger

	// now and sleep are replaceable in tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewFetcher creates a fetcher over priority-ordered sources
func NewFetcher(sources []ConfiguredSource, store QuoteStore, opts Options, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		sources: sources,
		store:   store,
		opts:    opts,
		log:     log.With().Str("component", "fetcher").Logger(),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// FetchPrice fetches a price for one symbol, persisting it on success. When
// every source fails it returns a *FetchError; it does not consult the cached
// fallback (that policy belongs to FetchPrices, where the warning surface
// lives).
func (f *Fetcher) FetchPrice(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	quote, err := f.fetchFresh(ctx, symbol)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	if err := f.store.SavePrice(quote); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("failed to persist quote for %s: %w", symbol, err)
	}
	return quote, nil
}

// FetchPrices fetches prices for a batch of symbols. Symbols whose sources
// all fail degrade to the last persisted price (source "cached") with a
// warning; symbols with no cached price either are reported in Failures.
// The returned error is non-nil only for store failures, which are fatal for
// the run.
func (f *Fetcher) FetchPrices(ctx context.Context, symbols []string) (*Result, error) {
	result := &Result{
		Quotes:   make(map[string]domain.PriceQuote, len(symbols)),
		Failures: make(map[string]error),
	}

	for _, symbol := range symbols {
		quote, fetchErr := f.fetchFresh(ctx, symbol)
		if fetchErr == nil {
			if err := f.store.SavePrice(quote); err != nil {
				return nil, fmt.Errorf("failed to persist quote for %s: %w", symbol, err)
			}
			result.Quotes[symbol] = quote
			continue
		}

		f.log.Warn().Err(fetchErr).Str("symbol", symbol).Msg("All sources failed, trying cached price")

		cached, err := f.store.GetLastPrice(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to read cached price for %s: %w", symbol, err)
		}
		if cached != nil {
			stale := *cached
			stale.Source = domain.SourceCached
			result.Quotes[symbol] = stale
			result.Stale = append(result.Stale, symbol)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: using cached price %s from %s", symbol, cached.Price.StringFixed(2), cached.FetchedAt.Format("2006-01-02")))
			continue
		}

		result.Failures[symbol] = fetchErr
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: no price available, excluded from valuation", symbol))
	}

	return result, nil
}

// fetchFresh walks the source chain for one symbol.
func (f *Fetcher) fetchFresh(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	var attempts []error

	for _, cs := range f.sources {
		price, err := f.trySource(ctx, cs, symbol)
		if err == nil {
			return domain.PriceQuote{
				Symbol:    symbol,
				Price:     price,
				Source:    cs.Source.Name(),
				FetchedAt: f.now().UTC(),
			}, nil
		}

		attempts = append(attempts, fmt.Errorf("%s: %w", cs.Source.Name(), err))

		if !f.opts.EnableFallback {
			break
		}
	}

	return domain.PriceQuote{}, &FetchError{Symbol: symbol, Attempts: attempts}
}

// trySource runs one source's bounded retry loop.
func (f *Fetcher) trySource(ctx context.Context, cs ConfiguredSource, symbol string) (decimal.Decimal, error) {
	retries := cs.RetryCount
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return decimal.Decimal{}, err
		}

		price, err := cs.Source.GetPrice(ctx, symbol)
		if err == nil {
			if verr := f.validate(price); verr != nil {
				err = verr
			} else {
				return price, nil
			}
		}
		lastErr = err

		if attempt < retries-1 {
			f.log.Debug().
				Str("symbol", symbol).
				Str("source", cs.Source.Name()).
				Int("attempt", attempt+1).
				Msg("Retrying source")
			f.sleep(cs.RetryDelay)
		}
	}

	return decimal.Decimal{}, lastErr
}

func (f *Fetcher) validate(price decimal.Decimal) error {
	if !f.opts.ValidatePrices {
		return nil
	}
	if price.LessThan(f.opts.MinPrice) || price.GreaterThan(f.opts.MaxPrice) {
		return fmt.Errorf("price %s outside bounds [%s, %s]: %w",
			price.String(), f.opts.MinPrice.String(), f.opts.MaxPrice.String(), ErrMalformed)
	}
	return nil
}
