// Package pricing fetches current prices from external quote providers.
//
// Sources implement a single GetPrice capability and are tried in configured
// priority order by the Fetcher; a failure on one source falls through to the
// next, and a symbol whose sources all fail degrades to the last persisted
// price rather than aborting the batch.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Source failure kinds. Adapters wrap these so the fetcher can distinguish a
// missing symbol from a provider outage without knowing provider details.
var (
	// ErrNotFound means the provider does not know the symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrMalformed means the provider responded but the price could not be parsed.
	ErrMalformed = errors.New("malformed response")
)

// Source is one external quote provider.
type Source interface {
	Name() string
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// FetchError reports that every configured source failed for one symbol.
// It aggregates the per-source attempt errors.
type FetchError struct {
	Symbol   string
	Attempts []error
}

func (e *FetchError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("all sources failed for %s: %s", e.Symbol, strings.Join(msgs, "; "))
}

// Unwrap exposes the attempt errors to errors.Is/errors.As.
func (e *FetchError) Unwrap() []error {
	return e.Attempts
}
