package valuation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/aristath/portwatch/internal/store"
)

func quote(symbol, price string) domain.PriceQuote {
	return domain.PriceQuote{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		Source:    domain.SourceYahoo,
		FetchedAt: time.Now().UTC(),
	}
}

func TestComputeSingleHolding(t *testing.T) {
	v := NewValuator(store.NewMemoryStore(), zerolog.Nop())

	snap := v.Compute(
		[]domain.Holding{{
			Symbol:    "AAPL",
			Quantity:  decimal.NewFromInt(10),
			CostBasis: decimal.NewFromInt(1000),
		}},
		map[string]domain.PriceQuote{"AAPL": quote("AAPL", "150")},
	)

	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(1500)))
	assert.True(t, snap.PerHolding["AAPL"].Equal(decimal.NewFromInt(1500)))
	assert.Empty(t, snap.Omitted)
}

func TestComputePerHoldingSumEqualsTotal(t *testing.T) {
	v := NewValuator(store.NewMemoryStore(), zerolog.Nop())

	holdings := []domain.Holding{
		{Symbol: "AAA", Quantity: decimal.RequireFromString("3.333"), CostBasis: decimal.NewFromInt(100)},
		{Symbol: "BBB", Quantity: decimal.RequireFromString("7.777"), CostBasis: decimal.NewFromInt(200)},
		{Symbol: "CCC", Quantity: decimal.RequireFromString("0.001"), CostBasis: decimal.NewFromInt(300)},
	}
	prices := map[string]domain.PriceQuote{
		"AAA": quote("AAA", "33.337"),
		"BBB": quote("BBB", "147.013"),
		"CCC": quote("CCC", "9999.99"),
	}

	snap := v.Compute(holdings, prices)

	sum := decimal.Zero
	for _, value := range snap.PerHolding {
		assert.True(t, value.Equal(value.Round(2)), "per-holding values are rounded to 2 places")
		sum = sum.Add(value)
	}
	assert.True(t, sum.Equal(snap.TotalValue), "sum %s != total %s", sum, snap.TotalValue)
}

func TestComputeOmitsHoldingWithoutPrice(t *testing.T) {
	v := NewValuator(store.NewMemoryStore(), zerolog.Nop())

	snap := v.Compute(
		[]domain.Holding{
			{Symbol: "AAPL", Quantity: decimal.NewFromInt(10), CostBasis: decimal.NewFromInt(1000)},
			{Symbol: "GHOST", Quantity: decimal.NewFromInt(5), CostBasis: decimal.NewFromInt(500)},
		},
		map[string]domain.PriceQuote{"AAPL": quote("AAPL", "150")},
	)

	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, []string{"GHOST"}, snap.Omitted)
	_, present := snap.PerHolding["GHOST"]
	assert.False(t, present)
}

func TestComputeAndPersist(t *testing.T) {
	st := store.NewMemoryStore()
	v := NewValuator(st, zerolog.Nop())
	at := time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC)

	snap, err := v.ComputeAndPersist(
		[]domain.Holding{{Symbol: "AAPL", Quantity: decimal.NewFromInt(10), CostBasis: decimal.NewFromInt(1000)}},
		map[string]domain.PriceQuote{"AAPL": quote("AAPL", "150")},
		at,
	)
	require.NoError(t, err)
	assert.Equal(t, at, snap.At)

	stored, err := st.GetLatestValuation()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.TotalValue.Equal(decimal.NewFromInt(1500)))
}
