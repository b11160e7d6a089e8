package performance

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

func snapshot(total string) domain.ValuationSnapshot {
	return domain.ValuationSnapshot{
		At:         time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC),
		TotalValue: decimal.RequireFromString(total),
	}
}

func TestComputeGainAndReturn(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	record, err := calc.Compute(snapshot("1500"), decimal.NewFromInt(1000), domain.BaselineCostBasis)
	require.NoError(t, err)

	assert.True(t, record.AbsoluteGain.Equal(decimal.NewFromInt(500)))
	assert.True(t, record.PercentReturn.Equal(decimal.RequireFromString("0.5")), "percent return is a ratio, 0.5 means 50%%")
	assert.Equal(t, domain.BaselineCostBasis, record.BaselineMode)
	assert.True(t, record.BaselineValue.Equal(decimal.NewFromInt(1000)))
}

func TestComputeLoss(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	record, err := calc.Compute(snapshot("800"), decimal.NewFromInt(1000), domain.BaselineCostBasis)
	require.NoError(t, err)

	assert.True(t, record.AbsoluteGain.Equal(decimal.NewFromInt(-200)))
	assert.True(t, record.PercentReturn.Equal(decimal.RequireFromString("-0.2")))
}

func TestComputeFlat(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	record, err := calc.Compute(snapshot("1000"), decimal.NewFromInt(1000), domain.BaselineCostBasis)
	require.NoError(t, err)

	assert.True(t, record.AbsoluteGain.IsZero())
	assert.True(t, record.PercentReturn.IsZero())
}

func TestComputeZeroBaseline(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())

	_, err := calc.Compute(snapshot("1500"), decimal.Zero, domain.BaselineCostBasis)
	assert.ErrorIs(t, err, ErrZeroBaseline)

	_, err = calc.Compute(snapshot("1500"), decimal.NewFromInt(-10), domain.BaselineCostBasis)
	assert.ErrorIs(t, err, ErrZeroBaseline)
}

func TestResolveBaselineCostBasis(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())
	holdings := []domain.Holding{
		{Symbol: "AAPL", Quantity: decimal.NewFromInt(10), CostBasis: decimal.NewFromInt(1000)},
		{Symbol: "MSFT", Quantity: decimal.NewFromInt(5), CostBasis: decimal.NewFromInt(600)},
	}

	value, mode, err := calc.ResolveBaseline(domain.BaselineCostBasis, store.NewMemoryStore(), holdings)
	require.NoError(t, err)
	assert.Equal(t, domain.BaselineCostBasis, mode)
	assert.True(t, value.Equal(decimal.NewFromInt(1600)))
}

func TestResolveBaselinePriorSnapshot(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())
	st := store.NewMemoryStore()
	require.NoError(t, st.SaveValuation(domain.ValuationSnapshot{
		At:         time.Now().UTC(),
		TotalValue: decimal.NewFromInt(1450),
		PerHolding: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(1450)},
	}))

	value, mode, err := calc.ResolveBaseline(domain.BaselinePriorSnapshot, st, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.BaselinePriorSnapshot, mode)
	assert.True(t, value.Equal(decimal.NewFromInt(1450)))
}

func TestResolveBaselinePriorSnapshotFallsBackToCostBasis(t *testing.T) {
	calc := NewCalculator(zerolog.Nop())
	holdings := []domain.Holding{
		{Symbol: "AAPL", Quantity: decimal.NewFromInt(10), CostBasis: decimal.NewFromInt(1000)},
	}

	value, mode, err := calc.ResolveBaseline(domain.BaselinePriorSnapshot, store.NewMemoryStore(), holdings)
	require.NoError(t, err)
	assert.Equal(t, domain.BaselineCostBasis, mode, "empty store falls back to cost basis")
	assert.True(t, value.Equal(decimal.NewFromInt(1000)))
}

func TestComputeHistoryStats(t *testing.T) {
	base := time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC)
	// Newest first, as the store returns history
	history := []domain.ValuationSnapshot{
		{At: base, TotalValue: decimal.NewFromInt(1210)},
		{At: base.Add(-24 * time.Hour), TotalValue: decimal.NewFromInt(1100)},
		{At: base.Add(-48 * time.Hour), TotalValue: decimal.NewFromInt(1000)},
	}

	stats := ComputeHistoryStats(history)
	assert.Equal(t, 2, stats.Periods)
	assert.InDelta(t, 0.1, stats.MeanReturn, 1e-9)
	assert.InDelta(t, 0.0, stats.Volatility, 1e-9, "constant 10%% returns have zero volatility")
}

func TestComputeHistoryStatsTooShort(t *testing.T) {
	stats := ComputeHistoryStats([]domain.ValuationSnapshot{snapshot("1000")})
	assert.Zero(t, stats.Periods)
	assert.Zero(t, stats.MeanReturn)
}
