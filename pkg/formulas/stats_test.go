package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
	assert.Zero(t, Mean(nil))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-9)
	assert.Zero(t, StdDev(nil))
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-9)
	assert.InDelta(t, -0.1, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
}

func TestCalculateReturnsSkipsZeroDenominator(t *testing.T) {
	returns := CalculateReturns([]float64{0, 100})
	require.Len(t, returns, 1)
	assert.Zero(t, returns[0])
}

func TestAnnualizedVolatility(t *testing.T) {
	daily := []float64{0.01, -0.02, 0.015, 0.005}
	expected := StdDev(daily) * math.Sqrt(252)
	assert.InDelta(t, expected, AnnualizedVolatility(daily), 1e-12)
	assert.Zero(t, AnnualizedVolatility(nil))
}
