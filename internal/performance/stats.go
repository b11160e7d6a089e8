package performance

import (
	"github.com/aristath/portwatch/internal/domain"
	"github.com/aristath/portwatch/pkg/formulas"
)

// HistoryStats summarizes the valuation series: mean period-over-period
// return and annualized volatility. Periods is the number of returns the
// stats were computed over.
type HistoryStats struct {
	Periods    int     `json:"periods"`
	MeanReturn float64 `json:"mean_return"`
	Volatility float64 `json:"volatility"`
}

// ComputeHistoryStats derives summary statistics from stored snapshots.
// Snapshots are expected newest-first, as the store returns them.
func ComputeHistoryStats(history []domain.ValuationSnapshot) HistoryStats {
	if len(history) < 2 {
		return HistoryStats{}
	}

	// Oldest first for return calculation
	values := make([]float64, len(history))
	for i, snap := range history {
		values[len(history)-1-i] = snap.TotalValue.InexactFloat64()
	}

	returns := formulas.CalculateReturns(values)

	return HistoryStats{
		Periods:    len(returns),
		MeanReturn: formulas.Mean(returns),
		Volatility: formulas.AnnualizedVolatility(returns),
	}
}
