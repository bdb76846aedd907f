/*

Per-pool analytics. Every function here is a pure fold over a pool's entry
history, ordered ascending by date. There are no failure modes: divisions
are guarded and missing values default to zero, so callers never receive an
error from this package.

*/

package analytics

import (
	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/types"
)

// ComputePoolMetrics derives the KPI set for one pool from its entries,
// ordered ascending by date. An empty history yields all zeros.
func ComputePoolMetrics(entries []types.DailyEntry) types.PoolMetrics {
	if len(entries) == 0 {
		return types.PoolMetrics{}
	}

	initialValue := entries[0].PositionValueUSD
	currentValue := entries[len(entries)-1].PositionValueUSD

	var totalWithdrawn float64
	for _, e := range entries {
		totalWithdrawn += e.FeesWithdrawnUSD
	}

	m := types.PoolMetrics{
		InitialValue:   initialValue,
		CurrentValue:   currentValue,
		TotalWithdrawn: totalWithdrawn,
	}
	if initialValue > 0 {
		m.GrossProfitability = (currentValue - initialValue) / initialValue
		m.NetProfitability = ((currentValue + totalWithdrawn) - initialValue) / initialValue
	}
	return m
}

// FeeSeries computes the historical accumulated-fee value per entry, using
// each entry's own stored prices. This is the charting series; the live
// "fees to collect" figure is UncollectedFees.
func FeeSeries(entries []types.DailyEntry) []types.FeePoint {
	series := make([]types.FeePoint, 0, len(entries))
	for _, e := range entries {
		series = append(series, types.FeePoint{
			Date: e.Date,
			FeesValueUSD: e.FeesAccumulatedTokenA*e.TokenAPriceUSD +
				e.FeesAccumulatedTokenB*e.TokenBPriceUSD,
		})
	}
	return series
}

// UncollectedFees values the latest entry's accumulated fees using live
// quotes where available, falling back per token to the entry's stored
// prices. Zero when the pool has no entries.
func UncollectedFees(pool types.Pool, entries []types.DailyEntry, live pricing.Quotes) float64 {
	if len(entries) == 0 {
		return 0
	}
	last := entries[len(entries)-1]

	priceA, ok := live[pool.TokenAID]
	if !ok {
		priceA = last.TokenAPriceUSD
	}
	priceB, ok := live[pool.TokenBID]
	if !ok {
		priceB = last.TokenBPriceUSD
	}

	return last.FeesAccumulatedTokenA*priceA + last.FeesAccumulatedTokenB*priceB
}

// IsActive reports whether a pool counts for portfolio aggregation. A pool
// with no entries yet is active; one whose latest recorded value is exactly
// zero is considered exited.
func IsActive(entries []types.DailyEntry) bool {
	if len(entries) == 0 {
		return true
	}
	return entries[len(entries)-1].PositionValueUSD > 0
}
