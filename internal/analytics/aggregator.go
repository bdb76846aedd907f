/*

Portfolio-level aggregation across all of an owner's pools. Like the
engine, everything here is a pure fold over snapshots; nothing is cached
between calls and nothing can fail.

*/

package analytics

import (
	"sort"

	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/types"
)

// EntriesByPool groups an owner's entries by pool id, each slice ordered
// ascending by date.
func EntriesByPool(entries []types.DailyEntry) map[string][]types.DailyEntry {
	byPool := make(map[string][]types.DailyEntry)
	for _, e := range entries {
		byPool[e.PoolID] = append(byPool[e.PoolID], e)
	}
	for _, es := range byPool {
		sort.SliceStable(es, func(i, j int) bool { return es[i].Date < es[j].Date })
	}
	return byPool
}

// Aggregate folds all pools into portfolio totals. totalInvested counts
// only pools that have at least one entry; totalAccumulatedFees is the
// live-or-fallback uncollected snapshot, not the historical series.
func Aggregate(pools []types.Pool, byPool map[string][]types.DailyEntry, live pricing.Quotes) types.PortfolioSummary {
	var s types.PortfolioSummary

	for _, pool := range pools {
		entries := byPool[pool.ID]
		if len(entries) == 0 {
			continue
		}
		s.TotalInvested += entries[0].PositionValueUSD
		s.CurrentTotalValue += entries[len(entries)-1].PositionValueUSD
		s.TotalAccumulatedFees += UncollectedFees(pool, entries, live)
	}

	for _, entries := range byPool {
		for _, e := range entries {
			s.TotalWithdrawn += e.FeesWithdrawnUSD
		}
	}

	if s.TotalInvested > 0 {
		s.NetProfitability = ((s.CurrentTotalValue + s.TotalWithdrawn) - s.TotalInvested) / s.TotalInvested
	}
	return s
}

// PortfolioSeries builds the per-date chart series. For each distinct date
// (ascending) the latest known entry per pool is carried forward; carried
// values above zero are summed into that date's portfolio value. The
// withdrawal bar sums only that same day's withdrawals, never carried ones.
func PortfolioSeries(entries []types.DailyEntry) []types.ChartPoint {
	if len(entries) == 0 {
		return []types.ChartPoint{}
	}

	dateSet := make(map[string]struct{})
	for _, e := range entries {
		dateSet[e.Date] = struct{}{}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	byDate := make(map[string][]types.DailyEntry)
	for _, e := range entries {
		byDate[e.Date] = append(byDate[e.Date], e)
	}

	carried := make(map[string]types.DailyEntry)
	points := make([]types.ChartPoint, 0, len(dates))
	for _, date := range dates {
		var withdrawn float64
		for _, e := range byDate[date] {
			carried[e.PoolID] = e
			withdrawn += e.FeesWithdrawnUSD
		}

		var positionValue float64
		for _, latest := range carried {
			if latest.PositionValueUSD > 0 {
				positionValue += latest.PositionValueUSD
			}
		}

		points = append(points, types.ChartPoint{
			Date:             date,
			PositionValueUSD: positionValue,
			WithdrawnUSD:     withdrawn,
		})
	}
	return points
}
