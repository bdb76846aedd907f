package analytics

import (
	"testing"

	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesByPoolSortsByDate(t *testing.T) {
	entries := []types.DailyEntry{
		entry("a", "2024-01-03", 150, 0, 0, 0),
		entry("b", "2024-01-02", 200, 0, 0, 0),
		entry("a", "2024-01-01", 100, 0, 0, 0),
	}

	byPool := EntriesByPool(entries)

	require.Len(t, byPool["a"], 2)
	assert.Equal(t, "2024-01-01", byPool["a"][0].Date)
	assert.Equal(t, "2024-01-03", byPool["a"][1].Date)
	require.Len(t, byPool["b"], 1)
}

func TestAggregateTotals(t *testing.T) {
	pools := []types.Pool{
		{ID: "a", TokenAID: "ethereum", TokenBID: "aave"},
		{ID: "b", TokenAID: "bitcoin", TokenBID: "usd-coin"},
		{ID: "fresh"}, // no entries: excluded from invested/current totals
	}
	byPool := EntriesByPool([]types.DailyEntry{
		entry("a", "2024-01-01", 1000, 0, 0, 0),
		entry("a", "2024-01-05", 1300, 1, 0, 50),
		entry("b", "2024-01-02", 2000, 0, 0, 0),
		entry("b", "2024-01-04", 1900, 0, 5, 25),
	})

	s := Aggregate(pools, byPool, pricing.Quotes{})

	assert.InDelta(t, 3000.0, s.TotalInvested, 1e-9)
	assert.InDelta(t, 3200.0, s.CurrentTotalValue, 1e-9)
	assert.InDelta(t, 75.0, s.TotalWithdrawn, 1e-9)
	// Fee snapshot at stored prices: pool a 1*2000, pool b 5*100.
	assert.InDelta(t, 2500.0, s.TotalAccumulatedFees, 1e-9)
	// ((3200 + 75) - 3000) / 3000
	assert.InDelta(t, 275.0/3000.0, s.NetProfitability, 1e-9)
}

func TestAggregateEmptyPortfolio(t *testing.T) {
	s := Aggregate(nil, map[string][]types.DailyEntry{}, pricing.Quotes{})

	assert.Zero(t, s.TotalInvested)
	assert.Zero(t, s.NetProfitability)
}

// Two pools: A has entries on day1 and day3, B only on day2. The series
// carries each pool's last known value forward per date.
func TestPortfolioSeriesCarriesValuesForward(t *testing.T) {
	entries := []types.DailyEntry{
		entry("a", "2024-01-01", 100, 0, 0, 0),
		entry("a", "2024-01-03", 150, 0, 0, 0),
		entry("b", "2024-01-02", 200, 0, 0, 0),
	}

	points := PortfolioSeries(entries)

	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-01", points[0].Date)
	assert.InDelta(t, 100.0, points[0].PositionValueUSD, 1e-9)
	assert.InDelta(t, 300.0, points[1].PositionValueUSD, 1e-9)
	assert.InDelta(t, 350.0, points[2].PositionValueUSD, 1e-9)
}

func TestPortfolioSeriesSameDayWithdrawalsOnly(t *testing.T) {
	entries := []types.DailyEntry{
		entry("a", "2024-01-01", 100, 0, 0, 30),
		entry("a", "2024-01-02", 100, 0, 0, 0),
		entry("b", "2024-01-01", 50, 0, 0, 20),
	}

	points := PortfolioSeries(entries)

	require.Len(t, points, 2)
	// Withdrawals are summed for the day they happened, never carried.
	assert.InDelta(t, 50.0, points[0].WithdrawnUSD, 1e-9)
	assert.Zero(t, points[1].WithdrawnUSD)
}

func TestPortfolioSeriesExcludesZeroedPositions(t *testing.T) {
	entries := []types.DailyEntry{
		entry("a", "2024-01-01", 100, 0, 0, 0),
		entry("b", "2024-01-01", 50, 0, 0, 0),
		entry("a", "2024-01-02", 0, 0, 0, 0), // exited
	}

	points := PortfolioSeries(entries)

	require.Len(t, points, 2)
	assert.InDelta(t, 150.0, points[0].PositionValueUSD, 1e-9)
	assert.InDelta(t, 50.0, points[1].PositionValueUSD, 1e-9)
}

func TestPortfolioSeriesEmpty(t *testing.T) {
	assert.Empty(t, PortfolioSeries(nil))
}
