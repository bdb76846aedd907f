package analytics

import (
	"testing"

	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/types"
	"github.com/stretchr/testify/assert"
)

func entry(poolID, date string, value, feesA, feesB, withdrawn float64) types.DailyEntry {
	return types.DailyEntry{
		PoolID:                poolID,
		Date:                  date,
		PositionValueUSD:      value,
		FeesAccumulatedTokenA: feesA,
		FeesAccumulatedTokenB: feesB,
		FeesWithdrawnUSD:      withdrawn,
		TokenAPriceUSD:        2000,
		TokenBPriceUSD:        100,
	}
}

func TestComputePoolMetricsEmptyHistory(t *testing.T) {
	m := ComputePoolMetrics(nil)

	assert.Zero(t, m.InitialValue)
	assert.Zero(t, m.CurrentValue)
	assert.Zero(t, m.TotalWithdrawn)
	assert.Zero(t, m.GrossProfitability)
	assert.Zero(t, m.NetProfitability)
}

func TestComputePoolMetricsTwoEntryScenario(t *testing.T) {
	entries := []types.DailyEntry{
		entry("p1", "2024-01-01", 1000, 0, 0, 0),
		entry("p1", "2024-01-02", 1200, 0.1, 5, 20),
	}

	m := ComputePoolMetrics(entries)

	assert.InDelta(t, 1000.0, m.InitialValue, 1e-9)
	assert.InDelta(t, 1200.0, m.CurrentValue, 1e-9)
	assert.InDelta(t, 20.0, m.TotalWithdrawn, 1e-9)
	assert.InDelta(t, 0.20, m.GrossProfitability, 1e-9)
	assert.InDelta(t, 0.22, m.NetProfitability, 1e-9)
}

func TestComputePoolMetricsZeroInitialValue(t *testing.T) {
	entries := []types.DailyEntry{
		entry("p1", "2024-01-01", 0, 0, 0, 0),
		entry("p1", "2024-01-02", 500, 0, 0, 0),
	}

	m := ComputePoolMetrics(entries)

	// No division by zero: profitability short-circuits to 0.
	assert.Zero(t, m.GrossProfitability)
	assert.Zero(t, m.NetProfitability)
	assert.InDelta(t, 500.0, m.CurrentValue, 1e-9)
}

func TestNetProfitabilityMonotonicity(t *testing.T) {
	base := []types.DailyEntry{
		entry("p1", "2024-01-01", 1000, 0, 0, 0),
		entry("p1", "2024-01-02", 1100, 0, 0, 10),
	}
	ref := ComputePoolMetrics(base)

	// Strictly increasing in current value.
	higherValue := []types.DailyEntry{
		entry("p1", "2024-01-01", 1000, 0, 0, 0),
		entry("p1", "2024-01-02", 1101, 0, 0, 10),
	}
	assert.Greater(t, ComputePoolMetrics(higherValue).NetProfitability, ref.NetProfitability)

	// Strictly increasing in withdrawn total.
	higherWithdrawn := []types.DailyEntry{
		entry("p1", "2024-01-01", 1000, 0, 0, 0),
		entry("p1", "2024-01-02", 1100, 0, 0, 11),
	}
	assert.Greater(t, ComputePoolMetrics(higherWithdrawn).NetProfitability, ref.NetProfitability)
}

func TestFeeSeriesUsesStoredPrices(t *testing.T) {
	entries := []types.DailyEntry{
		entry("p1", "2024-01-01", 1000, 1, 10, 0),
		entry("p1", "2024-01-02", 1000, 2, 20, 0),
	}

	series := FeeSeries(entries)

	assert.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].Date)
	assert.InDelta(t, 1*2000.0+10*100.0, series[0].FeesValueUSD, 1e-9)
	assert.InDelta(t, 2*2000.0+20*100.0, series[1].FeesValueUSD, 1e-9)
}

func TestUncollectedFeesPrefersLivePrices(t *testing.T) {
	pool := types.Pool{ID: "p1", TokenAID: "ethereum", TokenBID: "aave"}
	entries := []types.DailyEntry{entry("p1", "2024-01-01", 1000, 2, 10, 0)}

	// Both live quotes present.
	live := pricing.Quotes{"ethereum": 3000, "aave": 150}
	assert.InDelta(t, 2*3000.0+10*150.0, UncollectedFees(pool, entries, live), 1e-9)

	// Only one live quote: per-token fallback to stored price.
	partial := pricing.Quotes{"ethereum": 3000}
	assert.InDelta(t, 2*3000.0+10*100.0, UncollectedFees(pool, entries, partial), 1e-9)

	// No live quotes at all.
	assert.InDelta(t, 2*2000.0+10*100.0, UncollectedFees(pool, entries, pricing.Quotes{}), 1e-9)

	// No entries.
	assert.Zero(t, UncollectedFees(pool, nil, live))
}

func TestIsActive(t *testing.T) {
	// A pool with no entries is new and counts as active.
	assert.True(t, IsActive(nil))

	exited := []types.DailyEntry{entry("p1", "2024-01-01", 0, 0, 0, 0)}
	assert.False(t, IsActive(exited))

	tiny := []types.DailyEntry{entry("p1", "2024-01-01", 0.01, 0, 0, 0)}
	assert.True(t, IsActive(tiny))

	// Only the latest entry decides.
	reopened := []types.DailyEntry{
		entry("p1", "2024-01-01", 100, 0, 0, 0),
		entry("p1", "2024-01-02", 0, 0, 0, 0),
	}
	assert.False(t, IsActive(reopened))
}
