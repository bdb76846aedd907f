/*

Core domain types for the liquidity position tracker. Pools and daily entries
are the persisted records; the remaining types are derived views computed by
the analytics package.

*/

package types

// Pool is a tracked liquidity position definition.
type Pool struct {
	ID       string `json:"id"`
	OwnerID  string `json:"ownerId"`
	Platform string `json:"platform"`
	Name     string `json:"name"` // e.g. "ETH-AAVE 0.3%"
	TokenA   string `json:"tokenA"`
	TokenB   string `json:"tokenB"`
	TokenAID string `json:"tokenAId"` // CoinGecko id, e.g. "ethereum"
	TokenBID string `json:"tokenBId"`
	FeeTier  string `json:"feeTier"`

	// Price range bounds for the position, as a TokenA/TokenB ratio.
	// Invariant: RangeMax > RangeMin >= 0.
	RangeMin float64 `json:"rangeMin"`
	RangeMax float64 `json:"rangeMax"`

	CreatedAt string `json:"createdAt"` // RFC3339
}

// DailyEntry is one dated snapshot of a pool's value and accrued fees.
// Dates are calendar days in YYYY-MM-DD form; there is at most one entry
// per (PoolID, Date) pair.
type DailyEntry struct {
	ID      string `json:"id"`
	PoolID  string `json:"poolId"`
	OwnerID string `json:"ownerId"`
	Date    string `json:"date"`

	PositionValueUSD float64 `json:"positionValueUSD"`

	// Cumulative fees earned in each token since inception, as of Date.
	// Running totals, never daily increments.
	FeesAccumulatedTokenA float64 `json:"feesAccumulatedTokenA"`
	FeesAccumulatedTokenB float64 `json:"feesAccumulatedTokenB"`

	FeesWithdrawnUSD float64 `json:"feesWithdrawnUSD"`
	Note             string  `json:"note,omitempty"`

	// Prices stamped at entry time. These stay historical: chart series use
	// them even when a newer live quote exists.
	TokenAPriceUSD float64 `json:"tokenAPriceUSD"`
	TokenBPriceUSD float64 `json:"tokenBPriceUSD"`
	UsdToBRL       float64 `json:"usdToBRL"`

	UpdatedAt string `json:"updatedAt,omitempty"` // RFC3339
}

// UserSettings holds per-owner preferences.
type UserSettings struct {
	OwnerID  string  `json:"ownerId"`
	UsdToBRL float64 `json:"usdToBRL"`
}

// PoolMetrics is the per-pool output of the analytics engine.
// All amounts in USD, profitability as fractions (0.20 == +20%).
type PoolMetrics struct {
	InitialValue       float64 `json:"initialValue"`
	CurrentValue       float64 `json:"currentValue"`
	TotalWithdrawn     float64 `json:"totalWithdrawn"`
	GrossProfitability float64 `json:"grossProfitability"`
	NetProfitability   float64 `json:"netProfitability"`
}

// FeePoint is one point of the historical accumulated-fee series,
// valued at the entry's own stored prices.
type FeePoint struct {
	Date         string  `json:"date"`
	FeesValueUSD float64 `json:"feesValueUSD"`
}

// PortfolioSummary folds metrics across all of an owner's pools.
type PortfolioSummary struct {
	TotalInvested        float64 `json:"totalInvested"`
	CurrentTotalValue    float64 `json:"currentTotalValue"`
	TotalWithdrawn       float64 `json:"totalWithdrawn"`
	TotalAccumulatedFees float64 `json:"totalAccumulatedFees"`
	NetProfitability     float64 `json:"netProfitability"`
}

// ChartPoint is one date of the portfolio time series: the carried-forward
// total position value plus that day's (same-day only) withdrawals.
type ChartPoint struct {
	Date             string  `json:"date"`
	PositionValueUSD float64 `json:"positionValue"`
	WithdrawnUSD     float64 `json:"withdrawnFees"`
}
