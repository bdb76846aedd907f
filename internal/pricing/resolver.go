package pricing

import (
	"math"

	"github.com/pooltrack/pooltrack/internal/types"
)

// RangeStatus is the verdict on whether a pool's price ratio sits inside
// its configured bounds. Unknown means no usable ratio existed, which must
// render as an absence rather than "out of range".
type RangeStatus string

const (
	InRange      RangeStatus = "in_range"
	OutOfRange   RangeStatus = "out_of_range"
	RangeUnknown RangeStatus = "unknown"
)

// PairPrice is the resolved TokenA/TokenB price ratio for a pool.
// Defined is false when neither live quotes nor stored entry prices
// yielded a usable denominator.
type PairPrice struct {
	Ratio   float64 `json:"ratio"`
	Defined bool    `json:"defined"`
	Live    bool    `json:"live"`
}

// ResolvePair computes the current price ratio for a pool, preferring live
// quotes over the latest entry's stored prices. lastEntry may be nil when
// the pool has no entries yet.
func ResolvePair(tokenAID, tokenBID string, live Quotes, lastEntry *types.DailyEntry) PairPrice {
	liveA, okA := live[tokenAID]
	liveB, okB := live[tokenBID]
	if okA && okB && liveB != 0 {
		return PairPrice{Ratio: liveA / liveB, Defined: true, Live: true}
	}

	if lastEntry != nil && lastEntry.TokenBPriceUSD != 0 {
		return PairPrice{Ratio: lastEntry.TokenAPriceUSD / lastEntry.TokenBPriceUSD, Defined: true}
	}

	return PairPrice{}
}

// CheckRange reports whether the resolved ratio falls within [rangeMin,
// rangeMax]. Undefined ratios or non-finite bounds yield RangeUnknown.
func CheckRange(pair PairPrice, rangeMin, rangeMax float64) RangeStatus {
	if !pair.Defined || math.IsNaN(rangeMin) || math.IsNaN(rangeMax) {
		return RangeUnknown
	}
	if pair.Ratio >= rangeMin && pair.Ratio <= rangeMax {
		return InRange
	}
	return OutOfRange
}
