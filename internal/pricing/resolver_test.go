package pricing

import (
	"math"
	"testing"

	"github.com/pooltrack/pooltrack/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestResolvePairPrefersLiveQuotes(t *testing.T) {
	last := &types.DailyEntry{TokenAPriceUSD: 100, TokenBPriceUSD: 50}
	live := Quotes{"ethereum": 3000, "aave": 150}

	pair := ResolvePair("ethereum", "aave", live, last)

	assert.True(t, pair.Defined)
	assert.True(t, pair.Live)
	assert.InDelta(t, 20.0, pair.Ratio, 1e-12)
}

func TestResolvePairFallsBackToStoredPrices(t *testing.T) {
	last := &types.DailyEntry{TokenAPriceUSD: 100, TokenBPriceUSD: 50}

	// Missing denominator quote forces fallback.
	pair := ResolvePair("ethereum", "aave", Quotes{"ethereum": 3000}, last)

	assert.True(t, pair.Defined)
	assert.False(t, pair.Live)
	assert.InDelta(t, 2.0, pair.Ratio, 1e-12)
}

func TestResolvePairZeroLiveDenominatorFallsBack(t *testing.T) {
	last := &types.DailyEntry{TokenAPriceUSD: 100, TokenBPriceUSD: 50}
	pair := ResolvePair("ethereum", "aave", Quotes{"ethereum": 3000, "aave": 0}, last)

	assert.True(t, pair.Defined)
	assert.False(t, pair.Live)
	assert.InDelta(t, 2.0, pair.Ratio, 1e-12)
}

func TestResolvePairUndetermined(t *testing.T) {
	// No live quotes, stored denominator is zero: must stay undefined.
	last := &types.DailyEntry{TokenAPriceUSD: 100, TokenBPriceUSD: 0}
	pair := ResolvePair("ethereum", "aave", Quotes{}, last)
	assert.False(t, pair.Defined)

	// No entry at all.
	pair = ResolvePair("ethereum", "aave", Quotes{}, nil)
	assert.False(t, pair.Defined)
}

func TestCheckRange(t *testing.T) {
	in := PairPrice{Ratio: 1.5, Defined: true}

	assert.Equal(t, InRange, CheckRange(in, 1.0, 2.0))
	assert.Equal(t, InRange, CheckRange(PairPrice{Ratio: 1.0, Defined: true}, 1.0, 2.0))
	assert.Equal(t, InRange, CheckRange(PairPrice{Ratio: 2.0, Defined: true}, 1.0, 2.0))
	assert.Equal(t, OutOfRange, CheckRange(PairPrice{Ratio: 2.5, Defined: true}, 1.0, 2.0))
	assert.Equal(t, OutOfRange, CheckRange(PairPrice{Ratio: 0.5, Defined: true}, 1.0, 2.0))
}

func TestCheckRangeUndeterminedIsNotFalse(t *testing.T) {
	// An undefined ratio must report unknown, never out-of-range.
	assert.Equal(t, RangeUnknown, CheckRange(PairPrice{}, 1.0, 2.0))
	assert.Equal(t, RangeUnknown, CheckRange(PairPrice{Ratio: 1.5, Defined: true}, math.NaN(), 2.0))
}
