/*

Yield insight: one natural-language sentence comparing today's fee gain to
the pool's historical daily average. The numeric context is prepared here;
the sentence itself comes from a text-generation collaborator behind the
TextGenerator interface.

*/

package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pooltrack/pooltrack/internal/logger"
	"github.com/pooltrack/pooltrack/internal/types"
)

var insightLogger = logger.GetForComponent("insight")

// ErrNoHistory indicates the pool has no prior entries to compare against.
var ErrNoHistory = errors.New("not enough historical data for an analysis")

// TextGenerator produces a completion for a prompt. Implementations wrap
// the external LLM service; tests substitute a canned one.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HistoryPoint is one historical observation handed to the generator.
type HistoryPoint struct {
	Date               string  `json:"date"`
	FeesAccumulatedUSD float64 `json:"feesAccumulatedUSD"`
}

// Analyzer builds prompts and runs them through a TextGenerator.
type Analyzer struct {
	generator TextGenerator
}

// NewAnalyzer creates an analyzer backed by the given generator.
func NewAnalyzer(generator TextGenerator) *Analyzer {
	return &Analyzer{generator: generator}
}

// SuggestYield analyzes a freshly entered cumulative fee total against the
// pool's history. entries is the pool's full history ordered ascending by
// date; currentFeesUSD is the new total the user just typed. Fails with
// ErrNoHistory when there is nothing to compare against.
func (a *Analyzer) SuggestYield(ctx context.Context, pool types.Pool, entries []types.DailyEntry, currentFeesUSD float64) (string, error) {
	if len(entries) == 0 {
		return "", ErrNoHistory
	}

	history := make([]HistoryPoint, 0, len(entries))
	for _, e := range entries {
		history = append(history, HistoryPoint{
			Date: e.Date,
			FeesAccumulatedUSD: e.FeesAccumulatedTokenA*e.TokenAPriceUSD +
				e.FeesAccumulatedTokenB*e.TokenBPriceUSD,
		})
	}
	// Most recent first: the generator subtracts the first item from the
	// new total to get today's gain.
	sort.Slice(history, func(i, j int) bool { return history[i].Date > history[j].Date })

	historyJSON, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}

	prompt := fmt.Sprintf(`You are an expert DeFi analyst. A new cumulative fee total was just recorded for a liquidity pool; provide a brief insight.

The user entered today's new accumulated fee total: $%.2f.

Based on the entry history, do the following:
1. Compute today's gain: subtract the most recent historical feesAccumulatedUSD (the first item in the list) from the new total.
2. Compute the average daily gain across the historical entries.
3. Reply with a single concise sentence comparing today's gain to that average.

Pool:
- Name: %s
- Pair: %s/%s

New accumulated fee total (user input): $%.2f

Entry history (most recent first):
%s

Example output: "Today's gain of $5.20 is slightly above your daily average of $4.80."
Round all amounts to two decimal places.`,
		currentFeesUSD, pool.Name, pool.TokenA, pool.TokenB, currentFeesUSD, historyJSON)

	analysis, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}

	insightLogger.Debug().
		Str("poolId", pool.ID).
		Float64("currentFeesUSD", currentFeesUSD).
		Msg("Yield analysis generated")
	return analysis, nil
}
