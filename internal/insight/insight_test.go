package insight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pooltrack/pooltrack/internal/types"
)

type fakeGenerator struct {
	lastPrompt string
	reply      string
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func TestSuggestYieldRequiresHistory(t *testing.T) {
	a := NewAnalyzer(&fakeGenerator{})

	_, err := a.SuggestYield(context.Background(), types.Pool{ID: "p1"}, nil, 50)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestSuggestYieldBuildsPromptFromHistory(t *testing.T) {
	gen := &fakeGenerator{reply: "Today's gain of $10.00 is above your daily average of $5.00."}
	a := NewAnalyzer(gen)

	pool := types.Pool{ID: "p1", Name: "ETH/USDC 0.05%", TokenA: "ETH", TokenB: "USDC"}
	entries := []types.DailyEntry{
		{Date: "2026-08-27", FeesAccumulatedTokenA: 0.01, TokenAPriceUSD: 2000, FeesAccumulatedTokenB: 10, TokenBPriceUSD: 1},
		{Date: "2026-08-28", FeesAccumulatedTokenA: 0.02, TokenAPriceUSD: 2000, FeesAccumulatedTokenB: 10, TokenBPriceUSD: 1},
	}

	analysis, err := a.SuggestYield(context.Background(), pool, entries, 60)
	require.NoError(t, err)
	assert.Equal(t, gen.reply, analysis)

	assert.Contains(t, gen.lastPrompt, "$60.00")
	assert.Contains(t, gen.lastPrompt, "ETH/USDC 0.05%")
	assert.Contains(t, gen.lastPrompt, `"feesAccumulatedUSD": 50`)
	assert.Contains(t, gen.lastPrompt, `"feesAccumulatedUSD": 30`)

	// Most recent entry must appear first in the history block.
	first := strings.Index(gen.lastPrompt, "2026-08-28")
	second := strings.Index(gen.lastPrompt, "2026-08-27")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestSuggestYieldPropagatesGeneratorFailure(t *testing.T) {
	wantErr := errors.New("model offline")
	a := NewAnalyzer(&fakeGenerator{err: wantErr})

	entries := []types.DailyEntry{{Date: "2026-08-28", FeesAccumulatedTokenA: 1, TokenAPriceUSD: 10}}
	_, err := a.SuggestYield(context.Background(), types.Pool{ID: "p1"}, entries, 20)
	assert.ErrorIs(t, err, wantErr)
}

func TestOpenAIGeneratorParsesCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  A fine day for fees.  "}}]}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(server.URL+"/v1", "test-key", "test-model")
	got, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "A fine day for fees.", got)
}

func TestOpenAIGeneratorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(server.URL, "", "test-model")
	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(server.URL, "", "test-model")
	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
