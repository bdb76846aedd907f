package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoricalPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/ethereum/history", r.URL.Path)
		assert.Equal(t, "15-01-2024", r.URL.Query().Get("date"))
		w.Write([]byte(`{"market_data":{"current_price":{"usd":2500.42}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	price, err := c.HistoricalPrice(context.Background(), "ethereum", "2024-01-15")
	require.NoError(t, err)
	assert.InDelta(t, 2500.42, price, 1e-9)
}

func TestHistoricalPriceTypedFailures(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusBadRequest, ErrInvalidRequest},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := NewClient(srv.URL, "")
		_, err := c.HistoricalPrice(context.Background(), "nope", "2024-01-15")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}
}

func TestHistoricalPriceMissingUSD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market_data":{"current_price":{}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.HistoricalPrice(context.Background(), "ethereum", "2024-01-15")
	assert.ErrorIs(t, err, ErrPriceMissing)
}

func TestCurrentPricesDedupesAndSkipsUnknown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "ethereum,aave", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"ethereum":{"usd":3000},"aave":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	quotes, err := c.CurrentPrices(context.Background(), []string{"ethereum", "aave", "ethereum", ""})
	require.NoError(t, err)

	assert.InDelta(t, 3000.0, quotes["ethereum"], 1e-9)
	_, ok := quotes["aave"]
	assert.False(t, ok, "token without a USD quote must be absent")

	// Second call with the same ids is served from the cache.
	_, err = c.CurrentPrices(context.Background(), []string{"ethereum", "aave"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCurrentPricesEmptyInput(t *testing.T) {
	c := NewClient("http://unused.invalid", "")
	quotes, err := c.CurrentPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"market_data":{"current_price":{"usd":10}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	price, err := c.HistoricalPrice(context.Background(), "ethereum", "2024-01-15")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, price, 1e-9)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.HistoricalPrice(context.Background(), "ethereum", "2024-01-15")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}
