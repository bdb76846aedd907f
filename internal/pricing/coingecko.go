/*

CoinGecko price source client. Two operations are consumed by the tracker:
a historical USD price for one token on one calendar day (entry stamping),
and current USD prices for a set of tokens (dashboard live quotes).

Failures are typed so callers can distinguish a bad token id from a rate
limit; transient failures are retried with bounded exponential backoff,
client errors are not.

*/

package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pooltrack/pooltrack/internal/logger"
)

var priceLogger = logger.GetForComponent("price_source")

var (
	ErrNotFound       = errors.New("token id not found")
	ErrRateLimited    = errors.New("price API rate limit reached")
	ErrInvalidRequest = errors.New("invalid price request")
	ErrUnauthorized   = errors.New("price API key rejected")
	ErrUnavailable    = errors.New("price service unavailable")
	ErrPriceMissing   = errors.New("no price data for requested day")
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	requestTimeout = 15 * time.Second
	maxAttempts    = 3
	liveQuoteTTL   = 60 * time.Second
)

// Quotes maps token ids to current USD prices. Absence of an id means the
// source had no usable quote for it.
type Quotes map[string]float64

// Client talks to the CoinGecko REST API. Live quotes are cached for a
// short interval to stay inside free-tier rate limits.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu        sync.RWMutex
	liveCache Quotes
	liveIDs   string
	liveAt    time.Time
}

// NewClient creates a price source client. An empty baseURL selects the
// public API; apiKey may be empty for keyless access.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// HistoricalPrice returns the USD price of tokenID on the given calendar
// day (YYYY-MM-DD).
func (c *Client) HistoricalPrice(ctx context.Context, tokenID, date string) (float64, error) {
	if tokenID == "" || date == "" {
		return 0, fmt.Errorf("%w: token id and date are required", ErrInvalidRequest)
	}

	// CoinGecko wants dd-mm-yyyy for history lookups.
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: malformed date %q", ErrInvalidRequest, date)
	}
	formattedDate := parts[2] + "-" + parts[1] + "-" + parts[0]

	reqURL := fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false",
		c.baseURL, url.PathEscape(tokenID), formattedDate)

	body, err := c.getWithRetry(ctx, reqURL, tokenID)
	if err != nil {
		return 0, err
	}

	var resp struct {
		MarketData struct {
			CurrentPrice map[string]float64 `json:"current_price"`
		} `json:"market_data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to parse history response for %s: %w", tokenID, err)
	}

	price, ok := resp.MarketData.CurrentPrice["usd"]
	if !ok || price == 0 {
		priceLogger.Warn().
			Str("tokenId", tokenID).
			Str("date", formattedDate).
			Msg("History response carried no USD price")
		return 0, fmt.Errorf("%w: %s on %s", ErrPriceMissing, tokenID, date)
	}

	priceLogger.Debug().
		Str("tokenId", tokenID).
		Str("date", formattedDate).
		Float64("priceUSD", price).
		Msg("Historical price resolved")
	return price, nil
}

// CurrentPrices returns current USD prices for the given token ids.
// Duplicate ids are collapsed; ids the source cannot quote are simply
// absent from the result, not an error. Results are cached for one minute.
func (c *Client) CurrentPrices(ctx context.Context, tokenIDs []string) (Quotes, error) {
	unique := dedupe(tokenIDs)
	if len(unique) == 0 {
		return Quotes{}, nil
	}
	idsParam := strings.Join(unique, ",")

	c.mu.RLock()
	if c.liveIDs == idsParam && time.Since(c.liveAt) < liveQuoteTTL {
		cached := c.liveCache
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(idsParam))

	body, err := c.getWithRetry(ctx, reqURL, idsParam)
	if err != nil {
		return nil, err
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse live price response: %w", err)
	}

	quotes := make(Quotes, len(raw))
	for id, currencies := range raw {
		if usd, ok := currencies["usd"]; ok && usd != 0 {
			quotes[id] = usd
		}
	}
	for _, id := range unique {
		if _, ok := quotes[id]; !ok {
			priceLogger.Warn().Str("tokenId", id).Msg("Live price not found for token id")
		}
	}

	c.mu.Lock()
	c.liveCache = quotes
	c.liveIDs = idsParam
	c.liveAt = time.Now()
	c.mu.Unlock()

	return quotes, nil
}

// getWithRetry performs a GET with bounded exponential backoff. HTTP 4xx
// responses are permanent, 429/5xx and transport errors are retried.
func (c *Client) getWithRetry(ctx context.Context, reqURL, subject string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.withKey(reqURL), nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			priceLogger.Warn().Err(err).Str("subject", subject).Msg("Price request failed, will retry")
			return nil, err
		}
		defer resp.Body.Close()

		if err := statusError(resp.StatusCode); err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
				priceLogger.Warn().
					Int("statusCode", resp.StatusCode).
					Str("subject", subject).
					Msg("Transient price API failure, will retry")
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("%w: empty response body", ErrUnavailable)
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		priceLogger.Error().Err(err).Str("subject", subject).Msg("Price request exhausted retries")
		return nil, err
	}
	return body, nil
}

// withKey appends the demo-plan API key parameter when configured.
func (c *Client) withKey(reqURL string) string {
	if c.apiKey == "" {
		return reqURL
	}
	sep := "?"
	if strings.Contains(reqURL, "?") {
		sep = "&"
	}
	return reqURL + sep + "x_cg_demo_api_key=" + url.QueryEscape(c.apiKey)
}

// statusError maps an HTTP status to the typed failure taxonomy.
func statusError(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest:
		return ErrInvalidRequest
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
