package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pooltrack/pooltrack/internal/analytics"
	"github.com/pooltrack/pooltrack/internal/auth"
	"github.com/pooltrack/pooltrack/internal/numeric"
	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/state"
	"github.com/pooltrack/pooltrack/internal/types"
)

// poolPayload carries the user-editable pool fields. Range bounds arrive
// as strings because the dashboard forwards raw form input, which may use
// either decimal convention.
type poolPayload struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	TokenA   string `json:"tokenA"`
	TokenB   string `json:"tokenB"`
	TokenAID string `json:"tokenAId"`
	TokenBID string `json:"tokenBId"`
	FeeTier  string `json:"feeTier"`
	RangeMin string `json:"rangeMin"`
	RangeMax string `json:"rangeMax"`
}

// validate parses and checks the payload, collecting per-field messages.
func (p poolPayload) validate() (rangeMin, rangeMax float64, fields map[string]string) {
	fields = make(map[string]string)

	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(p.Platform) == "" {
		fields["platform"] = "platform is required"
	}
	if strings.TrimSpace(p.TokenA) == "" {
		fields["tokenA"] = "tokenA is required"
	}
	if strings.TrimSpace(p.TokenB) == "" {
		fields["tokenB"] = "tokenB is required"
	}
	if strings.TrimSpace(p.TokenAID) == "" {
		fields["tokenAId"] = "tokenAId is required"
	}
	if strings.TrimSpace(p.TokenBID) == "" {
		fields["tokenBId"] = "tokenBId is required"
	}

	var err error
	rangeMin, err = numeric.ParseLocaleNumber(p.RangeMin)
	if err != nil {
		fields["rangeMin"] = "rangeMin is not a valid number"
	}
	rangeMax, err = numeric.ParseLocaleNumber(p.RangeMax)
	if err != nil {
		fields["rangeMax"] = "rangeMax is not a valid number"
	}
	if _, ok := fields["rangeMin"]; !ok && rangeMin < 0 {
		fields["rangeMin"] = "rangeMin must not be negative"
	}
	if _, minBad := fields["rangeMin"]; !minBad {
		if _, maxBad := fields["rangeMax"]; !maxBad && rangeMax <= rangeMin {
			fields["rangeMax"] = "rangeMax must be greater than rangeMin"
		}
	}

	return rangeMin, rangeMax, fields
}

// handleListPools returns all of the owner's pools.
func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	pools, err := s.repo.Pools(r.Context(), ownerID)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list pools")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pools")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	})
}

// handleGetPool returns a single pool by id.
func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	poolID := mux.Vars(r)["id"]

	pool, err := s.repo.Pool(r.Context(), poolID, ownerID)
	if errors.Is(err, state.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Failed to get pool")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pool")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, pool)
}

// handleCreatePool creates a pool together with its first entry. The first
// entry is stamped with the tokens' historical prices for today so the fee
// series starts from a priced baseline.
func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	var payload struct {
		poolPayload
		InitialValueUSD float64 `json:"initialValueUSD"`
		Note            string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rangeMin, rangeMax, fields := payload.validate()
	if payload.InitialValueUSD < 0 {
		fields["initialValueUSD"] = "initialValueUSD must not be negative"
	}
	if len(fields) > 0 {
		s.writeValidationErrors(w, fields)
		return
	}

	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	pool := types.Pool{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Platform:  payload.Platform,
		Name:      payload.Name,
		TokenA:    payload.TokenA,
		TokenB:    payload.TokenB,
		TokenAID:  payload.TokenAID,
		TokenBID:  payload.TokenBID,
		FeeTier:   payload.FeeTier,
		RangeMin:  rangeMin,
		RangeMax:  rangeMax,
		CreatedAt: now.Format(time.RFC3339),
	}

	firstEntry := types.DailyEntry{
		ID:               uuid.NewString(),
		PoolID:           pool.ID,
		OwnerID:          ownerID,
		Date:             today,
		PositionValueUSD: payload.InitialValueUSD,
		Note:             payload.Note,
		TokenAPriceUSD:   s.historicalPriceOrZero(r, pool.TokenAID, today),
		TokenBPriceUSD:   s.historicalPriceOrZero(r, pool.TokenBID, today),
		UsdToBRL:         s.usdToBRL(r),
		UpdatedAt:        now.Format(time.RFC3339),
	}

	if err := s.repo.CreatePool(r.Context(), pool, firstEntry); err != nil {
		webLogger.Error().Err(err).Str("poolId", pool.ID).Msg("Failed to create pool")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create pool")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, pool)
}

// handleUpdatePool edits a pool's mutable fields. Non-nil initial values
// rewrite the pool's earliest entry in place.
func (s *Server) handleUpdatePool(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	poolID := mux.Vars(r)["id"]

	var payload struct {
		poolPayload
		InitialValueUSD   *float64 `json:"initialValueUSD"`
		InitialFeesTokenA *float64 `json:"initialFeesTokenA"`
		InitialFeesTokenB *float64 `json:"initialFeesTokenB"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rangeMin, rangeMax, fields := payload.validate()
	if len(fields) > 0 {
		s.writeValidationErrors(w, fields)
		return
	}

	pool := types.Pool{
		ID:       poolID,
		OwnerID:  ownerID,
		Platform: payload.Platform,
		Name:     payload.Name,
		TokenA:   payload.TokenA,
		TokenB:   payload.TokenB,
		TokenAID: payload.TokenAID,
		TokenBID: payload.TokenBID,
		FeeTier:  payload.FeeTier,
		RangeMin: rangeMin,
		RangeMax: rangeMax,
	}

	var initial *state.InitialValues
	if payload.InitialValueUSD != nil || payload.InitialFeesTokenA != nil || payload.InitialFeesTokenB != nil {
		initial = &state.InitialValues{
			PositionValueUSD:      payload.InitialValueUSD,
			FeesAccumulatedTokenA: payload.InitialFeesTokenA,
			FeesAccumulatedTokenB: payload.InitialFeesTokenB,
		}
	}

	err := s.repo.UpdatePool(r.Context(), pool, initial)
	if errors.Is(err, state.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Failed to update pool")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update pool")
		return
	}

	updated, err := s.repo.Pool(r.Context(), poolID, ownerID)
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Failed to reload updated pool")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve updated pool")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, updated)
}

// handleDeletePool removes a pool and all its entries.
func (s *Server) handleDeletePool(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	poolID := mux.Vars(r)["id"]

	err := s.repo.DeletePool(r.Context(), poolID, ownerID)
	if errors.Is(err, state.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Failed to delete pool")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete pool")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"deleted": true, "poolId": poolID})
}

// handlePoolMetrics returns the pool's computed KPIs, its resolved pair
// price with range status, and the historical fee series.
func (s *Server) handlePoolMetrics(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	poolID := mux.Vars(r)["id"]

	pool, err := s.repo.Pool(r.Context(), poolID, ownerID)
	if errors.Is(err, state.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Failed to get pool")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pool")
		return
	}

	entries, err := s.repo.PoolEntries(r.Context(), poolID, ownerID)
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Failed to get pool entries")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve entries")
		return
	}

	live := s.liveQuotes(r, []string{pool.TokenAID, pool.TokenBID})

	var lastEntry *types.DailyEntry
	if len(entries) > 0 {
		lastEntry = &entries[len(entries)-1]
	}
	pair := pricing.ResolvePair(pool.TokenAID, pool.TokenBID, live, lastEntry)

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool":               pool,
		"metrics":            analytics.ComputePoolMetrics(entries),
		"pairPrice":          pair,
		"rangeStatus":        pricing.CheckRange(pair, pool.RangeMin, pool.RangeMax),
		"feeSeries":          analytics.FeeSeries(entries),
		"uncollectedFeesUSD": analytics.UncollectedFees(pool, entries, live),
		"active":             analytics.IsActive(entries),
		"entries":            entries,
	})
}

// historicalPriceOrZero fetches a token's historical USD price for a date.
// Price source failures degrade to a zero stamp rather than blocking the
// write; downstream math treats zero prices as absent.
func (s *Server) historicalPriceOrZero(r *http.Request, tokenID, date string) float64 {
	if tokenID == "" {
		return 0
	}
	price, err := s.prices.HistoricalPrice(r.Context(), tokenID, date)
	if err != nil {
		webLogger.Warn().Err(err).Str("tokenId", tokenID).Str("date", date).
			Msg("Historical price unavailable, stamping zero")
		return 0
	}
	return price
}

// liveQuotes fetches current prices for the given ids, degrading to an
// empty quote set on failure.
func (s *Server) liveQuotes(r *http.Request, tokenIDs []string) pricing.Quotes {
	quotes, err := s.prices.CurrentPrices(r.Context(), tokenIDs)
	if err != nil {
		webLogger.Warn().Err(err).Msg("Live quotes unavailable")
		return pricing.Quotes{}
	}
	return quotes
}

// usdToBRL returns the owner's configured exchange rate.
func (s *Server) usdToBRL(r *http.Request) float64 {
	settings, err := s.repo.Settings(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		webLogger.Warn().Err(err).Msg("Failed to load settings, using zero rate")
		return 0
	}
	return settings.UsdToBRL
}
