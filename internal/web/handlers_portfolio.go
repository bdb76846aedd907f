package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pooltrack/pooltrack/internal/analytics"
	"github.com/pooltrack/pooltrack/internal/auth"
	"github.com/pooltrack/pooltrack/internal/pricing"
	"github.com/pooltrack/pooltrack/internal/types"
)

// handlePortfolioSummary aggregates KPIs across all of the owner's pools.
// Each request recomputes from a fresh snapshot; nothing is cached between
// requests, so a slow earlier response can never overwrite a newer one.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	pools, entries, ok := s.portfolioSnapshot(w, r, ownerID)
	if !ok {
		return
	}

	byPool := analytics.EntriesByPool(entries)

	var activeIDs []string
	for _, pool := range pools {
		if analytics.IsActive(byPool[pool.ID]) {
			activeIDs = append(activeIDs, pool.TokenAID, pool.TokenBID)
		}
	}
	live := s.liveQuotes(r, activeIDs)

	s.writeJSONResponse(w, http.StatusOK, analytics.Aggregate(pools, byPool, live))
}

// handlePortfolioSeries returns the portfolio's value-over-time chart data.
func (s *Server) handlePortfolioSeries(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	_, entries, ok := s.portfolioSnapshot(w, r, ownerID)
	if !ok {
		return
	}

	series := analytics.PortfolioSeries(entries)

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"series": series,
		"count":  len(series),
	})
}

// handlePrices is a live-quote passthrough for the dashboard.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}

	var ids []string
	for _, id := range strings.Split(idsParam, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	quotes, err := s.prices.CurrentPrices(r.Context(), ids)
	if err != nil {
		webLogger.Error().Err(err).Str("ids", idsParam).Msg("Failed to fetch live quotes")
		s.writeErrorResponse(w, priceStatusCode(err), "Failed to retrieve prices")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"prices": quotes})
}

// handleGetSettings returns the owner's settings, falling back to defaults
// when none were saved yet.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	settings, err := s.repo.Settings(r.Context(), ownerID)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load settings")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, settings)
}

// handleSaveSettings stores the owner's settings.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	var payload struct {
		UsdToBRL float64 `json:"usdToBRL"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.UsdToBRL <= 0 {
		s.writeValidationErrors(w, map[string]string{"usdToBRL": "usdToBRL must be positive"})
		return
	}

	settings := types.UserSettings{OwnerID: ownerID, UsdToBRL: payload.UsdToBRL}
	if err := s.repo.SaveSettings(r.Context(), settings); err != nil {
		webLogger.Error().Err(err).Msg("Failed to save settings")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, settings)
}

// portfolioSnapshot loads the owner's pools and entries in one place. On
// failure it writes the error response and reports false.
func (s *Server) portfolioSnapshot(w http.ResponseWriter, r *http.Request, ownerID string) ([]types.Pool, []types.DailyEntry, bool) {
	pools, err := s.repo.Pools(r.Context(), ownerID)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list pools")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pools")
		return nil, nil, false
	}

	entries, err := s.repo.Entries(r.Context(), ownerID)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list entries")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve entries")
		return nil, nil, false
	}

	return pools, entries, true
}

// priceStatusCode maps price source failures onto HTTP statuses.
func priceStatusCode(err error) int {
	switch {
	case errors.Is(err, pricing.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, pricing.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
