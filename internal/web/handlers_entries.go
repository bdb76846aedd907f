package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pooltrack/pooltrack/internal/auth"
	"github.com/pooltrack/pooltrack/internal/insight"
	"github.com/pooltrack/pooltrack/internal/state"
	"github.com/pooltrack/pooltrack/internal/types"
)

// handleUpsertEntry records a daily snapshot for a pool. A second write for
// the same date overwrites the first. Prices are stamped for the entry's
// date, so backdated entries carry that day's prices, not today's.
func (s *Server) handleUpsertEntry(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	poolID := mux.Vars(r)["id"]

	var payload struct {
		Date                  string  `json:"date"`
		PositionValueUSD      float64 `json:"positionValueUSD"`
		FeesAccumulatedTokenA float64 `json:"feesAccumulatedTokenA"`
		FeesAccumulatedTokenB float64 `json:"feesAccumulatedTokenB"`
		FeesWithdrawnUSD      float64 `json:"feesWithdrawnUSD"`
		Note                  string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	if payload.Date == "" {
		payload.Date = now.Format("2006-01-02")
	}

	fields := make(map[string]string)
	if parsed, err := time.Parse("2006-01-02", payload.Date); err != nil || parsed.Format("2006-01-02") != payload.Date {
		fields["date"] = "date must be in YYYY-MM-DD form"
	}
	if payload.PositionValueUSD < 0 {
		fields["positionValueUSD"] = "positionValueUSD must not be negative"
	}
	if payload.FeesAccumulatedTokenA < 0 {
		fields["feesAccumulatedTokenA"] = "feesAccumulatedTokenA must not be negative"
	}
	if payload.FeesAccumulatedTokenB < 0 {
		fields["feesAccumulatedTokenB"] = "feesAccumulatedTokenB must not be negative"
	}
	if payload.FeesWithdrawnUSD < 0 {
		fields["feesWithdrawnUSD"] = "feesWithdrawnUSD must not be negative"
	}
	if len(fields) > 0 {
		s.writeValidationErrors(w, fields)
		return
	}

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

	entry := types.DailyEntry{
		ID:                    uuid.NewString(),
		PoolID:                pool.ID,
		OwnerID:               ownerID,
		Date:                  payload.Date,
		PositionValueUSD:      payload.PositionValueUSD,
		FeesAccumulatedTokenA: payload.FeesAccumulatedTokenA,
		FeesAccumulatedTokenB: payload.FeesAccumulatedTokenB,
		FeesWithdrawnUSD:      payload.FeesWithdrawnUSD,
		Note:                  payload.Note,
		TokenAPriceUSD:        s.historicalPriceOrZero(r, pool.TokenAID, payload.Date),
		TokenBPriceUSD:        s.historicalPriceOrZero(r, pool.TokenBID, payload.Date),
		UsdToBRL:              s.usdToBRL(r),
		UpdatedAt:             now.Format(time.RFC3339),
	}

	if err := s.repo.UpsertEntry(r.Context(), entry); err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Str("date", entry.Date).
			Msg("Failed to upsert entry")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to save entry")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, entry)
}

// handleDeleteEntry removes one entry by id.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	entryID := mux.Vars(r)["id"]

	err := s.repo.DeleteEntry(r.Context(), entryID, ownerID)
	if errors.Is(err, state.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("entryId", entryID).Msg("Failed to delete entry")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete entry")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"deleted": true, "entryId": entryID})
}

// handleSuggestYield runs the yield analysis for a fee total the user is
// about to record.
func (s *Server) handleSuggestYield(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	poolID := mux.Vars(r)["id"]

	var payload struct {
		CurrentFeesUSD float64 `json:"currentFeesUSD"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

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

	analysis, err := s.analyzer.SuggestYield(r.Context(), pool, entries, payload.CurrentFeesUSD)
	if errors.Is(err, insight.ErrNoHistory) {
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "Not enough historical data for an analysis")
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Str("poolId", poolID).Msg("Yield analysis failed")
		s.writeErrorResponse(w, http.StatusBadGateway, "Yield analysis unavailable")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"analysis": analysis})
}
