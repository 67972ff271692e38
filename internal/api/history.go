package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/store"
)

// HistoryHandler exposes the append-only custody ledger.
type HistoryHandler struct {
	DB *sql.DB
}

// List handles GET /api/history. Filters: equipment_id, holder_id, or
// from/to dates (YYYY-MM-DD, inclusive on both ends). With no filters the
// full ledger for the last 30 days is returned.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if equipmentID, _ := strconv.ParseInt(q.Get("equipment_id"), 10, 64); equipmentID > 0 {
		entries, err := store.HistoryForEquipment(r.Context(), h.DB, equipmentID)
		if err != nil {
			slog.Error("failed to load equipment history", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		writeHistory(w, entries)
		return
	}

	if holderID, _ := strconv.ParseInt(q.Get("holder_id"), 10, 64); holderID > 0 {
		entries, err := store.HistoryForHolder(r.Context(), h.DB, holderID)
		if err != nil {
			slog.Error("failed to load holder history", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		writeHistory(w, entries)
		return
	}

	from := time.Now().AddDate(0, 0, -30)
	to := time.Now()
	if fromStr := q.Get("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if toStr := q.Get("to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		jsonError(w, http.StatusBadRequest, "to date is before from date")
		return
	}

	entries, err := store.HistoryForPeriod(r.Context(), h.DB, from, to)
	if err != nil {
		slog.Error("failed to load period history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeHistory(w, entries)
}

func writeHistory(w http.ResponseWriter, entries []model.HistoryEntry) {
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
