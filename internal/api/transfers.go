package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/store"
)

// TransfersHandler exposes the transfer log. Transfers are created and
// resolved only through the bot flows; the console just observes them.
type TransfersHandler struct {
	DB *sql.DB
}

// List handles GET /api/transfers with optional equipment_id, holder_id,
// status, and batch_id filters.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	equipmentID, _ := strconv.ParseInt(q.Get("equipment_id"), 10, 64)
	holderID, _ := strconv.ParseInt(q.Get("holder_id"), 10, 64)
	status := q.Get("status")
	batchID := q.Get("batch_id")

	if status != "" && status != model.TransferPending &&
		status != model.TransferVerified && status != model.TransferDeleted {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	transfers, err := store.ListTransfers(r.Context(), h.DB, equipmentID, holderID, status, batchID)
	if err != nil {
		slog.Error("failed to list transfers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}
