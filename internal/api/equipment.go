package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/scan"
	"github.com/alnkravchenko/tracking-bot/internal/store"
	"github.com/alnkravchenko/tracking-bot/internal/workflow"
)

// EquipmentHandler handles equipment registry endpoints. Registration goes
// through the engine so the console obeys the same ownership rules as the
// bot; custody itself is never written here.
type EquipmentHandler struct {
	DB     *sql.DB
	Engine *workflow.Engine
}

type createEquipmentRequest struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     int64  `json:"owner_id"` // defaults to the storehouse
}

type updateEquipmentRequest struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type labelResponse struct {
	Label string `json:"label"`
}

// List handles GET /api/equipment with optional category_id and holder_id
// filters.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)
	holderID, _ := strconv.ParseInt(r.URL.Query().Get("holder_id"), 10, 64)

	equipment, err := store.ListEquipment(r.Context(), h.DB, categoryID, holderID)
	if err != nil {
		slog.Error("failed to list equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list equipment")
		return
	}
	if equipment == nil {
		equipment = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, equipment)
}

// Create handles POST /api/equipment.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEquipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.CategoryID == 0 {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}
	if req.OwnerID == 0 {
		req.OwnerID = h.Engine.StorehouseID()
	}

	equipment, err := h.Engine.RegisterEquipment(r.Context(), req.CategoryID, req.Name, req.Description, req.OwnerID)
	switch {
	case errors.Is(err, workflow.ErrCategoryNotFound):
		jsonError(w, http.StatusBadRequest, "category not found")
		return
	case errors.Is(err, workflow.ErrPersonNotFound):
		jsonError(w, http.StatusBadRequest, "owner not found")
		return
	case errors.Is(err, workflow.ErrNotAuthorized):
		jsonError(w, http.StatusBadRequest, "owner must be an admin or the storehouse")
		return
	case err != nil:
		slog.Error("failed to register equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to register equipment")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment registered", "user", claims.Username, "equipment", req.Name)
	jsonResponse(w, http.StatusCreated, equipment)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	equipment, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment")
		return
	}
	if equipment == nil {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}

	jsonResponse(w, http.StatusOK, equipment)
}

// Update handles PUT /api/equipment/{id}. The holder cannot be changed here.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	var req updateEquipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.CategoryID == 0 {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}

	if err := store.UpdateEquipment(r.Context(), h.DB, id, req.CategoryID, req.Name, req.Description); err != nil {
		slog.Error("failed to update equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update equipment")
		return
	}

	equipment, _ := store.GetEquipment(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, equipment)
}

// Delete handles DELETE /api/equipment/{id}. Only items in the storehouse
// with no transfer or history rows can be removed; anything with a paper
// trail stays.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	equipment, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment")
		return
	}
	if equipment == nil {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}
	if equipment.HolderID != h.Engine.StorehouseID() {
		jsonError(w, http.StatusConflict, "equipment is checked out")
		return
	}

	if err := store.DeleteEquipment(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrReferenced) {
			jsonError(w, http.StatusConflict, "equipment has transfer history")
			return
		}
		slog.Error("failed to delete equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete equipment")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment deleted", "user", claims.Username, "equipment", equipment.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "equipment deleted"})
}

// GetLabel handles GET /api/equipment/{id}/label, returning the text payload
// to encode into the item's printed QR code.
func (h *EquipmentHandler) GetLabel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	equipment, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment")
		return
	}
	if equipment == nil {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}

	jsonResponse(w, http.StatusOK, labelResponse{Label: scan.FormatPayload(equipment.ID, equipment.Name)})
}

// GetHistory handles GET /api/equipment/{id}/history.
func (h *EquipmentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	equipment, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment")
		return
	}
	if equipment == nil {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}

	entries, err := store.HistoryForEquipment(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to load equipment history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
