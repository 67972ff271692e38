package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/store"
	"github.com/alnkravchenko/tracking-bot/internal/workflow"
)

// PeopleHandler exposes chat identities to the console. People register
// through the bot; the console can only inspect and promote them.
type PeopleHandler struct {
	DB     *sql.DB
	Engine *workflow.Engine
}

// List handles GET /api/people.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := store.ListPeople(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list people", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list people")
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	jsonResponse(w, http.StatusOK, people)
}

// Get handles GET /api/people/{id}.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	person, err := store.GetPerson(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get person", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get person")
		return
	}
	if person == nil {
		jsonError(w, http.StatusNotFound, "person not found")
		return
	}

	jsonResponse(w, http.StatusOK, person)
}

// GetEquipment handles GET /api/people/{id}/equipment, listing the items a
// person currently holds.
func (h *PeopleHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	person, err := store.GetPerson(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get person", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get person")
		return
	}
	if person == nil {
		jsonError(w, http.StatusNotFound, "person not found")
		return
	}

	held, err := store.ListEquipment(r.Context(), h.DB, 0, id)
	if err != nil {
		slog.Error("failed to list held equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list held equipment")
		return
	}
	if held == nil {
		held = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, held)
}

// Promote handles POST /api/people/{id}/promote, verifying a person from the
// console instead of a chat button.
func (h *PeopleHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid person id")
		return
	}

	person, err := h.Engine.Verify(r.Context(), id)
	if errors.Is(err, workflow.ErrPersonNotFound) {
		jsonError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		slog.Error("failed to promote person", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to promote person")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("person promoted", "user", claims.Username, "person", person.Name, "id", person.ID)
	jsonResponse(w, http.StatusOK, person)
}
