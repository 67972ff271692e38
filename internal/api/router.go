package api

import (
	"database/sql"
	"net/http"

	"github.com/alnkravchenko/tracking-bot/internal/model"
	"github.com/alnkravchenko/tracking-bot/internal/workflow"
)

// NewRouter creates the console API router with all endpoints registered.
// Viewers can read everything; writes require the staff admin role.
func NewRouter(db *sql.DB, engine *workflow.Engine, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	staffHandler := &StaffHandler{DB: db}
	peopleHandler := &PeopleHandler{DB: db, Engine: engine}
	categoriesHandler := &CategoriesHandler{DB: db}
	equipmentHandler := &EquipmentHandler{DB: db, Engine: engine}
	transfersHandler := &TransfersHandler{DB: db}
	historyHandler := &HistoryHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.StaffAdmin)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Staff accounts (admin only).
	mux.Handle("GET /api/staff", authMW(requireAdmin(http.HandlerFunc(staffHandler.List))))
	mux.Handle("POST /api/staff", authMW(requireAdmin(http.HandlerFunc(staffHandler.Create))))
	mux.Handle("GET /api/staff/{id}", authMW(requireAdmin(http.HandlerFunc(staffHandler.Get))))
	mux.Handle("PUT /api/staff/{id}", authMW(requireAdmin(http.HandlerFunc(staffHandler.Update))))
	mux.Handle("PUT /api/staff/{id}/password", authMW(requireAdmin(http.HandlerFunc(staffHandler.ResetPassword))))
	mux.Handle("DELETE /api/staff/{id}", authMW(requireAdmin(http.HandlerFunc(staffHandler.Delete))))

	// People: read (all roles), promote (admin).
	mux.Handle("GET /api/people", authMW(http.HandlerFunc(peopleHandler.List)))
	mux.Handle("GET /api/people/{id}", authMW(http.HandlerFunc(peopleHandler.Get)))
	mux.Handle("GET /api/people/{id}/equipment", authMW(http.HandlerFunc(peopleHandler.GetEquipment)))
	mux.Handle("POST /api/people/{id}/promote", authMW(requireAdmin(http.HandlerFunc(peopleHandler.Promote))))

	// Categories: read (all roles), write (admin).
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("POST /api/categories", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Create))))
	mux.Handle("PUT /api/categories/{id}", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Update))))
	mux.Handle("DELETE /api/categories/{id}", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Delete))))

	// Equipment: read (all roles), write (admin).
	mux.Handle("GET /api/equipment", authMW(http.HandlerFunc(equipmentHandler.List)))
	mux.Handle("POST /api/equipment", authMW(requireAdmin(http.HandlerFunc(equipmentHandler.Create))))
	mux.Handle("GET /api/equipment/{id}", authMW(http.HandlerFunc(equipmentHandler.Get)))
	mux.Handle("PUT /api/equipment/{id}", authMW(requireAdmin(http.HandlerFunc(equipmentHandler.Update))))
	mux.Handle("DELETE /api/equipment/{id}", authMW(requireAdmin(http.HandlerFunc(equipmentHandler.Delete))))
	mux.Handle("GET /api/equipment/{id}/label", authMW(http.HandlerFunc(equipmentHandler.GetLabel)))
	mux.Handle("GET /api/equipment/{id}/history", authMW(http.HandlerFunc(equipmentHandler.GetHistory)))

	// Transfers (read only; custody changes happen through the bot).
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))

	// History ledger (read only).
	mux.Handle("GET /api/history", authMW(http.HandlerFunc(historyHandler.List)))

	return mux
}
