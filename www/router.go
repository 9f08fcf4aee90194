package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"fieldcore/engine"
)

type Handlers struct {
	engine       *engine.Engine
	sessionStore *sessions.CookieStore
	eventHub     *EventHub
}

// NewRouter builds the HTTP surface. The returned stop function shuts down
// the SSE hub.
func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	h := &Handlers{
		engine:       eng,
		sessionStore: sessions.NewCookieStore([]byte(eng.AppConfig().Web.SessionSecret)),
		eventHub:     NewEventHub(),
	}
	h.eventHub.Attach(eng.Events)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", h.apiHealthCheck)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)
	r.Get("/events", h.eventHub.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/equipment", h.apiListEquipment)
		r.Post("/api/equipment", h.apiCreateEquipment)
		r.Put("/api/equipment/{id}", h.apiUpdateEquipment)
		r.Delete("/api/equipment/{id}", h.apiDeleteEquipment)
		r.Post("/api/equipment/{id}/transfer", h.apiTransferEquipment)
		r.Get("/api/equipment/{id}/history", h.apiEquipmentHistory)
		r.Get("/api/equipment-types", h.apiListEquipmentTypes)
		r.Post("/api/equipment-types", h.apiCreateEquipmentType)
		r.Get("/api/locations", h.apiListLocations)
		r.Post("/api/locations", h.apiCreateLocation)
		r.Get("/api/jobs", h.apiListJobs)
		r.Post("/api/jobs", h.apiCreateJob)
		r.Get("/api/audit", h.apiLedgerAudit)
		r.Get("/api/conflicts", h.apiListConflicts)

		r.Post("/api/jobs/{id}/session", h.apiOpenSession)
		r.Delete("/api/jobs/{id}/session", h.apiCloseSession)
		r.Get("/api/jobs/{id}/diagram", h.apiGetDiagram)
		r.Put("/api/jobs/{id}/diagram", h.apiUpdateDiagram)
		r.Post("/api/jobs/{id}/allocate", h.apiAllocate)
		r.Post("/api/jobs/{id}/deallocate", h.apiDeallocate)
		r.Get("/api/jobs/{id}/usage", h.apiUsage)
		r.Get("/api/jobs/{id}/validate", h.apiValidate)
		r.Get("/api/jobs/{id}/sync", h.apiSyncStatus)
		r.Post("/api/jobs/{id}/sync", h.apiSyncNow)
		r.Get("/api/jobs/{id}/conflicts", h.apiJobConflicts)
		r.Post("/api/jobs/{id}/conflicts/{conflictID}/resolve", h.apiResolveConflict)
	})

	return r, h.eventHub.Close
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
