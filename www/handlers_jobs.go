package www

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fieldcore/alloc"
	"fieldcore/engine"
	"fieldcore/reconcile"
	"fieldcore/store"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"site_id":   h.engine.AppConfig().SiteID,
		"messaging": h.engine.MsgClient().IsConnected(),
	}
	if err := h.engine.DB().Ping(); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
	}
	h.jsonOK(w, status)
}

func (h *Handlers) apiListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.engine.DB().ListJobs(r.URL.Query().Get("status"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, jobs)
}

func (h *Handlers) apiCreateJob(w http.ResponseWriter, r *http.Request) {
	var j store.Job
	if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateJob(&j); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, j)
}

func (h *Handlers) apiListConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.engine.OpenConflicts()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, conflicts)
}

func (h *Handlers) apiOpenSession(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid job id", http.StatusBadRequest)
		return
	}
	s, err := h.engine.OpenSession(jobID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.jsonOK(w, map[string]any{"job_id": s.JobID(), "job": s.Job()})
}

func (h *Handlers) apiCloseSession(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid job id", http.StatusBadRequest)
		return
	}
	h.engine.CloseSession(jobID)
	h.jsonOK(w, map[string]bool{"closed": true})
}

// session resolves the open session for a job route, writing the error
// response itself when there is none.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *engine.Session {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid job id", http.StatusBadRequest)
		return nil
	}
	s := h.engine.Session(jobID)
	if s == nil {
		h.jsonError(w, "no open session for job", http.StatusConflict)
		return nil
	}
	return s
}

func (h *Handlers) apiGetDiagram(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	snapshot, err := s.Snapshot()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snapshot)
}

func (h *Handlers) apiUpdateDiagram(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	snapshot, err := io.ReadAll(r.Body)
	if err != nil {
		h.jsonError(w, "read body", http.StatusBadRequest)
		return
	}
	if err := s.UpdateGraph(snapshot); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.jsonOK(w, map[string]bool{"ok": true})
}

func (h *Handlers) apiAllocate(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req struct {
		NodeID string `json:"node_id"`
		EdgeID string `json:"edge_id"`
		Serial string `json:"serial"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	var out alloc.Outcome
	if req.EdgeID != "" {
		out = s.AllocateCableToEdge(req.EdgeID, req.Serial)
	} else {
		out = s.AllocateToNode(req.NodeID, req.Serial)
	}
	h.jsonOK(w, map[string]any{"ok": out.OK, "conflict": out.Conflict})
}

func (h *Handlers) apiDeallocate(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req struct {
		NodeID string `json:"node_id"`
		EdgeID string `json:"edge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	ok := false
	if req.EdgeID != "" {
		ok = s.DeallocateCableFromEdge(req.EdgeID)
	} else {
		ok = s.DeallocateFromNode(req.NodeID)
	}
	h.jsonOK(w, map[string]bool{"ok": ok})
}

func (h *Handlers) apiUsage(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	u, err := s.Usage()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, u)
}

func (h *Handlers) apiValidate(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	locationID, err := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	if err != nil {
		h.jsonError(w, "location_id required", http.StatusBadRequest)
		return
	}
	result, err := s.Validate(locationID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, result)
}

func (h *Handlers) apiSyncStatus(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	h.jsonOK(w, map[string]any{
		"sync_status":    s.SyncStatus(),
		"last_sync_time": s.LastSyncTime(),
	})
}

func (h *Handlers) apiSyncNow(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.SyncNow()
	h.jsonOK(w, map[string]bool{"requested": true})
}

func (h *Handlers) apiJobConflicts(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	conflicts, err := s.Conflicts()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, conflicts)
}

func (h *Handlers) apiResolveConflict(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	conflictID := chi.URLParam(r, "conflictID")
	if err := s.ResolveConflict(conflictID, reconcile.Resolution(req.Resolution)); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.jsonOK(w, map[string]bool{"resolved": true})
}
