package www

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fieldcore/ledger"
	"fieldcore/store"
)

func (h *Handlers) apiListEquipment(w http.ResponseWriter, r *http.Request) {
	var f store.EquipmentFilter
	q := r.URL.Query()
	if v := q.Get("job_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.JobID = &id
		}
	}
	if v := q.Get("location_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.LocationID = &id
		}
	}
	f.Status = q.Get("status")
	items, err := h.engine.Ledger().List(f)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, items)
}

func (h *Handlers) apiCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var e store.Equipment
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.Ledger().Create(&e); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, e)
}

func (h *Handlers) apiUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Status   *string  `json:"status"`
		Notes    *string  `json:"notes"`
		Quantity *float64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	var p ledger.Patch
	if req.Status != nil {
		s := ledger.Status(*req.Status)
		p.Status = &s
	}
	p.Notes = req.Notes
	p.Quantity = req.Quantity
	item, err := h.engine.Ledger().Update(id, p)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, item)
}

func (h *Handlers) apiDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Ledger().Delete(id); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]bool{"deleted": true})
}

func (h *Handlers) apiTransferEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		LocationID   int64  `json:"location_id"`
		LocationType string `json:"location_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	locType := ledger.LocationType(req.LocationType)
	if locType == "" {
		locType = ledger.LocationStorage
	}
	item, err := h.engine.Ledger().Transfer(id, req.LocationID, locType)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, item)
}

func (h *Handlers) apiEquipmentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.engine.DB().ListHistory(id, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiListEquipmentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.engine.DB().ListEquipmentTypes()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, types)
}

func (h *Handlers) apiCreateEquipmentType(w http.ResponseWriter, r *http.Request) {
	var t store.EquipmentType
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateEquipmentType(&t); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, t)
}

func (h *Handlers) apiListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.engine.DB().ListLocations()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, locations)
}

func (h *Handlers) apiCreateLocation(w http.ResponseWriter, r *http.Request) {
	var l store.Location
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateLocation(&l); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, l)
}

func (h *Handlers) apiLedgerAudit(w http.ResponseWriter, r *http.Request) {
	violations, err := h.engine.Ledger().Audit()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"violations": violations, "count": len(violations)})
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
