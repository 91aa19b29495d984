package inventory

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler exposes medicine endpoints.
type Handler struct {
	Svc *Service
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "inventory service not configured", nil)
		return false
	}
	return true
}

// List handles GET /medicines.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	q := r.URL.Query()
	page, perPage := common.ParsePagination(r, 20)
	f := ListFilter{
		Search:      q.Get("search"),
		Category:    Category(q.Get("category")),
		Status:      q.Get("status"),
		StockStatus: q.Get("stockStatus"),
		SortBy:      q.Get("sortBy"),
		SortDesc:    strings.EqualFold(q.Get("sortOrder"), "desc"),
		Page:        page,
		PerPage:     perPage,
	}
	items, pg, err := h.Svc.List(r.Context(), f)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": pg})
}

// LowStock handles GET /medicines/alerts/low-stock.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	items, err := h.Svc.LowStock(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Expiring handles GET /medicines/alerts/expiring?days=.
func (h *Handler) Expiring(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	days := common.QueryInt(r, "days", 0)
	items, err := h.Svc.Expiring(r.Context(), days)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Get handles GET /medicines/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	m, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, m)
}

// Create handles POST /medicines.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var in MedicineInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	m, err := h.Svc.Create(r.Context(), in, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, m)
}

// Update handles PUT /medicines/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var in MedicineInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	m, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), in, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, m)
}

type stockRequest struct {
	Operation string `json:"operation"`
	Quantity  *int   `json:"quantity"`
}

// AdjustStock handles PATCH /medicines/{id}/stock.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req stockRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.Quantity == nil {
		common.WriteError(w, common.ValidationError("Quantity must be a positive number", nil))
		return
	}
	actor, _ := common.UserID(r.Context())
	lvl, err := h.Svc.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Operation, *req.Quantity, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, lvl)
}

// Delete handles DELETE /medicines/{id}; the record is deactivated, not removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	actor, _ := common.UserID(r.Context())
	if err := h.Svc.Deactivate(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
