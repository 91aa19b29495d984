package prescription

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler exposes prescription endpoints.
type Handler struct {
	Svc *Service
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "prescription service not configured", nil)
		return false
	}
	return true
}

// List handles GET /prescriptions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	q := r.URL.Query()
	dr, err := common.ParseDateRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	items, pg, err := h.Svc.List(r.Context(), ListFilter{
		Search:   q.Get("search"),
		Status:   Status(q.Get("status")),
		From:     dr.From,
		To:       dr.To,
		SortBy:   q.Get("sortBy"),
		SortDesc: !strings.EqualFold(q.Get("sortOrder"), "asc"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": pg})
}

// Get handles GET /prescriptions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	p, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Create handles POST /prescriptions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	p, err := h.Svc.Create(r.Context(), in, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, p)
}

// Update handles PUT /prescriptions/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	p, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), in, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// UpdateStatus handles PATCH /prescriptions/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	p, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Delete handles DELETE /prescriptions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
