package billing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler exposes the bill endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /bills.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dr, err := common.ParseDateRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	items, pg, err := h.Svc.List(r.Context(), ListFilter{
		Search:        q.Get("search"),
		PaymentStatus: PaymentStatus(q.Get("paymentStatus")),
		From:          dr.From,
		To:            dr.To,
		SortBy:        q.Get("sortBy"),
		SortDesc:      !strings.EqualFold(q.Get("sortOrder"), "asc"),
		Page:          page,
		PerPage:       perPage,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": pg})
}

// Create handles POST /bills.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	b, err := h.Svc.Create(r.Context(), in, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, b)
}

// Get handles GET /bills/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, b)
}

// Update handles PUT /bills/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, _ := common.UserID(r.Context())
	b, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), in, actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, b)
}

// Cancel handles DELETE /bills/{id}. Bills are never removed.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := common.UserID(r.Context())
	b, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, b)
}
