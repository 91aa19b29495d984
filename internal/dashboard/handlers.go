package dashboard

import (
	"net/http"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler exposes dashboard read endpoints.
type Handler struct {
	Svc *Service
}

// Stats handles GET /dashboard/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, stats)
}

// SalesChart handles GET /dashboard/sales-chart?period=week|month|year.
func (h *Handler) SalesChart(w http.ResponseWriter, r *http.Request) {
	period := ParsePeriod(r.URL.Query().Get("period"), PeriodWeek)
	points, err := h.Svc.SalesChart(r.Context(), period)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"period": period, "chartData": points})
}

// TopMedicines handles GET /dashboard/top-medicines.
func (h *Handler) TopMedicines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := ParsePeriod(q.Get("period"), PeriodMonth)
	items, err := h.Svc.TopMedicines(r.Context(), period, common.QueryInt(r, "limit", defaultLimit))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"topMedicines": items})
}

// Activities handles GET /dashboard/activities.
func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.Activities(r.Context(), common.QueryInt(r, "limit", defaultLimit))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"activities": items})
}
