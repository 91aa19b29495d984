package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/dashboard"
)

var fixedNow = time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

type stubQueries struct {
	statsCalls int
	salesCalls int
	window     dashboard.StatsWindow
	bucket     string
	from       time.Time
	limits     []int
	rx         []dashboard.Activity
	bills      []dashboard.Activity
}

func (s *stubQueries) Stats(_ context.Context, w dashboard.StatsWindow) (dashboard.Stats, error) {
	s.statsCalls++
	s.window = w
	return dashboard.Stats{
		Today:  dashboard.TodayStats{Prescriptions: 3, Revenue: 1250.5, Customers: 2},
		Alerts: dashboard.AlertStats{LowStock: 4},
	}, nil
}

func (s *stubQueries) SalesSeries(_ context.Context, from time.Time, bucket string) ([]dashboard.SalesPoint, error) {
	s.salesCalls++
	s.from = from
	s.bucket = bucket
	return []dashboard.SalesPoint{{Label: "2025-03-13", TotalSales: 500, BillCount: 4}}, nil
}

func (s *stubQueries) TopMedicines(_ context.Context, _ time.Time, limit int) ([]dashboard.TopMedicine, error) {
	s.limits = append(s.limits, limit)
	return nil, nil
}

func (s *stubQueries) RecentPrescriptions(_ context.Context, limit int) ([]dashboard.Activity, error) {
	s.limits = append(s.limits, limit)
	return s.rx, nil
}

func (s *stubQueries) RecentBills(_ context.Context, limit int) ([]dashboard.Activity, error) {
	s.limits = append(s.limits, limit)
	return s.bills, nil
}

func newService(t *testing.T, q dashboard.Querier) (*dashboard.Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &dashboard.Service{Q: q, R: rdb, TTL: time.Minute, Now: func() time.Time { return fixedNow }}, mr
}

func TestStatsCached(t *testing.T) {
	q := &stubQueries{}
	svc, mr := newService(t, q)

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)
	second, err := svc.Stats(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, q.statsCalls)
	require.Equal(t, first, second)
	require.Equal(t, 1250.5, second.Today.Revenue)
	require.True(t, mr.Exists("dash:stats:2025-03-14"))

	require.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), q.window.DayStart)
	require.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), q.window.DayEnd)
	require.Equal(t, fixedNow, q.window.Now)
}

func TestStatsExpireWithTTL(t *testing.T) {
	q := &stubQueries{}
	svc, mr := newService(t, q)
	_, err := svc.Stats(context.Background())
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, q.statsCalls)
}

func TestSalesChartPeriods(t *testing.T) {
	q := &stubQueries{}
	svc, _ := newService(t, q)

	_, err := svc.SalesChart(context.Background(), dashboard.PeriodYear)
	require.NoError(t, err)
	require.Equal(t, "month", q.bucket)
	require.Equal(t, fixedNow.AddDate(0, 0, -365), q.from)

	points, err := svc.SalesChart(context.Background(), dashboard.PeriodWeek)
	require.NoError(t, err)
	require.Equal(t, "day", q.bucket)
	require.Equal(t, fixedNow.AddDate(0, 0, -7), q.from)
	require.Len(t, points, 1)

	_, err = svc.SalesChart(context.Background(), dashboard.PeriodWeek)
	require.NoError(t, err)
	require.Equal(t, 2, q.salesCalls)
}

func TestParsePeriod(t *testing.T) {
	require.Equal(t, dashboard.PeriodYear, dashboard.ParsePeriod("year", dashboard.PeriodWeek))
	require.Equal(t, dashboard.PeriodWeek, dashboard.ParsePeriod("decade", dashboard.PeriodWeek))
	require.Equal(t, dashboard.PeriodMonth, dashboard.ParsePeriod("", dashboard.PeriodMonth))
	require.Equal(t, 30, dashboard.PeriodMonth.Days())
}

func TestActivitiesMergeNewestFirst(t *testing.T) {
	at := func(h int) time.Time { return fixedNow.Add(-time.Duration(h) * time.Hour) }
	q := &stubQueries{
		rx: []dashboard.Activity{
			{ID: "rx1", Type: dashboard.ActivityPrescription, Timestamp: at(1)},
			{ID: "rx2", Type: dashboard.ActivityPrescription, Timestamp: at(4)},
		},
		bills: []dashboard.Activity{
			{ID: "b1", Type: dashboard.ActivityBill, Timestamp: at(2)},
			{ID: "b2", Type: dashboard.ActivityBill, Timestamp: at(3)},
		},
	}
	svc, _ := newService(t, q)

	items, err := svc.Activities(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, q.limits)
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}
	require.Equal(t, []string{"rx1", "b1", "b2"}, ids)
}

func TestTopMedicinesClampsLimit(t *testing.T) {
	q := &stubQueries{}
	svc, _ := newService(t, q)
	items, err := svc.TopMedicines(context.Background(), dashboard.PeriodMonth, 500)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Equal(t, []int{50}, q.limits)
}

func TestBillDescription(t *testing.T) {
	require.Equal(t, "₹162.4 from Asha", dashboard.BillDescription(162.4, "Asha"))
	require.Equal(t, "₹100 from Ravi", dashboard.BillDescription(100, "Ravi"))
}

func TestStatsHandler(t *testing.T) {
	svc, _ := newService(t, &stubQueries{})
	h := &dashboard.Handler{Svc: svc}
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data dashboard.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Data.Today.Prescriptions)
	require.Equal(t, 4, body.Data.Alerts.LowStock)
}

func TestUnconfiguredService(t *testing.T) {
	h := &dashboard.Handler{Svc: nil}
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
