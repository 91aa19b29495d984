// Package dashboard serves the read-only statistics shown on the pharmacy
// home screen. Results are cached in Redis for a short TTL.
package dashboard

import "time"

// Period selects the window of a chart.
type Period string

// Chart periods.
const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod falls back to def for unknown values.
func ParsePeriod(raw string, def Period) Period {
	switch Period(raw) {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(raw)
	}
	return def
}

// Days is the length of the window in days.
func (p Period) Days() int {
	switch p {
	case PeriodMonth:
		return 30
	case PeriodYear:
		return 365
	default:
		return 7
	}
}

// Bucket is the date_trunc unit used to group sales.
func (p Period) Bucket() string {
	if p == PeriodYear {
		return "month"
	}
	return "day"
}

// TodayStats covers the current calendar day.
type TodayStats struct {
	Prescriptions int     `json:"prescriptions"`
	Revenue       float64 `json:"revenue"`
	Customers     int     `json:"customers"`
}

// AlertStats counts records that need attention.
type AlertStats struct {
	LowStock             int `json:"lowStock"`
	ExpiringMedicines    int `json:"expiringMedicines"`
	PendingPrescriptions int `json:"pendingPrescriptions"`
}

// GeneralStats counts active records.
type GeneralStats struct {
	TotalMedicines int `json:"totalMedicines"`
	TotalUsers     int `json:"totalUsers"`
}

// Stats is the dashboard summary.
type Stats struct {
	Today   TodayStats   `json:"todayStats"`
	Alerts  AlertStats   `json:"alertStats"`
	General GeneralStats `json:"generalStats"`
}

// StatsWindow carries the bounds used by the stats query.
type StatsWindow struct {
	DayStart   time.Time
	DayEnd     time.Time
	Now        time.Time
	ExpiringBy time.Time
}

// SalesPoint is revenue for one bucket. Label is YYYY-MM-DD or YYYY-MM.
type SalesPoint struct {
	Label      string  `json:"label"`
	TotalSales float64 `json:"totalSales"`
	BillCount  int     `json:"billCount"`
}

// TopMedicine aggregates sold line items by medicine name.
type TopMedicine struct {
	MedicineName  string  `json:"medicineName"`
	TotalQuantity int     `json:"totalQuantity"`
	TotalRevenue  float64 `json:"totalRevenue"`
	SalesCount    int     `json:"salesCount"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	User        string    `json:"user"`
	Timestamp   time.Time `json:"timestamp"`
}

// Activity types.
const (
	ActivityPrescription = "prescription"
	ActivityBill         = "bill"
)
