package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-apotek/internal/money"
)

// PGStore implements Querier on PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

const statsSQL = `SELECT
	(SELECT count(*) FROM prescriptions WHERE created_at >= $1 AND created_at < $2),
	(SELECT COALESCE(sum(grand_total), 0)::float8 FROM bills
		WHERE created_at >= $1 AND created_at < $2 AND status = 'finalized'
		AND payment_status IN ('paid', 'partially-paid')),
	(SELECT count(DISTINCT customer->>'name') FROM bills
		WHERE created_at >= $1 AND created_at < $2 AND status = 'finalized'),
	(SELECT count(*) FROM medicines WHERE is_active AND stock_current <= stock_minimum),
	(SELECT count(*) FROM medicines WHERE is_active AND expiry_date >= $3 AND expiry_date <= $4),
	(SELECT count(*) FROM prescriptions WHERE status = 'pending'),
	(SELECT count(*) FROM medicines WHERE is_active),
	(SELECT count(*) FROM users WHERE is_active)`

// Stats implements Querier with a single round trip.
func (s PGStore) Stats(ctx context.Context, w StatsWindow) (Stats, error) {
	var out Stats
	err := s.Pool.QueryRow(ctx, statsSQL, w.DayStart, w.DayEnd, w.Now, w.ExpiringBy).Scan(
		&out.Today.Prescriptions, &out.Today.Revenue, &out.Today.Customers,
		&out.Alerts.LowStock, &out.Alerts.ExpiringMedicines, &out.Alerts.PendingPrescriptions,
		&out.General.TotalMedicines, &out.General.TotalUsers,
	)
	if err != nil {
		return Stats{}, err
	}
	out.Today.Revenue = money.Round2(out.Today.Revenue)
	return out, nil
}

// SalesSeries implements Querier.
func (s PGStore) SalesSeries(ctx context.Context, from time.Time, bucket string) ([]SalesPoint, error) {
	layout := "YYYY-MM-DD"
	if bucket == "month" {
		layout = "YYYY-MM"
	} else {
		bucket = "day"
	}
	rows, err := s.Pool.Query(ctx, `SELECT to_char(date_trunc($2, created_at AT TIME ZONE 'UTC'), $3) AS label,
	COALESCE(sum(grand_total), 0)::float8, count(*)
FROM bills
WHERE created_at >= $1 AND status = 'finalized' AND payment_status IN ('paid', 'partially-paid')
GROUP BY 1 ORDER BY 1`, from, bucket, layout)
	if err != nil {
		return nil, fmt.Errorf("sales series: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SalesPoint, error) {
		var p SalesPoint
		err := row.Scan(&p.Label, &p.TotalSales, &p.BillCount)
		p.TotalSales = money.Round2(p.TotalSales)
		return p, err
	})
}

// TopMedicines implements Querier.
func (s PGStore) TopMedicines(ctx context.Context, from time.Time, limit int) ([]TopMedicine, error) {
	rows, err := s.Pool.Query(ctx, `SELECT item->>'medicineName',
	COALESCE(sum((item->>'quantity')::int), 0),
	COALESCE(sum((item->>'totalPrice')::numeric), 0)::float8,
	count(*)
FROM bills, jsonb_array_elements(items) AS item
WHERE created_at >= $1 AND status = 'finalized'
GROUP BY 1 ORDER BY 3 DESC, 1 LIMIT $2`, from, limit)
	if err != nil {
		return nil, fmt.Errorf("top medicines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopMedicine, error) {
		var m TopMedicine
		err := row.Scan(&m.MedicineName, &m.TotalQuantity, &m.TotalRevenue, &m.SalesCount)
		m.TotalRevenue = money.Round2(m.TotalRevenue)
		return m, err
	})
}

// RecentPrescriptions implements Querier.
func (s PGStore) RecentPrescriptions(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := s.Pool.Query(ctx, `SELECT p.id::text, p.prescription_id, p.patient->>'name',
	COALESCE(u.full_name, 'Unknown'), p.created_at
FROM prescriptions p LEFT JOIN users u ON u.id::text = p.created_by
ORDER BY p.created_at DESC, p.id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent prescriptions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Activity, error) {
		var (
			a            Activity
			number, name string
		)
		if err := row.Scan(&a.ID, &number, &name, &a.User, &a.Timestamp); err != nil {
			return Activity{}, err
		}
		a.Type = ActivityPrescription
		a.Title = "New prescription added"
		a.Description = fmt.Sprintf("Prescription %s for %s", number, name)
		return a, nil
	})
}

// RecentBills implements Querier.
func (s PGStore) RecentBills(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := s.Pool.Query(ctx, `SELECT b.id::text, b.customer->>'name', b.grand_total::float8,
	COALESCE(u.full_name, 'Unknown'), b.created_at
FROM bills b LEFT JOIN users u ON u.id::text = b.created_by
WHERE b.status = 'finalized'
ORDER BY b.created_at DESC, b.id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent bills: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Activity, error) {
		var (
			a     Activity
			name  string
			total float64
		)
		if err := row.Scan(&a.ID, &name, &total, &a.User, &a.Timestamp); err != nil {
			return Activity{}, err
		}
		a.Type = ActivityBill
		a.Title = "Payment received"
		a.Description = BillDescription(total, name)
		return a, nil
	})
}

// BillDescription renders the activity line of a bill.
func BillDescription(grandTotal float64, customer string) string {
	return "₹" + strconv.FormatFloat(money.Round2(grandTotal), 'f', -1, 64) + " from " + customer
}
