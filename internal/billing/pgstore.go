package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// PGStore implements Store on PostgreSQL. Customer and items are kept as
// JSONB snapshots on the bill row.
type PGStore struct {
	Pool *pgxpool.Pool
}

const billColumns = `id::text, customer, prescription_id, items, subtotal, total_discount, total_tax,
grand_total, payment_method, payment_status, amount_paid, change_given, notes, status,
created_by, updated_by, created_at, updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var (
		b                            Bill
		method, paymentStatus, state string
	)
	err := row.Scan(&b.ID, &b.Customer, &b.PrescriptionID, &b.Items, &b.Subtotal, &b.TotalDiscount, &b.TotalTax,
		&b.GrandTotal, &method, &paymentStatus, &b.AmountPaid, &b.ChangeGiven, &b.Notes, &state,
		&b.CreatedBy, &b.UpdatedBy, &b.CreatedAt, &b.UpdatedAt)
	b.PaymentMethod = PaymentMethod(method)
	b.PaymentStatus = PaymentStatus(paymentStatus)
	b.Status = Status(state)
	return b, err
}

// InsertBill implements Store.
func (s PGStore) InsertBill(ctx context.Context, b Bill) (Bill, error) {
	created, err := scanBill(s.Pool.QueryRow(ctx, `INSERT INTO bills (
	id, customer, prescription_id, items, subtotal, total_discount, total_tax, grand_total,
	payment_method, payment_status, amount_paid, change_given, notes, status,
	created_by, updated_by, created_at, updated_at
) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15, $16, $16)
RETURNING `+billColumns,
		b.ID, b.Customer, b.PrescriptionID, b.Items, b.Subtotal, b.TotalDiscount, b.TotalTax, b.GrandTotal,
		string(b.PaymentMethod), string(b.PaymentStatus), b.AmountPaid, b.ChangeGiven, b.Notes, string(b.Status),
		b.CreatedBy, b.CreatedAt))
	if err != nil {
		if common.IsUniqueViolation(err) {
			return Bill{}, common.ConflictError("bill already exists", err)
		}
		return Bill{}, err
	}
	return created, nil
}

// GetBill implements Store.
func (s PGStore) GetBill(ctx context.Context, id string) (Bill, error) {
	b, err := scanBill(s.Pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1::uuid`, id))
	if err != nil {
		return Bill{}, common.MissingAs(err, "Bill")
	}
	return b, nil
}

// UpdateBill rewrites every mutable column of b.
func (s PGStore) UpdateBill(ctx context.Context, b Bill) (Bill, error) {
	updated, err := scanBill(s.Pool.QueryRow(ctx, `UPDATE bills SET
	customer = $2, prescription_id = $3, items = $4, subtotal = $5, total_discount = $6,
	total_tax = $7, grand_total = $8, payment_method = $9, payment_status = $10,
	amount_paid = $11, change_given = $12, notes = $13, status = $14,
	updated_by = $15, updated_at = $16
WHERE id = $1::uuid
RETURNING `+billColumns,
		b.ID, b.Customer, b.PrescriptionID, b.Items, b.Subtotal, b.TotalDiscount,
		b.TotalTax, b.GrandTotal, string(b.PaymentMethod), string(b.PaymentStatus),
		b.AmountPaid, b.ChangeGiven, b.Notes, string(b.Status), b.UpdatedBy, b.UpdatedAt))
	if err != nil {
		return Bill{}, common.MissingAs(err, "Bill")
	}
	return updated, nil
}

var sortExpr = map[string]string{
	"createdAt":    "created_at",
	"grandTotal":   "grand_total",
	"customerName": "customer->>'name'",
}

// ListBills implements Store.
func (s PGStore) ListBills(ctx context.Context, f ListFilter) ([]Bill, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		p := arg("%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(f.Search) + "%")
		where = append(where, fmt.Sprintf("(customer->>'name' ILIKE %[1]s OR customer->>'phone' ILIKE %[1]s)", p))
	}
	if f.PaymentStatus != "" {
		where = append(where, "payment_status = "+arg(string(f.PaymentStatus)))
	}
	if f.From != nil {
		where = append(where, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at < "+arg(*f.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM bills`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bills: %w", err)
	}
	order := sortExpr[f.SortBy]
	if order == "" {
		order = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	pg := common.NewPagination(f.Page, f.PerPage, total)
	rows, err := s.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM bills%s ORDER BY %s %s, id LIMIT %s OFFSET %s`,
		billColumns, clause, order, dir, arg(pg.PerPage), arg(pg.Offset())), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	items := make([]Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}
