package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-apotek/internal/common"
)

const duplicateBatchMessage = "Medicine with this batch number already exists"

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

const medicineColumns = `id::text, name, generic_name, brand, category, dosage, strength, manufacturer,
batch_number, manufacturing_date, expiry_date, stock_current, stock_minimum, stock_maximum,
purchase_price, selling_price, mrp, description, side_effects, contraindications,
storage_conditions, prescription_required, supplier, is_active, created_by, updated_by,
created_at, updated_at`

func scanMedicine(row pgx.Row) (Medicine, error) {
	var m Medicine
	var category string
	err := row.Scan(
		&m.ID, &m.Name, &m.GenericName, &m.Brand, &category, &m.Dosage, &m.Strength, &m.Manufacturer,
		&m.BatchNumber, &m.ManufacturingDate, &m.ExpiryDate, &m.Stock.Current, &m.Stock.Minimum, &m.Stock.Maximum,
		&m.Pricing.PurchasePrice, &m.Pricing.SellingPrice, &m.Pricing.MRP, &m.Description, &m.SideEffects, &m.Contraindications,
		&m.StorageConditions, &m.PrescriptionRequired, &m.Supplier, &m.IsActive, &m.CreatedBy, &m.UpdatedBy,
		&m.CreatedAt, &m.UpdatedAt,
	)
	m.Category = Category(category)
	return m, err
}

func collectMedicines(rows pgx.Rows) ([]Medicine, error) {
	defer rows.Close()
	items := make([]Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// FindMatch implements MatchFinder.
func (s PGStore) FindMatch(ctx context.Context, text, batch string) (*Medicine, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE is_active AND batch_number = $2 AND (name ILIKE $1 OR generic_name ILIKE $1)
ORDER BY created_at, id LIMIT 1`, likePattern(text), batch)
	m, err := scanMedicine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match medicine: %w", err)
	}
	return &m, nil
}

// FindActiveByName returns the oldest active medicine whose name contains text.
func (s PGStore) FindActiveByName(ctx context.Context, text string) (*Medicine, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE is_active AND name ILIKE $1 ORDER BY created_at, id LIMIT 1`, likePattern(text))
	m, err := scanMedicine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// applyStockSQL locks the row, applies the mutation only when it keeps stock
// non-negative and appends the movement ledger entry, all in one statement.
const applyStockSQL = `
WITH prev AS (
	SELECT id, stock_current FROM medicines WHERE id = $1::uuid FOR UPDATE
), upd AS (
	UPDATE medicines m SET
		stock_current = CASE $4::text
			WHEN 'add' THEN m.stock_current + $2::int
			WHEN 'subtract' THEN m.stock_current - $2::int
			ELSE $2::int END,
		updated_by = $3,
		updated_at = now()
	FROM prev
	WHERE m.id = prev.id AND ($4::text <> 'subtract' OR m.stock_current >= $2::int)
	RETURNING m.id, m.name, m.batch_number, m.stock_current, m.stock_minimum, m.stock_maximum, prev.stock_current AS before
), mv AS (
	INSERT INTO stock_movements (medicine_id, kind, quantity, before, after, actor, reference)
	SELECT id, $4::text, $2::int, before, stock_current, $3, $5 FROM upd
)
SELECT id::text, name, batch_number, stock_current, stock_minimum, stock_maximum, before FROM upd`

// ApplyStock implements StockStore.
func (s PGStore) ApplyStock(ctx context.Context, m StockMutation) (StockLevel, bool, error) {
	var lvl StockLevel
	err := s.Pool.QueryRow(ctx, applyStockSQL, m.MedicineID, m.Quantity, m.Actor, string(m.Kind), m.Reference).
		Scan(&lvl.MedicineID, &lvl.Name, &lvl.BatchNumber, &lvl.Stock.Current, &lvl.Stock.Minimum, &lvl.Stock.Maximum, &lvl.Previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, false, nil
	}
	if err != nil {
		return StockLevel{}, false, common.MissingAs(err, "Medicine")
	}
	return lvl, true, nil
}

// GetStock implements StockStore.
func (s PGStore) GetStock(ctx context.Context, medicineID string) (StockLevel, error) {
	var lvl StockLevel
	err := s.Pool.QueryRow(ctx, `SELECT id::text, name, batch_number, stock_current, stock_minimum, stock_maximum
FROM medicines WHERE id = $1::uuid`, medicineID).
		Scan(&lvl.MedicineID, &lvl.Name, &lvl.BatchNumber, &lvl.Stock.Current, &lvl.Stock.Minimum, &lvl.Stock.Maximum)
	if err != nil {
		return StockLevel{}, common.MissingAs(err, "Medicine")
	}
	lvl.Previous = lvl.Stock.Current
	lvl.StockStatus = lvl.Stock.Status()
	return lvl, nil
}

// CreateMedicine inserts m.
func (s PGStore) CreateMedicine(ctx context.Context, m Medicine) (Medicine, error) {
	row := s.Pool.QueryRow(ctx, `INSERT INTO medicines (
	name, generic_name, brand, category, dosage, strength, manufacturer, batch_number,
	manufacturing_date, expiry_date, stock_current, stock_minimum, stock_maximum,
	purchase_price, selling_price, mrp, description, side_effects, contraindications,
	storage_conditions, prescription_required, supplier, is_active, created_by, updated_by,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$24,$25,$25)
RETURNING `+medicineColumns,
		m.Name, m.GenericName, m.Brand, string(m.Category), m.Dosage, m.Strength, m.Manufacturer, m.BatchNumber,
		m.ManufacturingDate, m.ExpiryDate, m.Stock.Current, m.Stock.Minimum, m.Stock.Maximum,
		m.Pricing.PurchasePrice, m.Pricing.SellingPrice, m.Pricing.MRP, m.Description, nonNil(m.SideEffects), nonNil(m.Contraindications),
		m.StorageConditions, m.PrescriptionRequired, m.Supplier, m.IsActive, m.CreatedBy, m.CreatedAt)
	created, err := scanMedicine(row)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return Medicine{}, common.ConflictError(duplicateBatchMessage, err)
		}
		return Medicine{}, fmt.Errorf("insert medicine: %w", err)
	}
	return created, nil
}

// GetMedicine loads a medicine by id.
func (s PGStore) GetMedicine(ctx context.Context, id string) (Medicine, error) {
	m, err := scanMedicine(s.Pool.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1::uuid`, id))
	if err != nil {
		return Medicine{}, common.MissingAs(err, "Medicine")
	}
	return m, nil
}

// UpdateMedicine rewrites every descriptive column of m. stock_current is left alone.
func (s PGStore) UpdateMedicine(ctx context.Context, m Medicine) (Medicine, error) {
	row := s.Pool.QueryRow(ctx, `UPDATE medicines SET
	name = $2, generic_name = $3, brand = $4, category = $5, dosage = $6, strength = $7,
	manufacturer = $8, batch_number = $9, manufacturing_date = $10, expiry_date = $11,
	stock_minimum = $12, stock_maximum = $13, purchase_price = $14, selling_price = $15, mrp = $16,
	description = $17, side_effects = $18, contraindications = $19, storage_conditions = $20,
	prescription_required = $21, supplier = $22, updated_by = $23, updated_at = $24
WHERE id = $1::uuid
RETURNING `+medicineColumns,
		m.ID, m.Name, m.GenericName, m.Brand, string(m.Category), m.Dosage, m.Strength,
		m.Manufacturer, m.BatchNumber, m.ManufacturingDate, m.ExpiryDate,
		m.Stock.Minimum, m.Stock.Maximum, m.Pricing.PurchasePrice, m.Pricing.SellingPrice, m.Pricing.MRP,
		m.Description, nonNil(m.SideEffects), nonNil(m.Contraindications), m.StorageConditions,
		m.PrescriptionRequired, m.Supplier, m.UpdatedBy, m.UpdatedAt)
	updated, err := scanMedicine(row)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return Medicine{}, common.ConflictError(duplicateBatchMessage, err)
		}
		return Medicine{}, common.MissingAs(err, "Medicine")
	}
	return updated, nil
}

// DeactivateMedicine flags the medicine inactive.
func (s PGStore) DeactivateMedicine(ctx context.Context, id, actor string, at time.Time) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE medicines SET is_active = false, updated_by = $2, updated_at = $3 WHERE id = $1::uuid`, id, actor, at)
	if err != nil {
		return common.MissingAs(err, "Medicine")
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundError("Medicine")
	}
	return nil
}

var sortExpr = map[string]string{
	"name":         "name",
	"createdAt":    "created_at",
	"expiryDate":   "expiry_date",
	"stock":        "stock_current",
	"sellingPrice": "selling_price",
}

// ListMedicines implements Store.
func (s PGStore) ListMedicines(ctx context.Context, f ListFilter) ([]Medicine, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	switch f.Status {
	case StatusInactive:
		where = append(where, "NOT is_active")
	case StatusAll:
	default:
		where = append(where, "is_active")
	}
	if f.Search != "" {
		p := arg(likePattern(f.Search))
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR generic_name ILIKE %[1]s OR brand ILIKE %[1]s OR manufacturer ILIKE %[1]s)", p))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(string(f.Category)))
	}
	switch f.StockStatus {
	case StockStatusOut:
		where = append(where, "stock_current <= 0")
	case StockStatusLow:
		where = append(where, "stock_current > 0 AND stock_current <= stock_minimum")
	case StockStatusIn:
		where = append(where, "stock_current > stock_minimum")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM medicines`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medicines: %w", err)
	}

	order := sortExpr[f.SortBy]
	if order == "" {
		order = "name"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	pg := common.NewPagination(f.Page, f.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM medicines%s ORDER BY %s %s, id LIMIT %s OFFSET %s`,
		medicineColumns, clause, order, dir, arg(pg.PerPage), arg(pg.Offset()))
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list medicines: %w", err)
	}
	items, err := collectMedicines(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListLowStock implements Store.
func (s PGStore) ListLowStock(ctx context.Context) ([]Medicine, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE is_active AND stock_current <= stock_minimum ORDER BY stock_current, name`)
	if err != nil {
		return nil, err
	}
	return collectMedicines(rows)
}

// ListExpiring implements Store.
func (s PGStore) ListExpiring(ctx context.Context, from, to time.Time) ([]Medicine, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE is_active AND expiry_date >= $1 AND expiry_date <= $2 ORDER BY expiry_date, name`, from, to)
	if err != nil {
		return nil, err
	}
	return collectMedicines(rows)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
