package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

const prescriptionColumns = `id::text, prescription_id, patient, doctor, medicines, prescription_date,
diagnosis, symptoms, vital_signs, allergies, notes, status, dispensed_by, dispensed_at,
created_by, updated_by, created_at, updated_at`

func scanPrescription(row pgx.Row) (Prescription, error) {
	var p Prescription
	var status string
	err := row.Scan(&p.ID, &p.PrescriptionID, &p.Patient, &p.Doctor, &p.Medicines, &p.PrescriptionDate,
		&p.Diagnosis, &p.Symptoms, &p.VitalSigns, &p.Allergies, &p.Notes, &status, &p.DispensedBy, &p.DispensedAt,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	p.Status = Status(status)
	return p, err
}

func dayBounds(at time.Time) (time.Time, time.Time) {
	y, m, d := at.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, at.Location())
	return start, start.AddDate(0, 0, 1)
}

// CreatePrescription inserts p. Without a PrescriptionID the next number for
// the day is derived from the rows already created that day, under a
// transaction-scoped advisory lock.
func (s PGStore) CreatePrescription(ctx context.Context, p Prescription) (Prescription, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Prescription{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if p.PrescriptionID == "" {
		start, end := dayBounds(p.CreatedAt)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "rx:"+start.Format(idDateLayout)); err != nil {
			return Prescription{}, fmt.Errorf("lock prescription sequence: %w", err)
		}
		var count int64
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM prescriptions WHERE created_at >= $1 AND created_at < $2`, start, end).Scan(&count); err != nil {
			return Prescription{}, fmt.Errorf("count prescriptions: %w", err)
		}
		p.PrescriptionID = FormatID(p.CreatedAt, count+1)
	}

	created, err := scanPrescription(tx.QueryRow(ctx, `INSERT INTO prescriptions (
	prescription_id, patient, doctor, medicines, prescription_date, diagnosis, symptoms,
	vital_signs, allergies, notes, status, created_by, updated_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12, $13, $13)
RETURNING `+prescriptionColumns,
		p.PrescriptionID, p.Patient, p.Doctor, p.Medicines, p.PrescriptionDate, p.Diagnosis, nonNil(p.Symptoms),
		p.VitalSigns, nonNil(p.Allergies), p.Notes, string(p.Status), p.CreatedBy, p.CreatedAt))
	if err != nil {
		if common.IsUniqueViolation(err) {
			return Prescription{}, common.ConflictError("prescription number already issued", err)
		}
		return Prescription{}, fmt.Errorf("insert prescription: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Prescription{}, err
	}
	return created, nil
}

// GetPrescription loads a prescription by id.
func (s PGStore) GetPrescription(ctx context.Context, id string) (Prescription, error) {
	p, err := scanPrescription(s.Pool.QueryRow(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1::uuid`, id))
	if err != nil {
		return Prescription{}, common.MissingAs(err, "Prescription")
	}
	return p, nil
}

// UpdatePrescription rewrites the clinical fields of p.
func (s PGStore) UpdatePrescription(ctx context.Context, p Prescription) (Prescription, error) {
	updated, err := scanPrescription(s.Pool.QueryRow(ctx, `UPDATE prescriptions SET
	patient = $2, doctor = $3, medicines = $4, prescription_date = $5, diagnosis = $6,
	symptoms = $7, vital_signs = $8, allergies = $9, notes = $10, updated_by = $11, updated_at = $12
WHERE id = $1::uuid
RETURNING `+prescriptionColumns,
		p.ID, p.Patient, p.Doctor, p.Medicines, p.PrescriptionDate, p.Diagnosis,
		nonNil(p.Symptoms), p.VitalSigns, nonNil(p.Allergies), p.Notes, p.UpdatedBy, p.UpdatedAt))
	if err != nil {
		return Prescription{}, common.MissingAs(err, "Prescription")
	}
	return updated, nil
}

// SetStatus applies a status change. Dispensing fields are only overwritten when provided.
func (s PGStore) SetStatus(ctx context.Context, id string, change StatusChange) (Prescription, error) {
	p, err := scanPrescription(s.Pool.QueryRow(ctx, `UPDATE prescriptions SET
	status = $2, updated_by = $3, updated_at = $4,
	dispensed_by = COALESCE($5, dispensed_by), dispensed_at = COALESCE($6, dispensed_at)
WHERE id = $1::uuid
RETURNING `+prescriptionColumns,
		id, string(change.Status), change.Actor, change.At, change.DispensedBy, change.DispensedAt))
	if err != nil {
		return Prescription{}, common.MissingAs(err, "Prescription")
	}
	return p, nil
}

var sortExpr = map[string]string{
	"prescriptionDate": "prescription_date",
	"createdAt":        "created_at",
	"patientName":      "patient->>'name'",
}

// ListPrescriptions implements Store.
func (s PGStore) ListPrescriptions(ctx context.Context, f ListFilter) ([]Prescription, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		where = append(where, fmt.Sprintf("(patient->>'name' ILIKE %[1]s OR doctor->>'name' ILIKE %[1]s OR prescription_id ILIKE %[1]s)", p))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.From != nil {
		where = append(where, "prescription_date >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "prescription_date < "+arg(*f.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM prescriptions`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count prescriptions: %w", err)
	}
	order := sortExpr[f.SortBy]
	if order == "" {
		order = "prescription_date"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	pg := common.NewPagination(f.Page, f.PerPage, total)
	rows, err := s.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM prescriptions%s ORDER BY %s %s, id LIMIT %s OFFSET %s`,
		prescriptionColumns, clause, order, dir, arg(pg.PerPage), arg(pg.Offset())), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()
	items := make([]Prescription, 0)
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// DeletePrescription removes the row.
func (s PGStore) DeletePrescription(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM prescriptions WHERE id = $1::uuid`, id)
	if err != nil {
		return common.MissingAs(err, "Prescription")
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundError("Prescription")
	}
	return nil
}

func escapeLike(text string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
