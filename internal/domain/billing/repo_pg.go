package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/db"
)

const resource = "bill"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const billCols = `id, orgid, patient_id, doctor_id, items, total, discount, paid, due, status, notes,
	created_at, updated_at`

func scanBill(row pgx.Row, extra ...interface{}) (*Bill, error) {
	var b Bill
	dest := []interface{}{&b.ID, &b.OrgID, &b.PatientID, &b.DoctorID, &b.Items, &b.Total, &b.Discount,
		&b.Paid, &b.Due, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, db.MapError(err, resource)
	}
	if b.Items == nil {
		b.Items = []Item{}
	}
	return &b, nil
}

func (r *repoPG) Create(ctx context.Context, b *Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO bills (`+billCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		b.ID, b.OrgID, b.PatientID, b.DoctorID, b.Items, b.Total, b.Discount, b.Paid, b.Due,
		b.Status, b.Notes, b.CreatedAt, b.UpdatedAt)
	return db.MapError(err, resource)
}

func (r *repoPG) Get(ctx context.Context, orgID int64, id uuid.UUID) (*Bill, error) {
	return scanBill(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+billCols+` FROM bills WHERE orgid = $1 AND id = $2`, orgID, id))
}

func (r *repoPG) GetPublic(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return scanBill(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+billCols+` FROM bills WHERE id = $1`, id))
}

func (r *repoPG) UpdatePayment(ctx context.Context, b *Bill) error {
	b.UpdatedAt = time.Now().UTC()
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE bills SET discount=$3, paid=$4, due=$5, status=$6, notes=$7, updated_at=$8
		WHERE orgid = $1 AND id = $2`,
		b.OrgID, b.ID, b.Discount, b.Paid, b.Due, b.Status, b.Notes, b.UpdatedAt)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (r *repoPG) SetParties(ctx context.Context, orgID int64, id uuid.UUID, patientID, doctorID *uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE bills SET patient_id = COALESCE($3, patient_id), doctor_id = COALESCE($4, doctor_id),
			updated_at = NOW()
		WHERE orgid = $1 AND id = $2`, orgID, id, patientID, doctorID)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, orgID int64, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM bills WHERE orgid = $1 AND id = $2`, orgID, id)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*Bill, int, error) {
	where := `WHERE orgid = $1`
	args := []interface{}{orgID}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM bills `+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, resource)
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT `+billCols+` FROM bills `+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, db.MapError(err, resource)
	}
	defer rows.Close()

	items := []*Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, db.MapError(rows.Err(), resource)
}

func (r *repoPG) ListForExport(ctx context.Context, orgID int64, from, to time.Time) ([]ExportRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT b.id, b.orgid, b.patient_id, b.doctor_id, b.items, b.total, b.discount, b.paid, b.due,
			b.status, b.notes, b.created_at, b.updated_at, p.name, d.name
		FROM bills b
		JOIN persons p ON p.id = b.patient_id
		JOIN persons d ON d.id = b.doctor_id
		WHERE b.orgid = $1 AND b.created_at >= $2 AND b.created_at < $3
		ORDER BY b.created_at ASC`, orgID, from, to)
	if err != nil {
		return nil, db.MapError(err, resource)
	}
	defer rows.Close()

	out := []ExportRow{}
	for rows.Next() {
		var row ExportRow
		b, err := scanBill(rows, &row.PatientName, &row.DoctorName)
		if err != nil {
			return nil, err
		}
		row.Bill = *b
		out = append(out, row)
	}
	return out, db.MapError(rows.Err(), resource)
}
