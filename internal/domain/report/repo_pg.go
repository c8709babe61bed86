package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/db"
)

const resource = "report"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const reportCols = `id, orgid, bill_id, patient_id, doctor_id, status, results, impression, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.OrgID, &r.BillID, &r.PatientID, &r.DoctorID, &r.Status, &r.Results,
		&r.Impression, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, resource)
	}
	if r.Results == nil {
		r.Results = []ResultEntry{}
	}
	return &r, nil
}

func (rp *repoPG) InsertIfAbsent(ctx context.Context, r *Report) (bool, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	conn := db.Conn(ctx, rp.pool)
	tag, err := conn.Exec(ctx, `
		INSERT INTO reports (`+reportCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (bill_id) DO NOTHING`,
		r.ID, r.OrgID, r.BillID, r.PatientID, r.DoctorID, r.Status, r.Results, r.Impression,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return false, db.MapError(err, resource)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	existing, err := rp.GetByBill(ctx, r.OrgID, r.BillID)
	if err != nil {
		return false, err
	}
	*r = *existing
	return false, nil
}

func (rp *repoPG) Get(ctx context.Context, orgID int64, id uuid.UUID) (*Report, error) {
	return scanReport(db.Conn(ctx, rp.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE orgid = $1 AND id = $2`, orgID, id))
}

func (rp *repoPG) GetByBill(ctx context.Context, orgID int64, billID uuid.UUID) (*Report, error) {
	return scanReport(db.Conn(ctx, rp.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE orgid = $1 AND bill_id = $2`, orgID, billID))
}

func (rp *repoPG) GetPublic(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(db.Conn(ctx, rp.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
}

func (rp *repoPG) GetPublicByBill(ctx context.Context, billID uuid.UUID) (*Report, error) {
	return scanReport(db.Conn(ctx, rp.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE bill_id = $1`, billID))
}

func (rp *repoPG) Update(ctx context.Context, r *Report) error {
	r.UpdatedAt = time.Now().UTC()
	tag, err := db.Conn(ctx, rp.pool).Exec(ctx, `
		UPDATE reports SET patient_id=$3, doctor_id=$4, status=$5, results=$6, impression=$7, updated_at=$8
		WHERE orgid = $1 AND id = $2`,
		r.OrgID, r.ID, r.PatientID, r.DoctorID, r.Status, r.Results, r.Impression, r.UpdatedAt)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (rp *repoPG) List(ctx context.Context, orgID int64, status Status, limit, offset int) ([]*Report, int, error) {
	conn := db.Conn(ctx, rp.pool)
	var total int
	if err := conn.QueryRow(ctx, `
		SELECT COUNT(*) FROM reports WHERE orgid = $1 AND ($2::text = '' OR status = $2)`,
		orgID, string(status)).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, resource)
	}

	rows, err := conn.Query(ctx, `
		SELECT `+reportCols+` FROM reports
		WHERE orgid = $1 AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orgID, string(status), limit, offset)
	if err != nil {
		return nil, 0, db.MapError(err, resource)
	}
	defer rows.Close()

	out := []*Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, db.MapError(rows.Err(), resource)
}

func (rp *repoPG) ViewsOfPerson(ctx context.Context, orgID int64, personID uuid.UUID) ([]ViewRef, error) {
	rows, err := db.Conn(ctx, rp.pool).Query(ctx, `
		SELECT b.id, r.id FROM bills b
		LEFT JOIN reports r ON r.bill_id = b.id
		WHERE b.orgid = $1 AND (b.patient_id = $2 OR b.doctor_id = $2)`,
		orgID, personID)
	if err != nil {
		return nil, db.MapError(err, resource)
	}
	defer rows.Close()

	var out []ViewRef
	for rows.Next() {
		var ref ViewRef
		if err := rows.Scan(&ref.BillID, &ref.ReportID); err != nil {
			return nil, db.MapError(err, resource)
		}
		out = append(out, ref)
	}
	return out, db.MapError(rows.Err(), resource)
}
