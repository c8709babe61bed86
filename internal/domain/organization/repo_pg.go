package organization

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const orgCols = `id, orgid, spid, name, email, phone, address, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Organization, error) {
	var o Organization
	if err := row.Scan(&o.ID, &o.OrgID, &o.SPID, &o.Name, &o.Email, &o.Phone, &o.Address,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, db.MapError(err, "organization")
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Organization) (bool, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	// DO NOTHING keeps the surrounding transaction usable for a retry.
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO organizations (id, orgid, spid, name, email, phone, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT DO NOTHING`,
		o.ID, o.OrgID, o.SPID, o.Name, o.Email, o.Phone, o.Address, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return false, db.MapError(err, "organization")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) GetByOrgID(ctx context.Context, orgID int64) (*Organization, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE orgid = $1`, orgID))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	o.UpdatedAt = time.Now().UTC()
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE organizations SET name = $2, email = $3, phone = $4, address = $5, updated_at = $6
		WHERE orgid = $1`,
		o.OrgID, o.Name, o.Email, o.Phone, o.Address, o.UpdatedAt)
	if err != nil {
		return db.MapError(err, "organization")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("organization")
	}
	return nil
}
