package account

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

const accountCols = `id, orgid, email, password_hash, role, active, google_id, refresh_token, name, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Email, &a.PasswordHash, &a.Role, &a.Active,
		&a.GoogleID, &a.RefreshToken, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, "account")
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Email = NormalizeEmail(a.Email)

	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (id, orgid, email, password_hash, role, active, google_id, name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.OrgID, a.Email, a.PasswordHash, a.Role, a.Active, a.GoogleID, a.Name, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("email already registered")
	}
	return db.MapError(err, "account")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE email = $1`, NormalizeEmail(email)))
}

func (r *repoPG) GetInOrg(ctx context.Context, orgID int64, id uuid.UUID) (*Account, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE orgid = $1 AND id = $2`, orgID, id))
}

func (r *repoPG) ListByOrg(ctx context.Context, orgID int64, limit, offset int) ([]*Account, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE orgid = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, "account")
	}
	rows, err := conn.Query(ctx, `SELECT `+accountCols+` FROM accounts WHERE orgid = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, db.MapError(err, "account")
	}
	defer rows.Close()

	items := []*Account{}
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, db.MapError(rows.Err(), "account")
}

func (r *repoPG) SetActive(ctx context.Context, orgID int64, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET active = $3, updated_at = NOW() WHERE orgid = $1 AND id = $2`,
		orgID, id, active)
	if err != nil {
		return db.MapError(err, "account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("account")
	}
	return nil
}

func (r *repoPG) ActivateByEmail(ctx context.Context, email string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET active = TRUE, updated_at = NOW() WHERE email = $1`, NormalizeEmail(email))
	if err != nil {
		return db.MapError(err, "account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("account")
	}
	return nil
}

func (r *repoPG) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET refresh_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	return db.MapError(err, "account")
}

func (r *repoPG) RotateRefreshToken(ctx context.Context, id uuid.UUID, old, next string) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2`, id, old, next)
	if err != nil {
		return false, db.MapError(err, "account")
	}
	return tag.RowsAffected() == 1, nil
}
