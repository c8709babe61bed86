package person

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const personCols = `id, orgid, role, name, gender, age, phone, email, address,
	hospital_name, revenue_share, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Person, error) {
	var (
		p        Person
		hospital *string
		share    *float64
	)
	err := row.Scan(&p.ID, &p.OrgID, &p.Role, &p.Name, &p.Gender, &p.Age, &p.Phone, &p.Email, &p.Address,
		&hospital, &share, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err, resourceName(""))
	}
	if p.Role == RoleDoctor {
		p.Doctor = &DoctorDetails{}
		if hospital != nil {
			p.Doctor.HospitalName = *hospital
		}
		if share != nil {
			p.Doctor.RevenueShare = *share
		}
	}
	return &p, nil
}

// doctorCols splits the variant into nullable columns.
func doctorCols(p *Person) (*string, *float64) {
	if p.Doctor == nil {
		return nil, nil
	}
	return &p.Doctor.HospitalName, &p.Doctor.RevenueShare
}

func (r *repoPG) Create(ctx context.Context, p *Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	hospital, share := doctorCols(p)

	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO persons (id, orgid, role, name, gender, age, phone, email, address,
			hospital_name, revenue_share, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.OrgID, p.Role, p.Name, p.Gender, p.Age, p.Phone, p.Email, p.Address,
		hospital, share, p.CreatedAt, p.UpdatedAt)
	return db.MapError(err, resourceName(p.Role))
}

func (r *repoPG) Get(ctx context.Context, orgID int64, id uuid.UUID) (*Person, error) {
	return r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+personCols+` FROM persons WHERE orgid = $1 AND id = $2`, orgID, id))
}

func (r *repoPG) Update(ctx context.Context, p *Person) error {
	p.UpdatedAt = time.Now().UTC()
	hospital, share := doctorCols(p)
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE persons SET name=$3, gender=$4, age=$5, phone=$6, email=$7, address=$8,
			hospital_name=$9, revenue_share=$10, updated_at=$11
		WHERE orgid = $1 AND id = $2`,
		p.OrgID, p.ID, p.Name, p.Gender, p.Age, p.Phone, p.Email, p.Address,
		hospital, share, p.UpdatedAt)
	if err != nil {
		return db.MapError(err, resourceName(p.Role))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceName(p.Role))
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, orgID int64, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM persons WHERE orgid = $1 AND id = $2`, orgID, id)
	if err != nil {
		return db.MapError(err, resourceName(""))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceName(""))
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*Person, int, error) {
	where := `WHERE orgid = $1`
	args := []interface{}{orgID}
	if f.Role != "" {
		args = append(args, f.Role)
		where += fmt.Sprintf(` AND role = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, db.ContainsPattern(f.Search))
		where += fmt.Sprintf(` AND (name ILIKE $%d OR phone ILIKE $%d)`, len(args), len(args))
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM persons `+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, resourceName(f.Role))
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT `+personCols+` FROM persons `+where+
		` ORDER BY name ASC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, db.MapError(err, resourceName(f.Role))
	}
	defer rows.Close()

	items := []*Person{}
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, db.MapError(rows.Err(), resourceName(f.Role))
}

func resourceName(role Role) string {
	switch role {
	case RolePatient:
		return "patient"
	case RoleDoctor:
		return "doctor"
	default:
		return "person"
	}
}
