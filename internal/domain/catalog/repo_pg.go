package catalog

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

const resource = "test"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const testCols = `id, orgid, name, code, category, price, kind, unit, method, formula,
	interpretation, template, reference_ranges, sub_tests, parent_group_id, created_at, updated_at`

func scanTest(row pgx.Row) (*TestDefinition, error) {
	var t TestDefinition
	err := row.Scan(&t.ID, &t.OrgID, &t.Name, &t.Code, &t.Category, &t.Price, &t.Kind, &t.Unit,
		&t.Method, &t.Formula, &t.Interpretation, &t.Template, &t.ReferenceRanges, &t.SubTests,
		&t.ParentGroupID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *TestDefinition) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO tests (`+testCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		t.ID, t.OrgID, t.Name, t.Code, t.Category, t.Price, t.Kind, t.Unit, t.Method, t.Formula,
		t.Interpretation, t.Template, t.ReferenceRanges, t.SubTests, t.ParentGroupID, t.CreatedAt, t.UpdatedAt)
	return db.MapError(err, resource)
}

func (r *repoPG) Get(ctx context.Context, orgID int64, id uuid.UUID) (*TestDefinition, error) {
	t, err := scanTest(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+testCols+` FROM tests WHERE orgid = $1 AND id = $2`, orgID, id))
	if err != nil {
		return nil, db.MapError(err, resource)
	}
	return t, nil
}

func (r *repoPG) GetMany(ctx context.Context, orgID int64, ids []uuid.UUID) ([]*TestDefinition, error) {
	if len(ids) == 0 {
		return []*TestDefinition{}, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+testCols+` FROM tests WHERE orgid = $1 AND id = ANY($2)`, orgID, ids)
	if err != nil {
		return nil, db.MapError(err, resource)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*TestDefinition, error) {
	out := []*TestDefinition{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, db.MapError(err, resource)
		}
		out = append(out, t)
	}
	return out, db.MapError(rows.Err(), resource)
}

func (r *repoPG) Update(ctx context.Context, t *TestDefinition) error {
	t.UpdatedAt = time.Now().UTC()
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE tests SET name=$3, code=$4, category=$5, price=$6, kind=$7, unit=$8, method=$9,
			formula=$10, interpretation=$11, template=$12, reference_ranges=$13, updated_at=$14
		WHERE orgid = $1 AND id = $2`,
		t.OrgID, t.ID, t.Name, t.Code, t.Category, t.Price, t.Kind, t.Unit, t.Method,
		t.Formula, t.Interpretation, t.Template, t.ReferenceRanges, t.UpdatedAt)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, orgID int64, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM tests WHERE orgid = $1 AND id = $2`, orgID, id)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*TestDefinition, int, error) {
	where := `WHERE orgid = $1`
	args := []interface{}{orgID}
	if f.Search != "" {
		args = append(args, db.ContainsPattern(f.Search))
		where += fmt.Sprintf(` AND (name ILIKE $%d OR code ILIKE $%d)`, len(args), len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		where += fmt.Sprintf(` AND kind = $%d`, len(args))
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM tests `+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, resource)
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT `+testCols+` FROM tests `+where+
		` ORDER BY name ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, db.MapError(err, resource)
	}
	defer rows.Close()
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) SetParent(ctx context.Context, orgID int64, ids []uuid.UUID, parent *uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE tests SET parent_group_id = $3, updated_at = NOW()
		WHERE orgid = $1 AND id = ANY($2)`, orgID, ids, parent)
	if err != nil {
		return 0, db.MapError(err, resource)
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) SetSubTests(ctx context.Context, orgID int64, groupID uuid.UUID, ids []uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE tests SET sub_tests = $3, updated_at = NOW()
		WHERE orgid = $1 AND id = $2`, orgID, groupID, ids)
	if err != nil {
		return db.MapError(err, resource)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (r *repoPG) RemoveSubTest(ctx context.Context, orgID int64, groupID, child uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE tests SET sub_tests = array_remove(sub_tests, $3), updated_at = NOW()
		WHERE orgid = $1 AND id = $2`, orgID, groupID, child)
	return db.MapError(err, resource)
}
