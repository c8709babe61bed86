package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// InsertIfAbsent stores r unless its bill already has a report. When one
	// exists, r is overwritten with the stored report and created is false.
	InsertIfAbsent(ctx context.Context, r *Report) (created bool, err error)
	Get(ctx context.Context, orgID int64, id uuid.UUID) (*Report, error)
	GetByBill(ctx context.Context, orgID int64, billID uuid.UUID) (*Report, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*Report, error)
	GetPublicByBill(ctx context.Context, billID uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	List(ctx context.Context, orgID int64, status Status, limit, offset int) ([]*Report, int, error)
	// ViewsOfPerson lists the bills, with their reports, that name personID.
	ViewsOfPerson(ctx context.Context, orgID int64, personID uuid.UUID) ([]ViewRef, error)
}
