package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *Bill) error
	Get(ctx context.Context, orgID int64, id uuid.UUID) (*Bill, error)
	// GetPublic reads a bill by id alone, for the unauthenticated views.
	GetPublic(ctx context.Context, id uuid.UUID) (*Bill, error)
	UpdatePayment(ctx context.Context, b *Bill) error
	SetParties(ctx context.Context, orgID int64, id uuid.UUID, patientID, doctorID *uuid.UUID) error
	Delete(ctx context.Context, orgID int64, id uuid.UUID) error
	List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*Bill, int, error)
	ListForExport(ctx context.Context, orgID int64, from, to time.Time) ([]ExportRow, error)
}
