package billing

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/platform/apperr"
)

type Status string

const (
	StatusUnpaid  Status = "UNPAID"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

func (s Status) Valid() bool {
	return s == StatusUnpaid || s == StatusPartial || s == StatusPaid
}

// Item is one billed test. Name and price are copied from the catalog when
// the bill is created and do not follow later catalog edits.
type Item struct {
	TestID   uuid.UUID `json:"testId"`
	TestName string    `json:"testName"`
	Price    float64   `json:"price"`
}

type Bill struct {
	ID        uuid.UUID `json:"id"`
	OrgID     int64     `json:"orgid"`
	PatientID uuid.UUID `json:"patientId"`
	DoctorID  uuid.UUID `json:"doctorId"`
	Items     []Item    `json:"items"`
	Total     float64   `json:"total"`
	Discount  float64   `json:"discount"`
	Paid      float64   `json:"paid"`
	Due       float64   `json:"due"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TestIDs returns the billed test ids in bill order.
func (b *Bill) TestIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.Items))
	for i, it := range b.Items {
		ids[i] = it.TestID
	}
	return ids
}

// Recompute derives Total, Due and Status from the items and payments.
func (b *Bill) Recompute() error {
	var total float64
	for _, it := range b.Items {
		total += it.Price
	}
	b.Total = roundMoney(total)
	b.Discount = roundMoney(b.Discount)
	b.Paid = roundMoney(b.Paid)

	if b.Discount < 0 || b.Discount > b.Total {
		return apperr.Validation("discount must be between 0 and %v", b.Total)
	}
	if b.Paid < 0 {
		return apperr.Validation("paid must be greater than or equal to 0")
	}

	b.Due = roundMoney(math.Max(b.Total-b.Discount-b.Paid, 0))
	switch {
	case b.Due == 0:
		b.Status = StatusPaid
	case b.Paid > 0:
		b.Status = StatusPartial
	default:
		b.Status = StatusUnpaid
	}
	return nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

type CreateRequest struct {
	PatientID uuid.UUID   `json:"patientId" validate:"required"`
	DoctorID  uuid.UUID   `json:"doctorId" validate:"required"`
	TestIDs   []uuid.UUID `json:"tests" validate:"required,min=1"`
	Discount  float64     `json:"discount" validate:"gte=0"`
	Paid      float64     `json:"paid" validate:"gte=0"`
	Notes     string      `json:"notes"`
}

type PaymentRequest struct {
	Discount *float64 `json:"discount" validate:"omitempty,gte=0"`
	Paid     *float64 `json:"paid" validate:"omitempty,gte=0"`
	Notes    *string  `json:"notes"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
	From      *time.Time
	To        *time.Time
}

// ExportRow is a bill joined with the display names of its parties.
type ExportRow struct {
	Bill
	PatientName string
	DoctorName  string
}
