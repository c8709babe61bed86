package organization

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const (
	minOrgID   = 100000
	orgIDSpan  = 900000
	spidLength = 6
	spidAlpha  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Organization is the tenant root. OrgID never changes after registration.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	OrgID     int64     `json:"orgid"`
	SPID      string    `json:"spid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	OrgName   string `json:"orgName" validate:"required"`
	AdminName string `json:"name"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Address   string `json:"address"`
}

type UpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,phone"`
	Address *string `json:"address"`
}

// Apply copies the provided fields onto o.
func (r UpdateRequest) Apply(o *Organization) {
	if r.Name != nil {
		o.Name = *r.Name
	}
	if r.Email != nil {
		o.Email = *r.Email
	}
	if r.Phone != nil {
		o.Phone = *r.Phone
	}
	if r.Address != nil {
		o.Address = *r.Address
	}
}

// newOrgID returns a random six digit tenant id.
func newOrgID() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(orgIDSpan))
	if err != nil {
		return 0, err
	}
	return minOrgID + n.Int64(), nil
}

// newSPID returns a random six character service-provider id.
func newSPID() (string, error) {
	buf := make([]byte, spidLength)
	max := big.NewInt(int64(len(spidAlpha)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = spidAlpha[n.Int64()]
	}
	return string(buf), nil
}
