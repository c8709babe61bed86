package person

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/platform/apperr"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// DoctorDetails is the doctor-only part of a Person.
type DoctorDetails struct {
	HospitalName string  `json:"hospitalName"`
	RevenueShare float64 `json:"revenueShare"`
}

// Person is a patient or a doctor. Doctor is set exactly when Role is
// RoleDoctor; Normalize enforces it.
type Person struct {
	ID        uuid.UUID      `json:"id"`
	OrgID     int64          `json:"orgid"`
	Role      Role           `json:"role"`
	Name      string         `json:"name"`
	Gender    string         `json:"gender"`
	Age       *int           `json:"age,omitempty"`
	Phone     string         `json:"phone"`
	Email     string         `json:"email"`
	Address   string         `json:"address"`
	Doctor    *DoctorDetails `json:"doctor,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

var validGenders = map[string]bool{
	"": true, "male": true, "female": true, "other": true,
}

// Normalize checks field rules and keeps the variant consistent with Role.
func (p *Person) Normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if !p.Role.Valid() {
		return apperr.Validation("role must be one of [PATIENT DOCTOR]")
	}
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	if !validGenders[p.Gender] {
		return apperr.Validation("invalid gender: %s", p.Gender)
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return apperr.Validation("age must be between 0 and 150")
	}

	switch p.Role {
	case RolePatient:
		if p.Doctor != nil {
			return apperr.Validation("doctor details are not allowed on a patient")
		}
	case RoleDoctor:
		if p.Doctor == nil {
			p.Doctor = &DoctorDetails{}
		}
		if p.Doctor.RevenueShare < 0 || p.Doctor.RevenueShare > 100 {
			return apperr.Validation("revenueShare must be between 0 and 100")
		}
	}
	return nil
}

// Input is the create/update body. Role comes from the route, not the body.
type Input struct {
	Name         string   `json:"name" validate:"required"`
	Gender       string   `json:"gender"`
	Age          *int     `json:"age" validate:"omitempty,gte=0,lte=150"`
	Phone        string   `json:"phone" validate:"omitempty,phone"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Address      string   `json:"address"`
	HospitalName *string  `json:"hospitalName"`
	RevenueShare *float64 `json:"revenueShare" validate:"omitempty,gte=0,lte=100"`
}

func (in Input) toPerson(role Role) *Person {
	p := &Person{
		Role:    role,
		Name:    in.Name,
		Gender:  in.Gender,
		Age:     in.Age,
		Phone:   in.Phone,
		Email:   in.Email,
		Address: in.Address,
	}
	if in.HospitalName != nil || in.RevenueShare != nil {
		p.Doctor = &DoctorDetails{}
		if in.HospitalName != nil {
			p.Doctor.HospitalName = *in.HospitalName
		}
		if in.RevenueShare != nil {
			p.Doctor.RevenueShare = *in.RevenueShare
		}
	}
	return p
}

type ListFilter struct {
	Role   Role
	Search string
}
