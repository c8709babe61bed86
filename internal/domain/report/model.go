package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/billing"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/person"
	"github.com/lims/lims/internal/platform/apperr"
)

type Status string

const (
	StatusInitial    Status = "INITIAL"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusVerified   Status = "VERIFIED"
	StatusPrinted    Status = "PRINTED"
	StatusDelivered  Status = "DELIVERED"

	// StatusPending is the legacy name of StatusInitial. It is accepted on
	// input and never stored.
	StatusPending Status = "PENDING"
)

// transitions lists the moves allowed from each state. Writing the current
// state again is always allowed.
var transitions = map[Status][]Status{
	StatusInitial:    {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusVerified},
	StatusVerified:   {StatusPrinted},
	StatusPrinted:    {StatusDelivered},
	StatusDelivered:  {},
}

// ParseStatus validates s and maps the legacy alias.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st == StatusPending {
		return StatusInitial, nil
	}
	if _, ok := transitions[st]; !ok {
		return "", apperr.Validation("invalid status: %s", s)
	}
	return st, nil
}

// CanTransition reports whether moving from one state to another follows
// the lifecycle order.
func CanTransition(from, to Status) bool {
	if from == StatusPending {
		from = StatusInitial
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ResultStatus string

const (
	ResultPending   ResultStatus = "PENDING"
	ResultCompleted ResultStatus = "COMPLETED"
)

// ResultEntry is one test's slot in a report. A group entry carries its
// members in SubResults, one level deep.
type ResultEntry struct {
	TestID         uuid.UUID       `json:"testId"`
	TestName       string          `json:"testName"`
	Kind           catalog.Kind    `json:"kind"`
	Status         ResultStatus    `json:"status"`
	ResultValue    json.RawMessage `json:"resultValue,omitempty"`
	Unit           string          `json:"unit"`
	ReferenceRange string          `json:"referenceRange"`
	Remarks        string          `json:"remarks,omitempty"`
	SubResults     []ResultEntry   `json:"subResults,omitempty"`
}

type Report struct {
	ID         uuid.UUID     `json:"id"`
	OrgID      int64         `json:"orgid"`
	BillID     uuid.UUID     `json:"billId"`
	PatientID  uuid.UUID     `json:"patientId"`
	DoctorID   uuid.UUID     `json:"doctorId"`
	Status     Status        `json:"status"`
	Results    []ResultEntry `json:"results"`
	Impression string        `json:"impression"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// testIDs lists every test referenced by the results, members included.
func (r *Report) testIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, e := range r.Results {
		ids = append(ids, e.TestID)
		for _, sub := range e.SubResults {
			ids = append(ids, sub.TestID)
		}
	}
	return ids
}

// View is a report with the records it references resolved for display.
type View struct {
	*Report
	Patient *person.Person            `json:"patient"`
	Doctor  *person.Person            `json:"doctor"`
	Bill    *billing.Bill             `json:"bill"`
	Tests   []*catalog.TestDefinition `json:"tests"`
}

type CreateRequest struct {
	BillID uuid.UUID `json:"billId" validate:"required"`
}

// UpdateRequest carries optional fields. Results, when present, replaces the
// whole result list.
type UpdateRequest struct {
	Status     *string        `json:"status"`
	Results    *[]ResultEntry `json:"results"`
	PatientID  *uuid.UUID     `json:"patientId"`
	DoctorID   *uuid.UUID     `json:"doctorId"`
	Impression *string        `json:"impression"`
}

// PublicParty is the part of a patient or doctor shown on shared links.
type PublicParty struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Gender       string    `json:"gender,omitempty"`
	Age          *int      `json:"age,omitempty"`
	HospitalName string    `json:"hospitalName,omitempty"`
}

func publicParty(p *person.Person) *PublicParty {
	if p == nil {
		return nil
	}
	out := &PublicParty{ID: p.ID, Name: p.Name, Gender: p.Gender, Age: p.Age}
	if p.Doctor != nil {
		out.HospitalName = p.Doctor.HospitalName
	}
	return out
}

// PublicReport is the unauthenticated report view. It carries no tenant id.
type PublicReport struct {
	ID         uuid.UUID     `json:"id"`
	BillID     uuid.UUID     `json:"billId"`
	Status     Status        `json:"status"`
	Results    []ResultEntry `json:"results"`
	Impression string        `json:"impression"`
	Patient    *PublicParty  `json:"patient"`
	Doctor     *PublicParty  `json:"doctor"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type ReportStatus struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status"`
}

// PublicBill is the unauthenticated bill view with the status of its report.
type PublicBill struct {
	ID           uuid.UUID      `json:"id"`
	Items        []billing.Item `json:"items"`
	Total        float64        `json:"total"`
	Discount     float64        `json:"discount"`
	Paid         float64        `json:"paid"`
	Due          float64        `json:"due"`
	Status       billing.Status `json:"status"`
	Patient      *PublicParty   `json:"patient"`
	Doctor       *PublicParty   `json:"doctor"`
	CreatedAt    time.Time      `json:"createdAt"`
	ReportStatus *ReportStatus  `json:"reportStatus"`
}
