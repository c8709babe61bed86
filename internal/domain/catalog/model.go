package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/platform/apperr"
)

type Kind string

const (
	KindNormal      Kind = "normal"
	KindDescriptive Kind = "descriptive"
	KindGroup       Kind = "group"
)

func (k Kind) Valid() bool {
	switch k {
	case KindNormal, KindDescriptive, KindGroup:
		return true
	}
	return false
}

// ReferenceRange is an optionally named interval. Either bound may be open.
type ReferenceRange struct {
	Name *string  `json:"name,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// TestDefinition is a catalog entry. A group lists its member tests in
// SubTests; each member points back through ParentGroupID.
type TestDefinition struct {
	ID              uuid.UUID        `json:"id"`
	OrgID           int64            `json:"orgid"`
	Name            string           `json:"name"`
	Code            string           `json:"code"`
	Category        string           `json:"category"`
	Price           float64          `json:"price"`
	Kind            Kind             `json:"kind"`
	Unit            string           `json:"unit"`
	Method          string           `json:"method"`
	Formula         string           `json:"formula"`
	Interpretation  string           `json:"interpretation"`
	Template        string           `json:"template"`
	ReferenceRanges []ReferenceRange `json:"referenceRanges"`
	SubTests        []uuid.UUID      `json:"subTests"`
	ParentGroupID   *uuid.UUID       `json:"parentGroupId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (t *TestDefinition) IsGroup() bool { return t.Kind == KindGroup }

// Validate checks field rules that do not need the store.
func (t *TestDefinition) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if !t.Kind.Valid() {
		return apperr.Validation("kind must be one of [normal descriptive group]")
	}
	if t.Price < 0 {
		return apperr.Validation("price must be greater than or equal to 0")
	}
	if !t.IsGroup() && len(t.SubTests) > 0 {
		return apperr.Validation("only group tests may have sub tests")
	}
	for i, r := range t.ReferenceRanges {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return apperr.Validation("referenceRanges[%d]: min is greater than max", i)
		}
	}
	if t.ReferenceRanges == nil {
		t.ReferenceRanges = []ReferenceRange{}
	}
	if t.SubTests == nil {
		t.SubTests = []uuid.UUID{}
	}
	return nil
}

// FormatReferenceRanges renders ranges for a report line, for example
// "Fasting: 70 - 110, 0 - 5". Ranges with no bounds are skipped.
func FormatReferenceRanges(ranges []ReferenceRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		var body string
		switch {
		case r.Min != nil && r.Max != nil:
			body = formatNumber(*r.Min) + " - " + formatNumber(*r.Max)
		case r.Min != nil:
			body = "> " + formatNumber(*r.Min)
		case r.Max != nil:
			body = "< " + formatNumber(*r.Max)
		default:
			continue
		}
		if r.Name != nil && *r.Name != "" {
			body = *r.Name + ": " + body
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Input is the create/update body.
type Input struct {
	Name            string           `json:"name" validate:"required"`
	Code            string           `json:"code"`
	Category        string           `json:"category"`
	Price           float64          `json:"price" validate:"gte=0"`
	Kind            Kind             `json:"kind" validate:"required,oneof=normal descriptive group"`
	Unit            string           `json:"unit"`
	Method          string           `json:"method"`
	Formula         string           `json:"formula"`
	Interpretation  string           `json:"interpretation"`
	Template        string           `json:"template"`
	ReferenceRanges []ReferenceRange `json:"referenceRanges"`
	SubTests        []uuid.UUID      `json:"subTests"`
}

func (in Input) apply(t *TestDefinition) {
	t.Name = in.Name
	t.Code = in.Code
	t.Category = in.Category
	t.Price = in.Price
	t.Kind = in.Kind
	t.Unit = in.Unit
	t.Method = in.Method
	t.Formula = in.Formula
	t.Interpretation = in.Interpretation
	t.Template = in.Template
	t.ReferenceRanges = in.ReferenceRanges
}

type SubTestsRequest struct {
	SubTests []uuid.UUID `json:"subTests"`
}

type ListFilter struct {
	Search   string
	Category string
	Kind     Kind
}
