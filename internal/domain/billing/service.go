package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/person"
	"github.com/lims/lims/internal/platform/apperr"
)

// maxExportRange bounds a single spreadsheet export.
const maxExportRange = 366 * 24 * time.Hour

// PersonChecker confirms that a referenced person exists with a given role.
type PersonChecker interface {
	Expect(ctx context.Context, orgID int64, role person.Role, id uuid.UUID) (*person.Person, error)
}

// TestResolver looks up catalog tests in bulk.
type TestResolver interface {
	Resolve(ctx context.Context, orgID int64, ids []uuid.UUID) (map[uuid.UUID]*catalog.TestDefinition, error)
}

// PublicViews drops the cached public views of a bill and its report.
type PublicViews interface {
	BillKeys(ctx context.Context, orgID int64, billID uuid.UUID) []string
	Drop(ctx context.Context, keys ...string)
}

type Service struct {
	repo    Repository
	persons PersonChecker
	tests   TestResolver
	views   PublicViews
	logger  zerolog.Logger

	now func() time.Time
}

// NewService builds the billing service. views may be nil when no public
// view cache is in use.
func NewService(repo Repository, persons PersonChecker, tests TestResolver, views PublicViews, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		persons: persons,
		tests:   tests,
		views:   views,
		logger:  logger.With().Str("component", "billing").Logger(),
		now:     time.Now,
	}
}

func (s *Service) Create(ctx context.Context, orgID int64, req CreateRequest) (*Bill, error) {
	if len(req.TestIDs) == 0 {
		return nil, apperr.Validation("at least one test is required")
	}
	if _, err := s.persons.Expect(ctx, orgID, person.RolePatient, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.persons.Expect(ctx, orgID, person.RoleDoctor, req.DoctorID); err != nil {
		return nil, err
	}

	defs, err := s.tests.Resolve(ctx, orgID, req.TestIDs)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(req.TestIDs))
	for _, id := range req.TestIDs {
		def, ok := defs[id]
		if !ok {
			return nil, apperr.Validation("test %s does not exist", id)
		}
		items = append(items, Item{TestID: def.ID, TestName: def.Name, Price: def.Price})
	}

	b := &Bill{
		ID:        uuid.New(),
		OrgID:     orgID,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Items:     items,
		Discount:  req.Discount,
		Paid:      req.Paid,
		Notes:     req.Notes,
	}
	if err := b.Recompute(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("orgid", orgID).Str("bill_id", b.ID.String()).Float64("total", b.Total).Msg("bill created")
	return b, nil
}

func (s *Service) Get(ctx context.Context, orgID int64, id uuid.UUID) (*Bill, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) GetPublic(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.repo.GetPublic(ctx, id)
}

func (s *Service) List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*Bill, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("status must be one of [UNPAID PARTIAL PAID]")
	}
	return s.repo.List(ctx, orgID, f, limit, offset)
}

// UpdatePayment applies the supplied payment fields and rederives Due and
// Status.
func (s *Service) UpdatePayment(ctx context.Context, orgID int64, id uuid.UUID, req PaymentRequest) (*Bill, error) {
	b, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if req.Discount != nil {
		b.Discount = *req.Discount
	}
	if req.Paid != nil {
		b.Paid = *req.Paid
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}
	if err := b.Recompute(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePayment(ctx, b); err != nil {
		return nil, err
	}
	if s.views != nil {
		s.views.Drop(ctx, s.views.BillKeys(ctx, orgID, id)...)
	}
	return b, nil
}

// SetParties re-points the bill at a different patient or doctor. Nil
// arguments leave that party unchanged. Run it inside the caller's
// transaction when the change mirrors another record.
func (s *Service) SetParties(ctx context.Context, orgID int64, id uuid.UUID, patientID, doctorID *uuid.UUID) error {
	if patientID == nil && doctorID == nil {
		return nil
	}
	if patientID != nil {
		if _, err := s.persons.Expect(ctx, orgID, person.RolePatient, *patientID); err != nil {
			return err
		}
	}
	if doctorID != nil {
		if _, err := s.persons.Expect(ctx, orgID, person.RoleDoctor, *doctorID); err != nil {
			return err
		}
	}
	return s.repo.SetParties(ctx, orgID, id, patientID, doctorID)
}

// Delete removes the bill. Its report goes with it, and so do the cached
// public views of both.
func (s *Service) Delete(ctx context.Context, orgID int64, id uuid.UUID) error {
	var keys []string
	if s.views != nil {
		keys = s.views.BillKeys(ctx, orgID, id)
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	if s.views != nil {
		s.views.Drop(ctx, keys...)
	}
	return nil
}

// ExportXLSX renders the bills created in [from, to) as a spreadsheet.
// Zero bounds default to the last 30 days.
func (s *Service) ExportXLSX(ctx context.Context, orgID int64, from, to time.Time) ([]byte, error) {
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, apperr.Validation("from must be before to")
	}
	if to.Sub(from) > maxExportRange {
		return nil, apperr.Validation("export range may not exceed one year")
	}

	rows, err := s.repo.ListForExport(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}
	data, err := writeBillsSheet(rows)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Debug().Int64("orgid", orgID).Int("rows", len(rows)).Msg("bills exported")
	return data, nil
}
