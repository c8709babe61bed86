package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/domain/billing"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/person"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/db"
)

type BillStore interface {
	Get(ctx context.Context, orgID int64, id uuid.UUID) (*billing.Bill, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*billing.Bill, error)
	SetParties(ctx context.Context, orgID int64, id uuid.UUID, patientID, doctorID *uuid.UUID) error
}

type TestResolver interface {
	Resolve(ctx context.Context, orgID int64, ids []uuid.UUID) (map[uuid.UUID]*catalog.TestDefinition, error)
}

type PersonLookup interface {
	Lookup(ctx context.Context, orgID int64, id uuid.UUID) (*person.Person, error)
}

// ViewCache holds rendered public views.
type ViewCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

type Options struct {
	// StrictTransitions rejects status writes that skip or reverse the
	// lifecycle order. Otherwise they are applied and logged.
	StrictTransitions bool
}

type Service struct {
	repo    Repository
	bills   BillStore
	tests   TestResolver
	persons PersonLookup
	cache   ViewCache
	tx      db.Transactor
	opts    Options
	logger  zerolog.Logger
}

func NewService(repo Repository, bills BillStore, tests TestResolver, persons PersonLookup,
	cache ViewCache, tx db.Transactor, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		bills:   bills,
		tests:   tests,
		persons: persons,
		cache:   cache,
		tx:      tx,
		opts:    opts,
		logger:  logger.With().Str("component", "report").Logger(),
	}
}

// Synthesize returns the report for billID, creating it from the bill's
// tests on first use. created is false when the report already existed.
func (s *Service) Synthesize(ctx context.Context, orgID int64, billID uuid.UUID) (*Report, bool, error) {
	bill, err := s.bills.Get(ctx, orgID, billID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByBill(ctx, orgID, billID)
	switch {
	case err == nil:
		return existing, false, nil
	case apperr.KindOf(err) != apperr.KindNotFound:
		return nil, false, err
	}

	testIDs := bill.TestIDs()
	defs, err := s.tests.Resolve(ctx, orgID, testIDs)
	if err != nil {
		return nil, false, err
	}
	if members := memberIDs(defs, testIDs); len(members) > 0 {
		more, err := s.tests.Resolve(ctx, orgID, members)
		if err != nil {
			return nil, false, err
		}
		for id, def := range more {
			defs[id] = def
		}
	}

	r := &Report{
		ID:        uuid.New(),
		OrgID:     orgID,
		BillID:    bill.ID,
		PatientID: bill.PatientID,
		DoctorID:  bill.DoctorID,
		Status:    StatusInitial,
		Results:   buildResults(testIDs, defs),
	}
	created, err := s.repo.InsertIfAbsent(ctx, r)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info().
			Int64("orgid", orgID).
			Str("report_id", r.ID.String()).
			Str("bill_id", billID.String()).
			Int("entries", len(r.Results)).
			Msg("report synthesized")
		s.invalidate(ctx, r)
	}
	return r, created, nil
}

func (s *Service) Get(ctx context.Context, orgID int64, id uuid.UUID) (*View, error) {
	r, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, r)
}

func (s *Service) List(ctx context.Context, orgID int64, status string, limit, offset int) ([]*Report, int, error) {
	var st Status
	if status != "" {
		parsed, err := ParseStatus(status)
		if err != nil {
			return nil, 0, err
		}
		st = parsed
	}
	return s.repo.List(ctx, orgID, st, limit, offset)
}

// Update applies the fields present in req. A changed patient or doctor is
// written to the linked bill in the same transaction.
func (s *Service) Update(ctx context.Context, orgID int64, id uuid.UUID, req UpdateRequest) (*View, error) {
	var r *Report
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.Get(ctx, orgID, id)
		if err != nil {
			return err
		}

		if req.Status != nil {
			next, err := ParseStatus(*req.Status)
			if err != nil {
				return err
			}
			if !CanTransition(r.Status, next) {
				if s.opts.StrictTransitions {
					return apperr.Validation("cannot move report from %s to %s", r.Status, next)
				}
				s.logger.Warn().
					Str("report_id", r.ID.String()).
					Str("from", string(r.Status)).
					Str("to", string(next)).
					Msg("out of order status change")
			}
			r.Status = next
		}
		if req.Results != nil {
			results, err := replaceResults(r.Results, *req.Results)
			if err != nil {
				return err
			}
			r.Results = results
		}
		if req.Impression != nil {
			r.Impression = *req.Impression
		}

		var patientID, doctorID *uuid.UUID
		if req.PatientID != nil && *req.PatientID != r.PatientID {
			patientID = req.PatientID
		}
		if req.DoctorID != nil && *req.DoctorID != r.DoctorID {
			doctorID = req.DoctorID
		}
		if patientID != nil || doctorID != nil {
			if err := s.bills.SetParties(ctx, orgID, r.BillID, patientID, doctorID); err != nil {
				return err
			}
			if patientID != nil {
				r.PatientID = *patientID
			}
			if doctorID != nil {
				r.DoctorID = *doctorID
			}
		}

		return s.repo.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, r)
	return s.view(ctx, r)
}

func (s *Service) view(ctx context.Context, r *Report) (*View, error) {
	v := &View{Report: r, Tests: []*catalog.TestDefinition{}}
	var err error
	if v.Patient, err = s.persons.Lookup(ctx, r.OrgID, r.PatientID); err != nil {
		return nil, err
	}
	if v.Doctor, err = s.persons.Lookup(ctx, r.OrgID, r.DoctorID); err != nil {
		return nil, err
	}
	if v.Bill, err = s.bills.Get(ctx, r.OrgID, r.BillID); err != nil {
		return nil, err
	}

	ids := r.testIDs()
	defs, err := s.tests.Resolve(ctx, r.OrgID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if def, ok := defs[id]; ok {
			v.Tests = append(v.Tests, def)
			delete(defs, id)
		}
	}
	return v, nil
}
