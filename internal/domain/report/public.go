package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/person"
	"github.com/lims/lims/internal/platform/apperr"
)

func reportKey(id uuid.UUID) string { return "public:report:" + id.String() }
func billKey(id uuid.UUID) string { return "public:bill:" + id.String() }

// PublicReport serves the shareable report view by id alone.
func (s *Service) PublicReport(ctx context.Context, id uuid.UUID) (*PublicReport, error) {
	var cached PublicReport
	if s.cacheGet(ctx, reportKey(id), &cached) {
		return &cached, nil
	}

	r, err := s.repo.GetPublic(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, doctor, err := s.parties(ctx, r.OrgID, r.PatientID, r.DoctorID)
	if err != nil {
		return nil, err
	}
	out := &PublicReport{
		ID:         r.ID,
		BillID:     r.BillID,
		Status:     r.Status,
		Results:    r.Results,
		Impression: r.Impression,
		Patient:    publicParty(patient),
		Doctor:     publicParty(doctor),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	s.cacheSet(ctx, reportKey(id), out)
	return out, nil
}

// PublicBill serves the shareable bill view with the linked report status.
func (s *Service) PublicBill(ctx context.Context, id uuid.UUID) (*PublicBill, error) {
	var cached PublicBill
	if s.cacheGet(ctx, billKey(id), &cached) {
		return &cached, nil
	}

	b, err := s.bills.GetPublic(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, doctor, err := s.parties(ctx, b.OrgID, b.PatientID, b.DoctorID)
	if err != nil {
		return nil, err
	}
	out := &PublicBill{
		ID:        b.ID,
		Items:     b.Items,
		Total:     b.Total,
		Discount:  b.Discount,
		Paid:      b.Paid,
		Due:       b.Due,
		Status:    b.Status,
		Patient:   publicParty(patient),
		Doctor:    publicParty(doctor),
		CreatedAt: b.CreatedAt,
	}

	r, err := s.repo.GetPublicByBill(ctx, id)
	switch {
	case err == nil:
		out.ReportStatus = &ReportStatus{ID: r.ID, Status: r.Status}
	case apperr.KindOf(err) != apperr.KindNotFound:
		return nil, err
	}

	s.cacheSet(ctx, billKey(id), out)
	return out, nil
}

func (s *Service) parties(ctx context.Context, orgID int64, patientID, doctorID uuid.UUID) (*person.Person, *person.Person, error) {
	patient, err := s.persons.Lookup(ctx, orgID, patientID)
	if err != nil {
		return nil, nil, err
	}
	doctor, err := s.persons.Lookup(ctx, orgID, doctorID)
	if err != nil {
		return nil, nil, err
	}
	return patient, doctor, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	return ok
}

func (s *Service) cacheSet(ctx context.Context, key string, v interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// invalidate drops the public views that show r.
func (s *Service) invalidate(ctx context.Context, r *Report) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, reportKey(r.ID), billKey(r.BillID)); err != nil {
		s.logger.Warn().Err(err).Str("report_id", r.ID.String()).Msg("public view invalidation failed")
	}
}
