package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
)

// ViewRef names the public views that show one bill.
type ViewRef struct {
	BillID   uuid.UUID
	ReportID *uuid.UUID
}

func (v ViewRef) keys() []string {
	keys := []string{billKey(v.BillID)}
	if v.ReportID != nil {
		keys = append(keys, reportKey(*v.ReportID))
	}
	return keys
}

// Views drops cached public views when the bills, reports or people behind
// them change. A nil cache makes every call a no-op.
type Views struct {
	repo   Repository
	cache  ViewCache
	logger zerolog.Logger
}

func NewViews(repo Repository, cache ViewCache, logger zerolog.Logger) *Views {
	return &Views{repo: repo, cache: cache, logger: logger.With().Str("component", "public_views").Logger()}
}

// BillKeys returns the cache keys of the views showing billID. Resolve them
// before deleting the bill since its report row is removed with it.
func (v *Views) BillKeys(ctx context.Context, orgID int64, billID uuid.UUID) []string {
	ref := ViewRef{BillID: billID}
	r, err := v.repo.GetByBill(ctx, orgID, billID)
	switch {
	case err == nil:
		ref.ReportID = &r.ID
	case apperr.KindOf(err) != apperr.KindNotFound:
		v.logger.Warn().Err(err).Str("bill_id", billID.String()).Msg("report lookup for invalidation failed")
	}
	return ref.keys()
}

// Drop removes keys from the cache. Failures are logged; entries then age
// out with the cache TTL.
func (v *Views) Drop(ctx context.Context, keys ...string) {
	if v.cache == nil || len(keys) == 0 {
		return
	}
	if err := v.cache.Delete(ctx, keys...); err != nil {
		v.logger.Warn().Err(err).Strs("keys", keys).Msg("public view invalidation failed")
	}
}

// ForgetPerson drops every view that shows personID as patient or doctor.
func (v *Views) ForgetPerson(ctx context.Context, orgID int64, personID uuid.UUID) {
	if v.cache == nil {
		return
	}
	refs, err := v.repo.ViewsOfPerson(ctx, orgID, personID)
	if err != nil {
		v.logger.Warn().Err(err).Str("person_id", personID.String()).Msg("view lookup for invalidation failed")
		return
	}
	var keys []string
	for _, ref := range refs {
		keys = append(keys, ref.keys()...)
	}
	v.Drop(ctx, keys...)
}
