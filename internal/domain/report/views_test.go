package report

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
)

func TestViews_BillDeleteDropsPublicViews(t *testing.T) {
	fx := newFixture(t, Options{})
	r := fx.synthesize(t)
	ctx := context.Background()
	views := NewViews(fx.repo, fx.cache, zerolog.Nop())

	if _, err := fx.svc.PublicReport(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.svc.PublicBill(ctx, fx.bill.ID); err != nil {
		t.Fatal(err)
	}

	keys := views.BillKeys(ctx, testOrg, fx.bill.ID)
	if len(keys) != 2 {
		t.Fatalf("expected bill and report keys, got %v", keys)
	}

	// The bill goes and takes its report with it.
	delete(fx.bills.bills, fx.bill.ID)
	delete(fx.repo.reports, r.ID)
	views.Drop(ctx, keys...)

	if _, err := fx.svc.PublicReport(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected deleted report to be gone from the public view, got %v", err)
	}
	if _, err := fx.svc.PublicBill(ctx, fx.bill.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected deleted bill to be gone from the public view, got %v", err)
	}
}

func TestViews_BillKeysWithoutReport(t *testing.T) {
	fx := newFixture(t, Options{})
	views := NewViews(fx.repo, fx.cache, zerolog.Nop())

	keys := views.BillKeys(context.Background(), testOrg, fx.bill.ID)
	if len(keys) != 1 || keys[0] != billKey(fx.bill.ID) {
		t.Errorf("expected only the bill key, got %v", keys)
	}
}

func TestViews_ForgetPerson(t *testing.T) {
	fx := newFixture(t, Options{})
	r := fx.synthesize(t)
	ctx := context.Background()
	views := NewViews(fx.repo, fx.cache, zerolog.Nop())

	if _, err := fx.svc.PublicReport(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	fx.patient.Name = "Asha K"
	views.ForgetPerson(ctx, testOrg, fx.patient.ID)

	pub, err := fx.svc.PublicReport(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pub.Patient.Name != "Asha K" {
		t.Errorf("expected renamed patient after invalidation, got %q", pub.Patient.Name)
	}
}

func TestViews_NilCache(t *testing.T) {
	fx := newFixture(t, Options{})
	views := NewViews(fx.repo, nil, zerolog.Nop())
	views.Drop(context.Background(), "public:bill:x")
	views.ForgetPerson(context.Background(), testOrg, fx.patient.ID)
}
