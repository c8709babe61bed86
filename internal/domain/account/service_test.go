package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Account
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Account)}
}

func (m *mockRepo) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Email == NormalizeEmail(a.Email) {
			return apperr.Conflict("email already registered")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Email = NormalizeEmail(a.Email)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockRepo) get(id uuid.UUID) (*Account, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("account")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.Email == NormalizeEmail(email) {
			return m.get(a.ID)
		}
	}
	return nil, apperr.NotFound("account")
}

func (m *mockRepo) GetInOrg(_ context.Context, orgID int64, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.get(id)
	if err != nil || a.OrgID != orgID {
		return nil, apperr.NotFound("account")
	}
	return a, nil
}

func (m *mockRepo) ListByOrg(_ context.Context, orgID int64, limit, offset int) ([]*Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Account
	for _, a := range m.items {
		if a.OrgID == orgID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) SetActive(_ context.Context, orgID int64, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.OrgID != orgID {
		return apperr.NotFound("account")
	}
	a.Active = active
	return nil
}

func (m *mockRepo) ActivateByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.Email == NormalizeEmail(email) {
			a.Active = true
			return nil
		}
	}
	return apperr.NotFound("account")
}

func (m *mockRepo) SetRefreshToken(_ context.Context, id uuid.UUID, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return apperr.NotFound("account")
	}
	if token == nil {
		a.RefreshToken = nil
	} else {
		t := *token
		a.RefreshToken = &t
	}
	return nil
}

func (m *mockRepo) RotateRefreshToken(_ context.Context, id uuid.UUID, old, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.RefreshToken == nil || *a.RefreshToken != old {
		return false, nil
	}
	a.RefreshToken = &next
	return true, nil
}

// -- Helpers --

const testOrg int64 = 123456

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	ti, err := auth.NewTokenIssuer(auth.IssuerConfig{
		AccessSecret:  []byte("account-test-access-secret"),
		RefreshSecret: []byte("account-test-refresh-secret"),
	})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	repo := newMockRepo()
	return NewService(repo, ti, zerolog.Nop()), repo
}

func seedAccount(t *testing.T, repo *mockRepo, email, password string, active bool) *Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := &Account{OrgID: testOrg, Email: email, PasswordHash: &hash, Role: auth.RoleAdmin, Active: active}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return a
}

// -- Tests --

func TestLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedAccount(t, repo, "Admin@Lab.test", "s3cret-pass", true)
	seedAccount(t, repo, "new@lab.test", "s3cret-pass", false)
	noHash := &Account{OrgID: testOrg, Email: "google@lab.test", Role: auth.RoleUser, Active: true}
	_ = repo.Create(ctx, noHash)

	tests := []struct {
		name     string
		req      LoginRequest
		wantKind apperr.Kind
	}{
		{"unknown email", LoginRequest{Email: "ghost@lab.test", Password: "s3cret-pass"}, apperr.KindUnauthorized},
		{"wrong password", LoginRequest{Email: "admin@lab.test", Password: "nope-nope"}, apperr.KindUnauthorized},
		{"federated only", LoginRequest{Email: "google@lab.test", Password: "anything1"}, apperr.KindUnauthorized},
		{"inactive", LoginRequest{Email: "new@lab.test", Password: "s3cret-pass"}, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.req)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %v (%v), want %v", apperr.KindOf(err), err, tt.wantKind)
			}
		})
	}

	sess, err := svc.Login(ctx, LoginRequest{Email: "ADMIN@lab.test", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Tokens.AccessToken == "" || sess.Tokens.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	stored, _ := repo.GetByID(ctx, sess.Account.ID)
	if stored.RefreshToken == nil || *stored.RefreshToken != sess.Tokens.RefreshToken {
		t.Error("expected refresh token to be stored on the account")
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)

	first, err := svc.Login(ctx, LoginRequest{Email: "admin@lab.test", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Error("expected a new refresh token")
	}
	stored, _ := repo.GetByID(ctx, first.Account.ID)
	if *stored.RefreshToken != second.Tokens.RefreshToken {
		t.Error("stored token should be the rotated one")
	}
}

func TestRefresh_ReuseRevokesSession(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)

	first, _ := svc.Login(ctx, LoginRequest{Email: "admin@lab.test", Password: "s3cret-pass"})
	second, err := svc.Refresh(ctx, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Replaying the old token must fail and kill the current session too.
	if _, err := svc.Refresh(ctx, first.Tokens.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}
	stored, _ := repo.GetByID(ctx, first.Account.ID)
	if stored.RefreshToken != nil {
		t.Error("expected stored token to be cleared")
	}
	if _, err := svc.Refresh(ctx, second.Tokens.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected current token to be revoked as well, got %v", err)
	}
}

func TestRefresh_InvalidTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, tok := range []string{"", "garbage"} {
		if _, err := svc.Refresh(ctx, tok); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("Refresh(%q): expected unauthorized, got %v", tok, err)
		}
	}
}

func TestLogout_ClearsToken(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)
	sess, _ := svc.Login(ctx, LoginRequest{Email: "admin@lab.test", Password: "s3cret-pass"})

	if err := svc.Logout(ctx, sess.Account.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.Tokens.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected refresh after logout to fail, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, testOrg, CreateUserRequest{Name: "Tech", Email: "Tech@Lab.test", Password: "longenough"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Role != auth.RoleUser || !a.Active || a.Email != "tech@lab.test" || a.OrgID != testOrg {
		t.Errorf("unexpected account %+v", a)
	}

	_, err = svc.CreateUser(ctx, testOrg, CreateUserRequest{Name: "Dup", Email: "tech@lab.test", Password: "longenough"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	_, err = svc.CreateUser(ctx, testOrg, CreateUserRequest{Name: "X", Email: "x@lab.test", Password: "short"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for short password, got %v", err)
	}
	_, err = svc.CreateUser(ctx, testOrg, CreateUserRequest{Name: "X", Email: "y@lab.test", Password: "longenough", Role: "ROOT"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for role, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	admin := seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)
	user := seedAccount(t, repo, "user@lab.test", "s3cret-pass", true)

	if _, err := svc.SetActive(ctx, testOrg, admin.ID, admin.ID, false); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected self-deactivation to fail, got %v", err)
	}
	got, err := svc.SetActive(ctx, testOrg, admin.ID, user.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if got.Active {
		t.Error("expected account to be inactive")
	}
	if _, err := svc.SetActive(ctx, 999999, admin.ID, user.ID, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found across tenants, got %v", err)
	}
}

func TestActivate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := seedAccount(t, repo, "new@lab.test", "s3cret-pass", false)

	if err := svc.Activate(ctx, "NEW@lab.test"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ := repo.GetByID(ctx, a.ID)
	if !got.Active {
		t.Error("expected account to be active")
	}
	if err := svc.Activate(ctx, "ghost@lab.test"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMe_TenantScoped(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)

	if _, err := svc.Me(ctx, testOrg, a.ID); err != nil {
		t.Fatalf("me: %v", err)
	}
	if _, err := svc.Me(ctx, 654321, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for other tenant, got %v", err)
	}
}
