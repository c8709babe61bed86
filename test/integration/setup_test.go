//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lims/lims/internal/domain/account"
	"github.com/lims/lims/internal/domain/billing"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/organization"
	"github.com/lims/lims/internal/domain/person"
	"github.com/lims/lims/internal/domain/printsettings"
	"github.com/lims/lims/internal/domain/report"
	"github.com/lims/lims/internal/platform/cache"
	"github.com/lims/lims/internal/platform/db"
)

// pool is shared by every test in the package, initialized once in TestMain.
var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	p, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up postgres: %v\n", err)
		os.Exit(1)
	}
	pool = p

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func startPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("limstest"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("connection string: %w", err)
	}

	p, err := db.NewPool(ctx, db.PoolConfig{DatabaseURL: connStr, MaxConns: 10})
	if err != nil {
		terminate()
		return nil, nil, err
	}

	if _, err := db.NewMigrator(p, migrationsDir()).Up(ctx); err != nil {
		p.Close()
		terminate()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return p, func() {
		p.Close()
		terminate()
	}, nil
}

// migrationsDir locates the migrations directory relative to this file.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// app wires every service against the shared pool the way the server does.
type app struct {
	orgs     *organization.Service
	accounts *account.Service
	persons  *person.Service
	catalog  *catalog.Service
	bills    *billing.Service
	reports  *report.Service
	print    *printsettings.Service
	views    *cache.Cache
}

func newApp(t *testing.T, opts report.Options) *app {
	t.Helper()
	logger := zerolog.Nop()
	tx := db.NewTransactor(pool)

	views, err := cache.New(cache.Options{Size: 64, TTL: time.Minute}, logger)
	require.NoError(t, err)

	accountRepo := account.NewRepoPG(pool)
	reportRepo := report.NewRepoPG(pool)
	publicViews := report.NewViews(reportRepo, views, logger)
	personSvc := person.NewService(person.NewRepoPG(pool), publicViews, logger)
	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool), tx, logger)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), personSvc, catalogSvc, publicViews, logger)

	return &app{
		orgs:     organization.NewService(organization.NewRepoPG(pool), accountRepo, tx, logger),
		accounts: account.NewService(accountRepo, nil, logger),
		persons:  personSvc,
		catalog:  catalogSvc,
		bills:    billingSvc,
		reports:  report.NewService(reportRepo, billingSvc, catalogSvc, personSvc, views, tx, opts, logger),
		print:    printsettings.NewService(printsettings.NewRepoPG(pool), logger),
		views:    views,
	}
}

var emailSeq int

// newTenant registers a fresh organization and returns its orgid.
func newTenant(t *testing.T, a *app) int64 {
	t.Helper()
	emailSeq++
	org, admin, err := a.orgs.Register(context.Background(), organization.RegisterRequest{
		OrgName:  fmt.Sprintf("Lab %d", emailSeq),
		Email:    fmt.Sprintf("admin%d-%d@lab.test", emailSeq, time.Now().UnixNano()),
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	require.Equal(t, org.OrgID, admin.OrgID)
	return org.OrgID
}

func newPerson(t *testing.T, a *app, orgID int64, role person.Role, name string) *person.Person {
	t.Helper()
	p, err := a.persons.Create(context.Background(), orgID, role, person.Input{Name: name})
	require.NoError(t, err)
	return p
}

func newTest(t *testing.T, a *app, orgID int64, in catalog.Input) *catalog.TestDefinition {
	t.Helper()
	td, err := a.catalog.Create(context.Background(), orgID, in)
	require.NoError(t, err)
	return td
}
