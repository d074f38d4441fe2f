//go:build integration

package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	appcosting "github.com/buildops/backoffice/internal/application/costing"
	appdocument "github.com/buildops/backoffice/internal/application/document"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/infrastructure/migration"
	"github.com/buildops/backoffice/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a disposable postgres container and applies the
// embedded migrations to it.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("backoffice_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migration.Source{Embedded: migrations.FS}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.GreaterOrEqual(t, version, uint(1))

	return db
}

func TestPostgres_NumberCounterUnderContention(t *testing.T) {
	db := newPostgresDB(t)
	scope := NewDocumentTransactionScope(db)

	const callers = 25
	var (
		mu      sync.Mutex
		numbers = make(map[string]bool)
		wg      sync.WaitGroup
	)
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := scope.Execute(context.Background(), func(repos appdocument.TransactionalRepositories) error {
				n, err := repos.NumberCounterRepo().Next(context.Background(), document.DocumentTypeInvoice)
				if err != nil {
					return err
				}
				mu.Lock()
				numbers[n.String()] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("allocation failed: %v", err)
	}
	require.Len(t, numbers, callers)
	for i := 1; i <= callers; i++ {
		assert.True(t, numbers[fmt.Sprintf("INV-%05d", i)], "missing INV-%05d", i)
	}
}

func TestPostgres_InvoiceAllocationIsSerialized(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	p := newTestProject(t, "PRJ-PG-001")
	require.NoError(t, NewGormProjectRepository(db).Save(ctx, p))

	svc := appcosting.NewReconciliationService(NewCostingTransactionScope(db), nil, zap.NewNop())
	invoice, err := svc.RegisterSupplierInvoice(ctx, appcosting.RegisterSupplierInvoiceRequest{
		InvoiceNumber: "SUP-7781",
		Supplier:      "Northern Timber",
		TotalAmount:   1000,
		TaxAmount:     200,
		IssuedAt:      time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	const writers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordMaterialCost(ctx, appcosting.RecordMaterialCostRequest{
				ProjectID:         p.ID,
				Material:          fmt.Sprintf("Joist batch %d", i),
				Quantity:          3,
				UnitPrice:         50,
				SupplierInvoiceID: &invoice.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrOverAllocation):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 4, rejected)

	allocation, err := svc.SupplierInvoiceAllocation(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "900.00", allocation.Allocated.String())
	assert.Equal(t, "100.00", allocation.Remaining.String())
	assert.Equal(t, 6, allocation.CostCount)
}

func TestPostgres_LockTimeoutSurfacesAsAllocationConflict(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	counters := NewGormNumberCounterRepository(db)

	_, err := counters.Next(ctx, document.DocumentTypeQuote)
	require.NoError(t, err)

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- db.Transaction(func(tx *gorm.DB) error {
			if _, err := NewGormNumberCounterRepository(tx).Next(ctx, document.DocumentTypeQuote); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET LOCAL lock_timeout = '100ms'").Error; err != nil {
			return err
		}
		_, err := NewGormNumberCounterRepository(tx).Next(ctx, document.DocumentTypeQuote)
		return err
	})
	close(release)
	require.NoError(t, <-done)

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNumberAllocationConflict)
	assert.True(t, shared.IsRetryable(err))
}
