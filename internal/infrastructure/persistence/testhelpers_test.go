package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the schema migrated. One
// connection keeps every statement on the same in-memory database.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ProjectModel{},
		&models.ProjectStageModel{},
		&models.MaterialCostModel{},
		&models.SupplierInvoiceModel{},
		&models.InvoiceLineModel{},
		&models.DocumentModel{},
		&models.DocumentGenerationModel{},
		&models.DocumentNumberCounterModel{},
	))
	return db
}

// newMockDB returns a GORM handle over sqlmock using the postgres dialector
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func newTestProject(t *testing.T, ref string) *project.Project {
	t.Helper()
	p, err := project.NewProject(ref, project.PriorityNormal, []string{"Survey", "Build", "Handover"})
	require.NoError(t, err)
	p.PullDomainEvents()
	return p
}

func newInvoiceData() *document.InvoiceTemplateData {
	return &document.InvoiceTemplateData{
		ClientName: "Harbour Lofts Ltd",
		IssueDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Lines: []document.TemplateLine{
			{Description: "Roof trusses", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("41.333")},
		},
		TaxRate: decimal.RequireFromString("0.20"),
	}
}

func newTestGeneration(t *testing.T, documentID uuid.UUID, seq int64) *document.DocumentGeneration {
	t.Helper()
	number, err := document.NewDocumentNumber(document.DocumentTypeInvoice, seq)
	require.NoError(t, err)
	g, err := document.NewDocumentGeneration(documentID, number, newInvoiceData(), nil, false, "")
	require.NoError(t, err)
	return g
}
