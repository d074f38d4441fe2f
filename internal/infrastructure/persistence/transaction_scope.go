package persistence

import (
	"context"

	appcosting "github.com/buildops/backoffice/internal/application/costing"
	appdocument "github.com/buildops/backoffice/internal/application/document"
	appproject "github.com/buildops/backoffice/internal/application/project"
	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
	"gorm.io/gorm"
)

// gormTransactionalRepositories provides access to all repositories within a
// transaction. Each application package sees the subset it declares.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) ProjectRepo() project.ProjectRepository {
	return NewGormProjectRepository(r.tx)
}

func (r *gormTransactionalRepositories) MaterialCostRepo() costing.MaterialCostRepository {
	return NewGormMaterialCostRepository(r.tx)
}

func (r *gormTransactionalRepositories) SupplierInvoiceRepo() costing.SupplierInvoiceRepository {
	return NewGormSupplierInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceLineRepo() costing.InvoiceLineRepository {
	return NewGormInvoiceLineRepository(r.tx)
}

func (r *gormTransactionalRepositories) DocumentRepo() document.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) GenerationRepo() document.GenerationRepository {
	return NewGormGenerationRepository(r.tx)
}

func (r *gormTransactionalRepositories) NumberCounterRepo() document.NumberCounterRepository {
	return NewGormNumberCounterRepository(r.tx)
}

// ProjectTransactionScope runs stage workflow functions in a GORM transaction
type ProjectTransactionScope struct {
	db *gorm.DB
}

// NewProjectTransactionScope creates a new ProjectTransactionScope
func NewProjectTransactionScope(db *gorm.DB) *ProjectTransactionScope {
	return &ProjectTransactionScope{db: db}
}

// Execute commits when fn returns nil and rolls back otherwise
func (s *ProjectTransactionScope) Execute(ctx context.Context, fn func(repos appproject.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// CostingTransactionScope runs reconciliation functions in a GORM transaction
type CostingTransactionScope struct {
	db *gorm.DB
}

// NewCostingTransactionScope creates a new CostingTransactionScope
func NewCostingTransactionScope(db *gorm.DB) *CostingTransactionScope {
	return &CostingTransactionScope{db: db}
}

// Execute commits when fn returns nil and rolls back otherwise
func (s *CostingTransactionScope) Execute(ctx context.Context, fn func(repos appcosting.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// DocumentTransactionScope runs numbering and dispatch functions in a GORM
// transaction
type DocumentTransactionScope struct {
	db *gorm.DB
}

// NewDocumentTransactionScope creates a new DocumentTransactionScope
func NewDocumentTransactionScope(db *gorm.DB) *DocumentTransactionScope {
	return &DocumentTransactionScope{db: db}
}

// Execute commits when fn returns nil and rolls back otherwise
func (s *DocumentTransactionScope) Execute(ctx context.Context, fn func(repos appdocument.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

var (
	_ appproject.TransactionScope  = (*ProjectTransactionScope)(nil)
	_ appcosting.TransactionScope  = (*CostingTransactionScope)(nil)
	_ appdocument.TransactionScope = (*DocumentTransactionScope)(nil)

	_ appproject.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
	_ appcosting.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
	_ appdocument.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
