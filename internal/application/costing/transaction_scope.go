package costing

import (
	"context"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/project"
)

// TransactionScope runs a function inside one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the reconciliation repositories bound
// to one transaction.
//
// Lock order: a supplier invoice row is always locked before any material
// cost row, so relinks and invoice removals cannot deadlock each other.
type TransactionalRepositories interface {
	ProjectRepo() project.ProjectRepository
	MaterialCostRepo() costing.MaterialCostRepository
	SupplierInvoiceRepo() costing.SupplierInvoiceRepository
	InvoiceLineRepo() costing.InvoiceLineRepository
}
