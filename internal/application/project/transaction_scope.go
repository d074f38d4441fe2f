package project

import (
	"context"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
)

// TransactionScope runs a function inside one database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories the stage workflow
// touches, all bound to the same transaction. The dependent-record
// repositories are needed by the project deletion policy.
type TransactionalRepositories interface {
	ProjectRepo() project.ProjectRepository
	MaterialCostRepo() costing.MaterialCostRepository
	InvoiceLineRepo() costing.InvoiceLineRepository
	DocumentRepo() document.DocumentRepository
	GenerationRepo() document.GenerationRepository
}
