package document

import (
	"context"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
)

// TransactionScope runs a function inside one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the document repositories bound to one
// transaction. NumberCounterRepo().Next must be called in the same
// transaction that saves the generation receiving the number.
type TransactionalRepositories interface {
	ProjectRepo() project.ProjectRepository
	DocumentRepo() document.DocumentRepository
	GenerationRepo() document.GenerationRepository
	NumberCounterRepo() document.NumberCounterRepository
}
