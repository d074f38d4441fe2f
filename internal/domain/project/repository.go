package project

import (
	"context"

	"github.com/google/uuid"
)

// ProjectRepository persists projects together with their stage plan
type ProjectRepository interface {
	// FindByID loads a project and its stages ordered by stage order
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// FindByIDForUpdate loads a project and its stages while holding a row
	// lock on the project until the surrounding transaction ends. Stage
	// transitions use it so that concurrent calls on one project serialize.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Project, error)

	// ExistsByRef reports whether a project reference is taken
	ExistsByRef(ctx context.Context, projectRef string) (bool, error)

	// Save creates or updates the project and its stages. Updates are
	// rejected with shared.ErrConcurrencyConflict if the stored version is
	// not the one the aggregate was loaded with.
	Save(ctx context.Context, p *Project) error

	// Delete removes the project and its stages
	Delete(ctx context.Context, id uuid.UUID) error
}
