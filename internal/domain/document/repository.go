package document

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository persists documents
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]Document, error)
	Save(ctx context.Context, d *Document) error
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

// GenerationRepository persists document generations
type GenerationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DocumentGeneration, error)
	// FindByIDForUpdate loads the generation holding a row lock so that the
	// sent flag is re-read and written under one lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*DocumentGeneration, error)
	// FindByDocument returns generations newest first
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]DocumentGeneration, error)
	Save(ctx context.Context, g *DocumentGeneration) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

// NumberCounterRepository hands out document sequences.
type NumberCounterRepository interface {
	// Next increments and returns the counter of docType. It must run inside
	// the transaction that stores the generation receiving the number, with
	// the counter row locked until that transaction ends.
	Next(ctx context.Context, docType DocumentType) (DocumentNumber, error)
}
