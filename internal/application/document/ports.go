package document

import (
	"context"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/google/uuid"
)

// RenderRequest is everything a renderer needs to produce one artifact
type RenderRequest struct {
	GenerationID uuid.UUID
	DocumentID   uuid.UUID
	ProjectRef   string
	Number       document.DocumentNumber
	Data         document.TemplateData
}

// RenderedArtifact describes a stored artifact
type RenderedArtifact struct {
	FileURL     string
	SizeBytes   int64
	ContentType string
}

// Renderer turns template data into a stored file
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderedArtifact, error)
}

// DocumentMessage is an outgoing email carrying a generated document
type DocumentMessage struct {
	To             string
	DocumentType   document.DocumentType
	DocumentNumber string
	ProjectRef     string
	FileURL        string
}

// Notifier delivers generated documents to recipients
type Notifier interface {
	SendDocument(ctx context.Context, msg DocumentMessage) error
}
