package document

import (
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeDocument is the aggregate type name used in events
const AggregateTypeDocument = "Document"

// Document is an uploaded or generated artifact attached to a project.
// Generated documents point at their latest rendered artifact.
type Document struct {
	shared.BaseAggregateRoot
	ProjectID uuid.UUID
	Filename  string
	FileType  string
	SizeBytes int64
	FileURL   string
}

// NewDocument creates a document record for a project
func NewDocument(projectID uuid.UUID, filename, fileType string, sizeBytes int64) (*Document, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, shared.NewDomainError("INVALID_FILENAME", "Filename cannot be empty")
	}
	if sizeBytes < 0 {
		return nil, shared.NewDomainError("INVALID_SIZE", "File size cannot be negative")
	}
	return &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectID:         projectID,
		Filename:          filename,
		FileType:          strings.ToLower(strings.TrimSpace(fileType)),
		SizeBytes:         sizeBytes,
	}, nil
}

// RecordArtifact points the document at a freshly rendered file
func (d *Document) RecordArtifact(fileURL string, sizeBytes int64) {
	d.FileURL = fileURL
	d.SizeBytes = sizeBytes
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}
