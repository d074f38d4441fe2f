package document

import (
	"encoding/json"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/google/uuid"
)

// RegisterDocumentRequest attaches a document record to a project
type RegisterDocumentRequest struct {
	ProjectID uuid.UUID
	Filename  string
	FileType  string
	SizeBytes int64
}

// GenerateDocumentRequest asks for a new numbered artifact. TemplateData is
// decoded according to DocumentType.
type GenerateDocumentRequest struct {
	DocumentID     uuid.UUID
	DocumentType   string
	TemplateData   json.RawMessage
	GeneratedBy    *uuid.UUID
	AutoSend       bool
	RecipientEmail string
}

// DocumentResponse is the snapshot of a document
type DocumentResponse struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"file_type"`
	SizeBytes int64     `json:"size_bytes"`
	FileURL   string    `json:"file_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerationResponse is the snapshot of a document generation
type GenerationResponse struct {
	ID                uuid.UUID  `json:"id"`
	DocumentID        uuid.UUID  `json:"document_id"`
	DocumentType      string     `json:"document_type"`
	DocumentNumber    string     `json:"document_number"`
	Status            string     `json:"status"`
	FileURL           string     `json:"file_url,omitempty"`
	GeneratedAt       *time.Time `json:"generated_at,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	GeneratedBy       *uuid.UUID `json:"generated_by,omitempty"`
	AutoSend          bool       `json:"auto_send"`
	RecipientEmail    string     `json:"recipient_email,omitempty"`
	EmailSent         bool       `json:"email_sent"`
	EmailSentAt       *time.Time `json:"email_sent_at,omitempty"`
	DispatchAttempts  int        `json:"dispatch_attempts"`
	LastDispatchError string     `json:"last_dispatch_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// DispatchWarning reports a failed automatic send after a successful
// generation
type DispatchWarning struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// GenerateResult is the outcome of Generate. DispatchError is set when autoSend
// was attempted and failed.
type GenerateResult struct {
	Generation    GenerationResponse `json:"generation"`
	DispatchError *DispatchWarning   `json:"dispatch_error,omitempty"`
}

// ToDocumentResponse converts a document into its snapshot
func ToDocumentResponse(d *document.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:        d.ID,
		ProjectID: d.ProjectID,
		Filename:  d.Filename,
		FileType:  d.FileType,
		SizeBytes: d.SizeBytes,
		FileURL:   d.FileURL,
		CreatedAt: d.CreatedAt,
	}
}

// ToGenerationResponse converts a generation into its snapshot
func ToGenerationResponse(g *document.DocumentGeneration) GenerationResponse {
	return GenerationResponse{
		ID:                g.ID,
		DocumentID:        g.DocumentID,
		DocumentType:      g.DocumentType.String(),
		DocumentNumber:    g.DocumentNumber(),
		Status:            g.Status.String(),
		FileURL:           g.FileURL,
		GeneratedAt:       g.GeneratedAt,
		FailureReason:     g.FailureReason,
		GeneratedBy:       g.GeneratedBy,
		AutoSend:          g.AutoSend,
		RecipientEmail:    g.RecipientEmail,
		EmailSent:         g.EmailSent,
		EmailSentAt:       g.EmailSentAt,
		DispatchAttempts:  g.DispatchAttempts,
		LastDispatchError: g.LastDispatchError,
		CreatedAt:         g.CreatedAt,
	}
}
