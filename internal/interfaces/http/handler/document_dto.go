package handler

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RegisterDocumentRequest is the body of POST /projects/:id/documents
type RegisterDocumentRequest struct {
	Filename  string `json:"filename" binding:"required"`
	FileType  string `json:"file_type"`
	SizeBytes int64  `json:"size_bytes" binding:"gte=0"`
}

// GenerateDocumentRequest is the body of POST /documents/:id/generations.
// TemplateData is decoded according to DocumentType.
type GenerateDocumentRequest struct {
	DocumentType   string          `json:"document_type" binding:"required"`
	TemplateData   json.RawMessage `json:"template_data" binding:"required"`
	GeneratedBy    *uuid.UUID      `json:"generated_by"`
	AutoSend       bool            `json:"auto_send"`
	RecipientEmail string          `json:"recipient_email" binding:"omitempty,email"`
}

// DispatchRequest is the optional body of POST /document-generations/:id/dispatch.
// An empty recipient falls back to the address stored on the generation.
type DispatchRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"omitempty,email"`
}
