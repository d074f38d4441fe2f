package document

import (
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeDocumentGenerated        = "DocumentGenerated"
	EventTypeDocumentGenerationFailed = "DocumentGenerationFailed"
	EventTypeDocumentDispatched       = "DocumentDispatched"
	EventTypeDocumentDispatchFailed   = "DocumentDispatchFailed"
)

// DocumentGeneratedEvent is raised when an artifact was rendered and stored
type DocumentGeneratedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID    `json:"document_id"`
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	FileURL        string       `json:"file_url"`
	AutoSend       bool         `json:"auto_send"`
}

// NewDocumentGeneratedEvent creates a new DocumentGeneratedEvent
func NewDocumentGeneratedEvent(g *DocumentGeneration) *DocumentGeneratedEvent {
	return &DocumentGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentGenerated, AggregateTypeGeneration, g.ID),
		DocumentID:      g.DocumentID,
		DocumentType:    g.DocumentType,
		DocumentNumber:  g.DocumentNumber(),
		FileURL:         g.FileURL,
		AutoSend:        g.AutoSend,
	}
}

// DocumentGenerationFailedEvent is raised when rendering failed
type DocumentGenerationFailedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID    `json:"document_id"`
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	Reason         string       `json:"reason"`
}

// NewDocumentGenerationFailedEvent creates a new DocumentGenerationFailedEvent
func NewDocumentGenerationFailedEvent(g *DocumentGeneration) *DocumentGenerationFailedEvent {
	return &DocumentGenerationFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentGenerationFailed, AggregateTypeGeneration, g.ID),
		DocumentID:      g.DocumentID,
		DocumentType:    g.DocumentType,
		DocumentNumber:  g.DocumentNumber(),
		Reason:          g.FailureReason,
	}
}

// DocumentDispatchedEvent is raised when the artifact was emailed
type DocumentDispatchedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID    `json:"document_id"`
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	RecipientEmail string       `json:"recipient_email"`
	SentAt         time.Time    `json:"sent_at"`
}

// NewDocumentDispatchedEvent creates a new DocumentDispatchedEvent
func NewDocumentDispatchedEvent(g *DocumentGeneration) *DocumentDispatchedEvent {
	return &DocumentDispatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDispatched, AggregateTypeGeneration, g.ID),
		DocumentID:      g.DocumentID,
		DocumentType:    g.DocumentType,
		DocumentNumber:  g.DocumentNumber(),
		RecipientEmail:  g.RecipientEmail,
		SentAt:          *g.EmailSentAt,
	}
}

// DocumentDispatchFailedEvent is raised when sending the artifact failed. The
// generation stays unsent and may be dispatched again.
type DocumentDispatchFailedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID    `json:"document_id"`
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	Attempts       int          `json:"attempts"`
	Reason         string       `json:"reason"`
}

// NewDocumentDispatchFailedEvent creates a new DocumentDispatchFailedEvent
func NewDocumentDispatchFailedEvent(g *DocumentGeneration) *DocumentDispatchFailedEvent {
	return &DocumentDispatchFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDispatchFailed, AggregateTypeGeneration, g.ID),
		DocumentID:      g.DocumentID,
		DocumentType:    g.DocumentType,
		DocumentNumber:  g.DocumentNumber(),
		Attempts:        g.DispatchAttempts,
		Reason:          g.LastDispatchError,
	}
}
