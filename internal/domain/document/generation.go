package document

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeGeneration is the aggregate type name used in events
const AggregateTypeGeneration = "DocumentGeneration"

// GenerationStatus represents the status of one generation attempt
type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusGenerated GenerationStatus = "generated"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// IsValid checks if the status is known
func (s GenerationStatus) IsValid() bool {
	switch s {
	case GenerationStatusPending, GenerationStatusGenerated, GenerationStatusFailed:
		return true
	}
	return false
}

func (s GenerationStatus) String() string {
	return string(s)
}

// IsTerminal returns true for failed attempts. A retry is a new generation
// with a new number.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusFailed
}

// DocumentGeneration is one attempt at producing a numbered artifact from a
// document. The number is fixed at construction and has no setter.
type DocumentGeneration struct {
	shared.BaseAggregateRoot
	DocumentID        uuid.UUID
	DocumentType      DocumentType
	number            DocumentNumber
	Status            GenerationStatus
	TemplateData      TemplateData
	GeneratedBy       *uuid.UUID
	AutoSend          bool
	RecipientEmail    string
	FileURL           string
	GeneratedAt       *time.Time
	FailureReason     string
	EmailSent         bool
	EmailSentAt       *time.Time
	DispatchAttempts  int
	LastDispatchError string
}

// NewDocumentGeneration creates a pending generation holding an already
// allocated number
func NewDocumentGeneration(documentID uuid.UUID, number DocumentNumber, data TemplateData, generatedBy *uuid.UUID, autoSend bool, recipientEmail string) (*DocumentGeneration, error) {
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if number.IsZero() || !number.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Generation requires an allocated document number")
	}
	if data == nil {
		return nil, shared.NewDomainError("INVALID_TEMPLATE_DATA", "Template data is required")
	}
	if data.DocumentType() != number.Type {
		return nil, shared.NewDomainError("INVALID_TEMPLATE_DATA", fmt.Sprintf("Template data is for %s, number is for %s", data.DocumentType(), number.Type))
	}
	recipientEmail = strings.TrimSpace(recipientEmail)
	if recipientEmail != "" {
		if err := ValidateRecipient(recipientEmail); err != nil {
			return nil, err
		}
	}

	return &DocumentGeneration{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentID:        documentID,
		DocumentType:      number.Type,
		number:            number,
		Status:            GenerationStatusPending,
		TemplateData:      data,
		GeneratedBy:       generatedBy,
		AutoSend:          autoSend,
		RecipientEmail:    recipientEmail,
	}, nil
}

// RestoreDocumentGeneration rebuilds a generation from storage
func RestoreDocumentGeneration(base shared.BaseAggregateRoot, documentID uuid.UUID, number DocumentNumber) *DocumentGeneration {
	return &DocumentGeneration{
		BaseAggregateRoot: base,
		DocumentID:        documentID,
		DocumentType:      number.Type,
		number:            number,
	}
}

// Number returns the allocated document number
func (g *DocumentGeneration) Number() DocumentNumber {
	return g.number
}

// DocumentNumber returns the formatted document number
func (g *DocumentGeneration) DocumentNumber() string {
	return g.number.String()
}

// MarkGenerated records a successfully rendered artifact
func (g *DocumentGeneration) MarkGenerated(fileURL string) error {
	if g.Status != GenerationStatusPending {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Generation %s is %s, only pending generations can complete", g.DocumentNumber(), g.Status))
	}
	now := time.Now()
	g.Status = GenerationStatusGenerated
	g.FileURL = fileURL
	g.GeneratedAt = &now
	g.UpdatedAt = now
	g.IncrementVersion()
	g.AddDomainEvent(NewDocumentGeneratedEvent(g))
	return nil
}

// MarkFailed records a rendering failure. The number stays consumed.
func (g *DocumentGeneration) MarkFailed(reason string) error {
	if g.Status != GenerationStatusPending {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Generation %s is %s, only pending generations can fail", g.DocumentNumber(), g.Status))
	}
	g.Status = GenerationStatusFailed
	g.FailureReason = reason
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
	g.AddDomainEvent(NewDocumentGenerationFailedEvent(g))
	return nil
}

// CheckDispatchable reports whether an email may be sent. It returns
// alreadySent=true without error when the artifact was sent before, so that
// callers treat a repeated dispatch as a no-op.
func (g *DocumentGeneration) CheckDispatchable() (alreadySent bool, err error) {
	if g.EmailSent {
		return true, nil
	}
	if g.Status != GenerationStatusGenerated {
		return false, shared.NewInvalidTransitionError(fmt.Sprintf("Generation %s is %s, only generated documents can be sent", g.DocumentNumber(), g.Status))
	}
	return false, nil
}

// MarkEmailSent records a successful dispatch
func (g *DocumentGeneration) MarkEmailSent(recipientEmail string) error {
	alreadySent, err := g.CheckDispatchable()
	if err != nil {
		return err
	}
	if alreadySent {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Generation %s was already sent", g.DocumentNumber()))
	}
	now := time.Now()
	g.EmailSent = true
	g.EmailSentAt = &now
	g.RecipientEmail = recipientEmail
	g.DispatchAttempts++
	g.LastDispatchError = ""
	g.UpdatedAt = now
	g.IncrementVersion()
	g.AddDomainEvent(NewDocumentDispatchedEvent(g))
	return nil
}

// RecordDispatchFailure keeps retry bookkeeping; EmailSent stays false
func (g *DocumentGeneration) RecordDispatchFailure(reason string) {
	g.DispatchAttempts++
	g.LastDispatchError = reason
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
	g.AddDomainEvent(NewDocumentDispatchFailedEvent(g))
}

// CheckInvariants validates a generation loaded from or about to be written
// to storage
func (g *DocumentGeneration) CheckInvariants() error {
	if g.number.IsZero() {
		return shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Generation has no document number")
	}
	if !g.Status.IsValid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Unknown generation status %q", g.Status))
	}
	if g.EmailSent && (g.EmailSentAt == nil || g.Status != GenerationStatusGenerated) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Generation %s is marked sent but is %s", g.DocumentNumber(), g.Status))
	}
	return nil
}

// ValidateRecipient checks an email address
func ValidateRecipient(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_RECIPIENT", fmt.Sprintf("Invalid recipient email %q", email))
	}
	return nil
}
