package models

import (
	"fmt"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentModel is the GORM model for the documents table
type DocumentModel struct {
	AggregateModel
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;not null;index"`
	Filename  string    `gorm:"type:varchar(255);not null"`
	FileType  string    `gorm:"column:file_type;type:varchar(50)"`
	SizeBytes int64     `gorm:"column:size_bytes;not null;default:0"`
	FileURL   string    `gorm:"column:file_url;type:text"`
}

// TableName returns the table name for DocumentModel
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts DocumentModel to domain Document
func (m *DocumentModel) ToDomain() *document.Document {
	return &document.Document{
		BaseAggregateRoot: m.Root(),
		ProjectID:         m.ProjectID,
		Filename:          m.Filename,
		FileType:          m.FileType,
		SizeBytes:         m.SizeBytes,
		FileURL:           m.FileURL,
	}
}

// DocumentModelFromDomain creates a DocumentModel from domain Document
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{
		ProjectID: d.ProjectID,
		Filename:  d.Filename,
		FileType:  d.FileType,
		SizeBytes: d.SizeBytes,
		FileURL:   d.FileURL,
	}
	m.SetRoot(d.BaseAggregateRoot)
	return m
}

// DocumentGenerationModel is the GORM model for the document_generations
// table. document_number is unique across all types; sequence is kept next
// to it so numbers can be ordered without parsing.
type DocumentGenerationModel struct {
	AggregateModel
	DocumentID        uuid.UUID      `gorm:"column:document_id;type:uuid;not null;index"`
	DocumentType      string         `gorm:"column:document_type;type:varchar(20);not null"`
	Sequence          int64          `gorm:"not null"`
	DocumentNumber    string         `gorm:"column:document_number;type:varchar(50);not null;uniqueIndex"`
	Status            string         `gorm:"type:varchar(20);not null;default:'pending'"`
	TemplateData      datatypes.JSON `gorm:"column:template_data;not null"`
	GeneratedBy       *uuid.UUID     `gorm:"column:generated_by;type:uuid"`
	AutoSend          bool           `gorm:"column:auto_send;not null;default:false"`
	RecipientEmail    string         `gorm:"column:recipient_email;type:varchar(255)"`
	FileURL           string         `gorm:"column:file_url;type:text"`
	GeneratedAt       *time.Time     `gorm:"column:generated_at"`
	FailureReason     string         `gorm:"column:failure_reason;type:text"`
	EmailSent         bool           `gorm:"column:email_sent;not null;default:false"`
	EmailSentAt       *time.Time     `gorm:"column:email_sent_at"`
	DispatchAttempts  int            `gorm:"column:dispatch_attempts;not null;default:0"`
	LastDispatchError string         `gorm:"column:last_dispatch_error;type:text"`
}

// TableName returns the table name for DocumentGenerationModel
func (DocumentGenerationModel) TableName() string {
	return "document_generations"
}

// ToDomain converts the model to a domain DocumentGeneration. Stored rows
// that fail the generation invariants are reported as errors.
func (m *DocumentGenerationModel) ToDomain() (*document.DocumentGeneration, error) {
	number, err := document.NewDocumentNumber(document.DocumentType(m.DocumentType), m.Sequence)
	if err != nil {
		return nil, fmt.Errorf("generation %s: %w", m.ID, err)
	}
	data, err := document.DecodeTemplateData(number.Type, m.TemplateData)
	if err != nil {
		return nil, fmt.Errorf("generation %s: %w", m.ID, err)
	}

	g := document.RestoreDocumentGeneration(m.Root(), m.DocumentID, number)
	g.Status = document.GenerationStatus(m.Status)
	g.TemplateData = data
	g.GeneratedBy = m.GeneratedBy
	g.AutoSend = m.AutoSend
	g.RecipientEmail = m.RecipientEmail
	g.FileURL = m.FileURL
	g.GeneratedAt = m.GeneratedAt
	g.FailureReason = m.FailureReason
	g.EmailSent = m.EmailSent
	g.EmailSentAt = m.EmailSentAt
	g.DispatchAttempts = m.DispatchAttempts
	g.LastDispatchError = m.LastDispatchError

	if err := g.CheckInvariants(); err != nil {
		return nil, err
	}
	return g, nil
}

// DocumentGenerationModelFromDomain creates a DocumentGenerationModel from
// a domain DocumentGeneration
func DocumentGenerationModelFromDomain(g *document.DocumentGeneration) (*DocumentGenerationModel, error) {
	raw, err := document.EncodeTemplateData(g.TemplateData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template data: %w", err)
	}
	number := g.Number()
	m := &DocumentGenerationModel{
		DocumentID:        g.DocumentID,
		DocumentType:      string(number.Type),
		Sequence:          number.Sequence,
		DocumentNumber:    number.String(),
		Status:            string(g.Status),
		TemplateData:      datatypes.JSON(raw),
		GeneratedBy:       g.GeneratedBy,
		AutoSend:          g.AutoSend,
		RecipientEmail:    g.RecipientEmail,
		FileURL:           g.FileURL,
		GeneratedAt:       g.GeneratedAt,
		FailureReason:     g.FailureReason,
		EmailSent:         g.EmailSent,
		EmailSentAt:       g.EmailSentAt,
		DispatchAttempts:  g.DispatchAttempts,
		LastDispatchError: g.LastDispatchError,
	}
	m.SetRoot(g.BaseAggregateRoot)
	return m, nil
}

// DocumentNumberCounterModel is the GORM model for document_number_counters,
// one row per document type holding the last issued sequence
type DocumentNumberCounterModel struct {
	DocumentType string    `gorm:"column:document_type;type:varchar(20);primaryKey"`
	LastValue    int64     `gorm:"column:last_value;not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for DocumentNumberCounterModel
func (DocumentNumberCounterModel) TableName() string {
	return "document_number_counters"
}
