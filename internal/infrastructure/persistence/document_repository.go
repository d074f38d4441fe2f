package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var m models.DocumentModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

func (r *GormDocumentRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]document.Document, error) {
	var rows []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]document.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, *rows[i].ToDomain())
	}
	return docs, nil
}

func (r *GormDocumentRepository) Save(ctx context.Context, d *document.Document) error {
	return saveAggregate(r.db.WithContext(ctx), models.DocumentModelFromDomain(d), d.ID, d.Version)
}

func (r *GormDocumentRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

func (r *GormDocumentRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.DocumentModel{}).Error
}

// GormGenerationRepository implements GenerationRepository using GORM
type GormGenerationRepository struct {
	db *gorm.DB
}

// NewGormGenerationRepository creates a new GormGenerationRepository
func NewGormGenerationRepository(db *gorm.DB) *GormGenerationRepository {
	return &GormGenerationRepository{db: db}
}

func (r *GormGenerationRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.DocumentGeneration, error) {
	var m models.DocumentGenerationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain()
}

// FindByIDForUpdate reads the generation with SELECT ... FOR UPDATE
func (r *GormGenerationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*document.DocumentGeneration, error) {
	var m models.DocumentGenerationModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain()
}

// FindByDocument returns generations newest first
func (r *GormGenerationRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]document.DocumentGeneration, error) {
	var rows []models.DocumentGenerationModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC, sequence DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	generations := make([]document.DocumentGeneration, 0, len(rows))
	for i := range rows {
		g, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		generations = append(generations, *g)
	}
	return generations, nil
}

func (r *GormGenerationRepository) Save(ctx context.Context, g *document.DocumentGeneration) error {
	if err := g.CheckInvariants(); err != nil {
		return err
	}
	m, err := models.DocumentGenerationModelFromDomain(g)
	if err != nil {
		return err
	}
	return saveAggregate(r.db.WithContext(ctx), m, g.ID, g.Version)
}

// DeleteByProject removes the generations of every document of the project
func (r *GormGenerationRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	docs := r.db.Model(&models.DocumentModel{}).Select("id").Where("project_id = ?", projectID)
	return r.db.WithContext(ctx).Where("document_id IN (?)", docs).Delete(&models.DocumentGenerationModel{}).Error
}

// GormNumberCounterRepository implements NumberCounterRepository on the
// document_number_counters table
type GormNumberCounterRepository struct {
	db *gorm.DB
}

// NewGormNumberCounterRepository creates a new GormNumberCounterRepository
func NewGormNumberCounterRepository(db *gorm.DB) *GormNumberCounterRepository {
	return &GormNumberCounterRepository{db: db}
}

// Next makes sure the counter row exists, locks it with SELECT ... FOR
// UPDATE and increments it. The lock is held until the caller's transaction
// ends, so a rolled back transaction gives the number back and a committed
// one never hands it out twice. Lock waits that exceed lock_timeout surface
// as NUMBER_ALLOCATION_CONFLICT.
func (r *GormNumberCounterRepository) Next(ctx context.Context, docType document.DocumentType) (document.DocumentNumber, error) {
	if !docType.IsValid() {
		return document.DocumentNumber{}, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", docType))
	}
	db := r.db.WithContext(ctx)
	now := time.Now()

	seed := &models.DocumentNumberCounterModel{DocumentType: string(docType), UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return document.DocumentNumber{}, r.allocationError(docType, err)
	}

	var counter models.DocumentNumberCounterModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&counter, "document_type = ?", string(docType)).Error; err != nil {
		return document.DocumentNumber{}, r.allocationError(docType, err)
	}

	next := counter.LastValue + 1
	if err := db.Model(&models.DocumentNumberCounterModel{}).
		Where("document_type = ?", string(docType)).
		Updates(map[string]any{"last_value": next, "updated_at": now}).Error; err != nil {
		return document.DocumentNumber{}, r.allocationError(docType, err)
	}
	return document.NewDocumentNumber(docType, next)
}

func (r *GormNumberCounterRepository) allocationError(docType document.DocumentType, err error) error {
	if isLockContention(err) {
		return shared.NewNumberAllocationConflictError(fmt.Sprintf("Counter for %s is busy, retry the request: %v", docType, err))
	}
	return fmt.Errorf("failed to allocate %s number: %w", docType, err)
}

var (
	_ document.DocumentRepository      = (*GormDocumentRepository)(nil)
	_ document.GenerationRepository    = (*GormGenerationRepository)(nil)
	_ document.NumberCounterRepository = (*GormNumberCounterRepository)(nil)
)
