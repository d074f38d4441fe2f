package persistence

import (
	"context"
	"fmt"

	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository implements ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID loads a project with its stages ordered by stage order
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return r.find(ctx, id, false)
}

// FindByIDForUpdate locks the project row with SELECT ... FOR UPDATE before
// loading the stages
func (r *GormProjectRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return r.find(ctx, id, true)
}

func (r *GormProjectRepository) find(ctx context.Context, id uuid.UUID, forUpdate bool) (*project.Project, error) {
	query := r.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m models.ProjectModel
	if err := query.First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		Order("stage_order ASC").
		Find(&m.Stages).Error; err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	return m.ToDomain(), nil
}

// ExistsByRef reports whether a project reference is taken
func (r *GormProjectRepository) ExistsByRef(ctx context.Context, projectRef string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProjectModel{}).
		Where("project_ref = ?", projectRef).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes the project row with a version check, then upserts its stages
func (r *GormProjectRepository) Save(ctx context.Context, p *project.Project) error {
	m := models.ProjectModelFromDomain(p)
	db := r.db.WithContext(ctx)

	if err := saveAggregate(db, m, p.ID, p.Version); err != nil {
		return err
	}
	if len(m.Stages) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stage_name", "status", "started_at", "completed_at", "updated_at"}),
	}).Create(&m.Stages).Error
	if err != nil {
		return fmt.Errorf("failed to save stages of project %s: %w", p.ProjectRef, translateError(err))
	}
	return nil
}

// Delete removes the stages and then the project
func (r *GormProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ?", id).Delete(&models.ProjectStageModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete stages: %w", err)
	}
	result := db.Delete(&models.ProjectModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ project.ProjectRepository = (*GormProjectRepository)(nil)
