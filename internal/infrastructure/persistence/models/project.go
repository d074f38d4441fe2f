package models

import (
	"time"

	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectModel is the GORM model for the projects table
type ProjectModel struct {
	AggregateModel
	ProjectRef    string              `gorm:"column:project_ref;type:varchar(50);not null;uniqueIndex"`
	ClientID      *uuid.UUID          `gorm:"column:client_id;type:uuid;index"`
	CreatedBy     *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	Status        string              `gorm:"type:varchar(20);not null;default:'planned'"`
	Priority      string              `gorm:"type:varchar(20);not null;default:'normal'"`
	CurrentStage  string              `gorm:"column:current_stage;type:varchar(100)"`
	QuoteAmount   *decimal.Decimal    `gorm:"column:quote_amount;type:decimal(18,2)"`
	CompletedDate *time.Time          `gorm:"column:completed_date"`
	Stages        []ProjectStageModel `gorm:"foreignKey:ProjectID;references:ID"`
}

// TableName returns the table name for ProjectModel
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the model and its loaded stages to the domain aggregate
func (m *ProjectModel) ToDomain() *project.Project {
	p := &project.Project{
		BaseAggregateRoot: m.Root(),
		ProjectRef:        m.ProjectRef,
		ClientID:          m.ClientID,
		CreatedBy:         m.CreatedBy,
		Status:            project.ProjectStatus(m.Status),
		Priority:          project.Priority(m.Priority),
		CurrentStage:      m.CurrentStage,
		CompletedDate:     m.CompletedDate,
		Stages:            make([]project.ProjectStage, 0, len(m.Stages)),
	}
	if m.QuoteAmount != nil {
		quote := valueobject.NewAmount(*m.QuoteAmount)
		p.QuoteAmount = &quote
	}
	for i := range m.Stages {
		p.Stages = append(p.Stages, m.Stages[i].ToDomain())
	}
	p.SortStages()
	return p
}

// ProjectModelFromDomain creates a ProjectModel, stages included
func ProjectModelFromDomain(p *project.Project) *ProjectModel {
	m := &ProjectModel{
		ProjectRef:    p.ProjectRef,
		ClientID:      p.ClientID,
		CreatedBy:     p.CreatedBy,
		Status:        string(p.Status),
		Priority:      string(p.Priority),
		CurrentStage:  p.CurrentStage,
		CompletedDate: p.CompletedDate,
		Stages:        make([]ProjectStageModel, 0, len(p.Stages)),
	}
	m.SetRoot(p.BaseAggregateRoot)
	if p.QuoteAmount != nil {
		quote := p.QuoteAmount.Decimal()
		m.QuoteAmount = &quote
	}
	for i := range p.Stages {
		m.Stages = append(m.Stages, *ProjectStageModelFromDomain(&p.Stages[i]))
	}
	return m
}

// ProjectStageModel is the GORM model for the project_stages table. The
// (project_id, stage_order) pair is unique.
type ProjectStageModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProjectID   uuid.UUID  `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_project_stage_order"`
	StageOrder  int        `gorm:"column:stage_order;not null;uniqueIndex:idx_project_stage_order"`
	StageName   string     `gorm:"column:stage_name;type:varchar(100);not null"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending'"`
	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for ProjectStageModel
func (ProjectStageModel) TableName() string {
	return "project_stages"
}

// ToDomain converts ProjectStageModel to domain ProjectStage
func (m *ProjectStageModel) ToDomain() project.ProjectStage {
	return project.ProjectStage{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Order:       m.StageOrder,
		StageName:   m.StageName,
		Status:      project.StageStatus(m.Status),
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ProjectStageModelFromDomain creates a ProjectStageModel from domain ProjectStage
func ProjectStageModelFromDomain(s *project.ProjectStage) *ProjectStageModel {
	return &ProjectStageModel{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		StageOrder:  s.Order,
		StageName:   s.StageName,
		Status:      string(s.Status),
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
