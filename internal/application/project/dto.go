package project

import (
	"time"

	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RegisterProjectRequest describes a new project and its stage plan
type RegisterProjectRequest struct {
	ProjectRef  string
	Priority    string
	ClientID    *uuid.UUID
	CreatedBy   *uuid.UUID
	QuoteAmount *float64
	StageNames  []string
}

// StageResponse is the snapshot of one stage
type StageResponse struct {
	ID          uuid.UUID  `json:"id"`
	Order       int        `json:"order"`
	StageName   string     `json:"stage_name"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProjectResponse is the snapshot returned by every workflow operation
type ProjectResponse struct {
	ID            uuid.UUID           `json:"id"`
	ProjectRef    string              `json:"project_ref"`
	Status        string              `json:"status"`
	Priority      string              `json:"priority"`
	CurrentStage  string              `json:"current_stage"`
	ClientID      *uuid.UUID          `json:"client_id,omitempty"`
	CreatedBy     *uuid.UUID          `json:"created_by,omitempty"`
	QuoteAmount   *valueobject.Amount `json:"quote_amount,omitempty"`
	CompletedDate *time.Time          `json:"completed_date,omitempty"`
	Stages        []StageResponse     `json:"stages"`
	Version       int                 `json:"version"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ToProjectResponse converts the aggregate into its snapshot
func ToProjectResponse(p *project.Project) *ProjectResponse {
	stages := make([]StageResponse, 0, len(p.Stages))
	for _, s := range p.Stages {
		stages = append(stages, StageResponse{
			ID:          s.ID,
			Order:       s.Order,
			StageName:   s.StageName,
			Status:      s.Status.String(),
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
		})
	}
	return &ProjectResponse{
		ID:            p.ID,
		ProjectRef:    p.ProjectRef,
		Status:        p.Status.String(),
		Priority:      string(p.Priority),
		CurrentStage:  p.CurrentStage,
		ClientID:      p.ClientID,
		CreatedBy:     p.CreatedBy,
		QuoteAmount:   p.QuoteAmount,
		CompletedDate: p.CompletedDate,
		Stages:        stages,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
