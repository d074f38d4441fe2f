package project

import (
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type names
const (
	EventTypeProjectRegistered = "ProjectRegistered"
	EventTypeStageStarted      = "StageStarted"
	EventTypeStageCompleted    = "StageCompleted"
	EventTypeProjectCompleted  = "ProjectCompleted"
)

// ProjectRegisteredEvent is raised when a project and its stage plan are created
type ProjectRegisteredEvent struct {
	shared.BaseDomainEvent
	ProjectRef string `json:"project_ref"`
	StageCount int    `json:"stage_count"`
}

// NewProjectRegisteredEvent creates a new ProjectRegisteredEvent
func NewProjectRegisteredEvent(p *Project) *ProjectRegisteredEvent {
	return &ProjectRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProjectRegistered, AggregateTypeProject, p.ID),
		ProjectRef:      p.ProjectRef,
		StageCount:      len(p.Stages),
	}
}

// StageStartedEvent is raised when a stage moves to in_progress
type StageStartedEvent struct {
	shared.BaseDomainEvent
	ProjectRef string    `json:"project_ref"`
	StageID    uuid.UUID `json:"stage_id"`
	StageOrder int       `json:"stage_order"`
	StageName  string    `json:"stage_name"`
	StartedAt  time.Time `json:"started_at"`
}

// NewStageStartedEvent creates a new StageStartedEvent
func NewStageStartedEvent(p *Project, s *ProjectStage) *StageStartedEvent {
	return &StageStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStageStarted, AggregateTypeProject, p.ID),
		ProjectRef:      p.ProjectRef,
		StageID:         s.ID,
		StageOrder:      s.Order,
		StageName:       s.StageName,
		StartedAt:       *s.StartedAt,
	}
}

// StageCompletedEvent is raised when a stage moves to completed
type StageCompletedEvent struct {
	shared.BaseDomainEvent
	ProjectRef  string    `json:"project_ref"`
	StageID     uuid.UUID `json:"stage_id"`
	StageOrder  int       `json:"stage_order"`
	StageName   string    `json:"stage_name"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewStageCompletedEvent creates a new StageCompletedEvent
func NewStageCompletedEvent(p *Project, s *ProjectStage) *StageCompletedEvent {
	return &StageCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStageCompleted, AggregateTypeProject, p.ID),
		ProjectRef:      p.ProjectRef,
		StageID:         s.ID,
		StageOrder:      s.Order,
		StageName:       s.StageName,
		CompletedAt:     *s.CompletedAt,
	}
}

// ProjectCompletedEvent is raised when the final uncompleted stage of a project completes
type ProjectCompletedEvent struct {
	shared.BaseDomainEvent
	ProjectRef    string    `json:"project_ref"`
	CompletedDate time.Time `json:"completed_date"`
}

// NewProjectCompletedEvent creates a new ProjectCompletedEvent
func NewProjectCompletedEvent(p *Project) *ProjectCompletedEvent {
	return &ProjectCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProjectCompleted, AggregateTypeProject, p.ID),
		ProjectRef:      p.ProjectRef,
		CompletedDate:   *p.CompletedDate,
	}
}
