package project

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AggregateTypeProject is the aggregate type name used in events
const AggregateTypeProject = "Project"

const maxProjectRefLength = 50

// ProjectStatus represents the lifecycle status of a project
type ProjectStatus string

const (
	ProjectStatusPlanned   ProjectStatus = "planned"   // Stage plan exists, nothing started
	ProjectStatusActive    ProjectStatus = "active"    // At least one stage has been started
	ProjectStatusCompleted ProjectStatus = "completed" // Every stage completed
)

// IsValid checks if the status is a valid ProjectStatus
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusActive, ProjectStatusCompleted:
		return true
	}
	return false
}

func (s ProjectStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the project accepts no further stage transitions
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted
}

// Priority of a project
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is known
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Project is the aggregate root owning the ordered stage plan.
// CurrentStage is a denormalized copy of the name of the most recently
// started stage and is only changed by StartStage.
type Project struct {
	shared.BaseAggregateRoot
	ProjectRef    string
	ClientID      *uuid.UUID
	CreatedBy     *uuid.UUID
	Status        ProjectStatus
	Priority      Priority
	CurrentStage  string
	QuoteAmount   *valueobject.Amount
	CompletedDate *time.Time
	Stages        []ProjectStage
}

// NewProject creates a project with one pending stage per name, ordered from
// StageOrderBase in the given sequence.
func NewProject(projectRef string, priority Priority, stageNames []string) (*Project, error) {
	projectRef = strings.TrimSpace(projectRef)
	if projectRef == "" {
		return nil, shared.NewDomainError("INVALID_PROJECT_REF", "Project reference cannot be empty")
	}
	if len(projectRef) > maxProjectRefLength {
		return nil, shared.NewDomainError("INVALID_PROJECT_REF", fmt.Sprintf("Project reference cannot exceed %d characters", maxProjectRefLength))
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRIORITY", fmt.Sprintf("Unknown priority %q", priority))
	}
	if len(stageNames) == 0 {
		return nil, shared.NewDomainError("INVALID_STAGE_PLAN", "A project needs at least one stage")
	}

	p := &Project{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectRef:        projectRef,
		Status:            ProjectStatusPlanned,
		Priority:          priority,
		Stages:            make([]ProjectStage, 0, len(stageNames)),
	}
	for i, name := range stageNames {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, shared.NewDomainError("INVALID_STAGE_PLAN", fmt.Sprintf("Stage %d has no name", i+StageOrderBase))
		}
		p.Stages = append(p.Stages, newProjectStage(p.ID, i+StageOrderBase, name, p.CreatedAt))
	}

	p.AddDomainEvent(NewProjectRegisteredEvent(p))
	return p, nil
}

// AssignClient links the project to a client
func (p *Project) AssignClient(clientID uuid.UUID) {
	p.ClientID = &clientID
}

// SetCreatedBy records the user who registered the project
func (p *Project) SetCreatedBy(userID uuid.UUID) {
	p.CreatedBy = &userID
}

// SetQuoteAmount records the quoted price. Negative quotes are rejected.
func (p *Project) SetQuoteAmount(amount valueobject.Amount) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Quote amount cannot be negative")
	}
	rounded := amount.RoundCents()
	p.QuoteAmount = &rounded
	return nil
}

// StartStage moves the stage with the given order to in_progress.
//
// The stage must be pending and no other stage may be in progress. Unless
// allowOutOfOrder is set, the stage must also directly follow the highest
// completed order (or be the first stage when nothing is completed yet).
func (p *Project) StartStage(order int, allowOutOfOrder bool) error {
	if p.Status.IsTerminal() {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Project %s is %s", p.ProjectRef, p.Status))
	}
	stage, err := p.StageByOrder(order)
	if err != nil {
		return err
	}
	if !stage.Status.CanTransitionTo(StageStatusInProgress) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Stage %d (%s) is %s, only pending stages can start", order, stage.StageName, stage.Status))
	}
	if active := p.InProgressStage(); active != nil {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Stage %d (%s) is still in progress", active.Order, active.StageName))
	}
	if !allowOutOfOrder {
		if next := p.nextOrder(); order != next {
			return shared.NewInvalidTransitionError(fmt.Sprintf("Stage %d cannot start before stage %d", order, next))
		}
	}

	now := time.Now()
	stage.Status = StageStatusInProgress
	stage.StartedAt = &now
	stage.UpdatedAt = now

	p.CurrentStage = stage.StageName
	if p.Status == ProjectStatusPlanned {
		p.Status = ProjectStatusActive
	}
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewStageStartedEvent(p, stage))
	return nil
}

// CompleteStage moves an in-progress stage to completed. The project
// completes once every stage is completed, so with out-of-order starts the
// last stage to finish closes the project, whatever its order.
func (p *Project) CompleteStage(order int) error {
	stage, err := p.StageByOrder(order)
	if err != nil {
		return err
	}
	if !stage.Status.CanTransitionTo(StageStatusCompleted) {
		return shared.NewInvalidTransitionError(fmt.Sprintf("Stage %d (%s) is %s, only in-progress stages can complete", order, stage.StageName, stage.Status))
	}

	now := time.Now()
	stage.Status = StageStatusCompleted
	stage.CompletedAt = &now
	stage.UpdatedAt = now

	p.UpdatedAt = now
	p.IncrementVersion()
	p.AddDomainEvent(NewStageCompletedEvent(p, stage))

	if p.allStagesCompleted() {
		p.Status = ProjectStatusCompleted
		p.CompletedDate = &now
		p.AddDomainEvent(NewProjectCompletedEvent(p))
	}
	return nil
}

// StageByOrder returns the stage with the given order
func (p *Project) StageByOrder(order int) (*ProjectStage, error) {
	for i := range p.Stages {
		if p.Stages[i].Order == order {
			return &p.Stages[i], nil
		}
	}
	return nil, shared.NewDomainError("STAGE_NOT_FOUND", fmt.Sprintf("Project %s has no stage %d", p.ProjectRef, order))
}

// InProgressStage returns the stage currently in progress, or nil
func (p *Project) InProgressStage() *ProjectStage {
	for i := range p.Stages {
		if p.Stages[i].IsInProgress() {
			return &p.Stages[i]
		}
	}
	return nil
}

// SortStages orders the stage slice by stage order.
func (p *Project) SortStages() {
	sort.Slice(p.Stages, func(i, j int) bool { return p.Stages[i].Order < p.Stages[j].Order })
}

// ValidateStagePlan checks that stage orders are contiguous from
// StageOrderBase and that at most one stage is in progress.
func (p *Project) ValidateStagePlan() error {
	p.SortStages()
	inProgress := 0
	for i, s := range p.Stages {
		if s.Order != i+StageOrderBase {
			return shared.NewDomainError("INVALID_STAGE_PLAN", fmt.Sprintf("Stage orders are not contiguous at position %d (order %d)", i, s.Order))
		}
		if !s.Status.IsValid() {
			return shared.NewDomainError("INVALID_STAGE_PLAN", fmt.Sprintf("Stage %d has unknown status %q", s.Order, s.Status))
		}
		if s.IsInProgress() {
			inProgress++
		}
	}
	if inProgress > 1 {
		return shared.NewDomainError("INVALID_STAGE_PLAN", fmt.Sprintf("%d stages are in progress", inProgress))
	}
	return nil
}

// nextOrder is the order that follows the highest completed stage.
func (p *Project) nextOrder() int {
	next := StageOrderBase
	for _, s := range p.Stages {
		if s.IsCompleted() && s.Order >= next {
			next = s.Order + 1
		}
	}
	return next
}

func (p *Project) allStagesCompleted() bool {
	for _, s := range p.Stages {
		if !s.IsCompleted() {
			return false
		}
	}
	return len(p.Stages) > 0
}

// IsCompleted returns true if the project is completed
func (p *Project) IsCompleted() bool {
	return p.Status == ProjectStatusCompleted
}
