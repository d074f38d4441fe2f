package project

import (
	"time"

	"github.com/google/uuid"
)

// StageOrderBase is the order assigned to the first stage of every project.
const StageOrderBase = 0

// StageStatus represents the status of a project stage
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
)

// IsValid checks if the status is a valid StageStatus
func (s StageStatus) IsValid() bool {
	switch s {
	case StageStatusPending, StageStatusInProgress, StageStatusCompleted:
		return true
	}
	return false
}

func (s StageStatus) String() string {
	return string(s)
}

// IsTerminal returns true for completed stages
func (s StageStatus) IsTerminal() bool {
	return s == StageStatusCompleted
}

// CanTransitionTo reports whether a stage may move from s to next. A stage
// never skips in_progress.
func (s StageStatus) CanTransitionTo(next StageStatus) bool {
	switch s {
	case StageStatusPending:
		return next == StageStatusInProgress
	case StageStatusInProgress:
		return next == StageStatusCompleted
	}
	return false
}

// ProjectStage is one ordered phase of a project. Its order is assigned when
// the stage plan is created and never changes.
type ProjectStage struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Order       int
	StageName   string
	Status      StageStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newProjectStage(projectID uuid.UUID, order int, name string, now time.Time) ProjectStage {
	return ProjectStage{
		ID:        uuid.New(),
		ProjectID: projectID,
		Order:     order,
		StageName: name,
		Status:    StageStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ProjectStage) IsPending() bool    { return s.Status == StageStatusPending }
func (s *ProjectStage) IsInProgress() bool { return s.Status == StageStatusInProgress }
func (s *ProjectStage) IsCompleted() bool  { return s.Status == StageStatusCompleted }
