package project

import (
	"errors"
	"testing"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := NewProject("PRJ-2026-001", PriorityNormal, []string{"Survey", "Build", "Handover"})
	require.NoError(t, err)
	return p
}

func assertInvalidTransition(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition), "expected INVALID_TRANSITION, got %v", err)
}

func TestNewProject(t *testing.T) {
	t.Run("creates contiguous pending stages from base", func(t *testing.T) {
		p := newTestProject(t)

		assert.Equal(t, ProjectStatusPlanned, p.Status)
		assert.Equal(t, 1, p.Version)
		require.Len(t, p.Stages, 3)
		for i, s := range p.Stages {
			assert.Equal(t, StageOrderBase+i, s.Order)
			assert.Equal(t, StageStatusPending, s.Status)
			assert.Equal(t, p.ID, s.ProjectID)
		}
		assert.NoError(t, p.ValidateStagePlan())
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeProjectRegistered, p.GetDomainEvents()[0].EventType())
	})

	t.Run("defaults priority", func(t *testing.T) {
		p, err := NewProject("PRJ-2", "", []string{"Only"})
		require.NoError(t, err)
		assert.Equal(t, PriorityNormal, p.Priority)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := NewProject("  ", PriorityHigh, []string{"Survey"})
		assert.Error(t, err)

		_, err = NewProject("PRJ-3", PriorityHigh, nil)
		assert.Error(t, err)

		_, err = NewProject("PRJ-4", "critical", []string{"Survey"})
		assert.Error(t, err)

		_, err = NewProject("PRJ-5", PriorityLow, []string{"Survey", ""})
		assert.Error(t, err)
	})
}

func TestProject_StageProgressionScenario(t *testing.T) {
	p := newTestProject(t)

	require.NoError(t, p.StartStage(0, false))
	assert.Equal(t, StageStatusInProgress, p.Stages[0].Status)
	assert.NotNil(t, p.Stages[0].StartedAt)
	assert.Equal(t, "Survey", p.CurrentStage)
	assert.Equal(t, ProjectStatusActive, p.Status)

	require.NoError(t, p.CompleteStage(0))
	assert.Equal(t, StageStatusCompleted, p.Stages[0].Status)
	assert.NotNil(t, p.Stages[0].CompletedAt)
	assert.Equal(t, "Survey", p.CurrentStage, "current stage stays until the next start")

	require.NoError(t, p.StartStage(1, false))
	assert.Equal(t, "Build", p.CurrentStage)

	assertInvalidTransition(t, p.StartStage(2, false))
	assert.Equal(t, StageStatusPending, p.Stages[2].Status)
	assert.NoError(t, p.ValidateStagePlan())
}

func TestProject_StartStage(t *testing.T) {
	t.Run("rejects skipping ahead", func(t *testing.T) {
		p := newTestProject(t)
		assertInvalidTransition(t, p.StartStage(1, false))
		assert.Equal(t, 1, p.Version)
	})

	t.Run("out of order start is allowed by flag", func(t *testing.T) {
		p := newTestProject(t)
		require.NoError(t, p.StartStage(2, true))
		assert.Equal(t, "Handover", p.CurrentStage)
	})

	t.Run("out of order start still forbids two in progress", func(t *testing.T) {
		p := newTestProject(t)
		require.NoError(t, p.StartStage(0, true))
		assertInvalidTransition(t, p.StartStage(2, true))
	})

	t.Run("rejects restarting a completed stage", func(t *testing.T) {
		p := newTestProject(t)
		require.NoError(t, p.StartStage(0, false))
		require.NoError(t, p.CompleteStage(0))
		assertInvalidTransition(t, p.StartStage(0, true))
	})

	t.Run("unknown stage", func(t *testing.T) {
		p := newTestProject(t)
		err := p.StartStage(7, false)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "STAGE_NOT_FOUND", domainErr.Code)
	})

	t.Run("after out of order history the next stage follows the highest completed", func(t *testing.T) {
		p := newTestProject(t)
		require.NoError(t, p.StartStage(1, true))
		require.NoError(t, p.CompleteStage(1))
		assertInvalidTransition(t, p.StartStage(0, false))
		require.NoError(t, p.StartStage(2, false))
	})
}

func TestProject_CompleteStage(t *testing.T) {
	t.Run("pending stage cannot complete", func(t *testing.T) {
		p := newTestProject(t)
		assertInvalidTransition(t, p.CompleteStage(0))
	})

	t.Run("completing the last stage completes the project", func(t *testing.T) {
		p := newTestProject(t)
		for order := 0; order < 3; order++ {
			require.NoError(t, p.StartStage(order, false))
			require.NoError(t, p.CompleteStage(order))
		}
		assert.Equal(t, ProjectStatusCompleted, p.Status)
		require.NotNil(t, p.CompletedDate)
		assert.Equal(t, "Handover", p.CurrentStage)

		types := make([]string, 0)
		for _, e := range p.PullDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Equal(t, EventTypeProjectCompleted, types[len(types)-1])
		assert.Empty(t, p.GetDomainEvents())
	})

	t.Run("out-of-order completion of the highest stage leaves the project open", func(t *testing.T) {
		p := newTestProject(t)
		require.NoError(t, p.StartStage(2, true))
		require.NoError(t, p.CompleteStage(2))
		assert.Equal(t, ProjectStatusActive, p.Status)
		assert.Nil(t, p.CompletedDate)

		require.NoError(t, p.StartStage(0, true))
		require.NoError(t, p.CompleteStage(0))
		assert.Equal(t, ProjectStatusActive, p.Status)

		require.NoError(t, p.StartStage(1, true))
		require.NoError(t, p.CompleteStage(1))
		assert.Equal(t, ProjectStatusCompleted, p.Status)
		require.NotNil(t, p.CompletedDate)
		assert.Equal(t, "Build", p.CurrentStage)
	})

	t.Run("completed project rejects further starts", func(t *testing.T) {
		p, err := NewProject("PRJ-1", PriorityNormal, []string{"Only"})
		require.NoError(t, err)
		require.NoError(t, p.StartStage(0, false))
		require.NoError(t, p.CompleteStage(0))
		assertInvalidTransition(t, p.StartStage(0, true))
	})
}

func TestProject_ValidateStagePlan(t *testing.T) {
	t.Run("gap in orders", func(t *testing.T) {
		p := newTestProject(t)
		p.Stages[2].Order = 5
		assert.Error(t, p.ValidateStagePlan())
	})

	t.Run("two in progress", func(t *testing.T) {
		p := newTestProject(t)
		p.Stages[0].Status = StageStatusInProgress
		p.Stages[1].Status = StageStatusInProgress
		assert.Error(t, p.ValidateStagePlan())
	})

	t.Run("sorts stages loaded out of order", func(t *testing.T) {
		p := newTestProject(t)
		p.Stages[0], p.Stages[2] = p.Stages[2], p.Stages[0]
		require.NoError(t, p.ValidateStagePlan())
		assert.Equal(t, "Survey", p.Stages[0].StageName)
	})
}

func TestProject_Attributes(t *testing.T) {
	p := newTestProject(t)
	clientID := uuid.New()
	userID := uuid.New()
	p.AssignClient(clientID)
	p.SetCreatedBy(userID)
	assert.Equal(t, clientID, *p.ClientID)
	assert.Equal(t, userID, *p.CreatedBy)

	require.NoError(t, p.SetQuoteAmount(valueobject.NewAmountFromFloat(12500.456)))
	assert.Equal(t, "12500.46", p.QuoteAmount.String())
	assert.Error(t, p.SetQuoteAmount(valueobject.NewAmountFromFloat(-1)))
}

func TestStageStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StageStatusPending.CanTransitionTo(StageStatusInProgress))
	assert.False(t, StageStatusPending.CanTransitionTo(StageStatusCompleted))
	assert.True(t, StageStatusInProgress.CanTransitionTo(StageStatusCompleted))
	assert.False(t, StageStatusCompleted.CanTransitionTo(StageStatusInProgress))
	assert.False(t, StageStatus("done").IsValid())
}
