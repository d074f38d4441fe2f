package project

import (
	"context"
	"fmt"

	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/buildops/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowConfig holds stage workflow policy
type WorkflowConfig struct {
	// AllowOutOfOrderStart lets a caller start any pending stage, not only
	// the successor of the last completed one
	AllowOutOfOrderStart bool
}

// StageWorkflowService drives projects through their ordered stages
type StageWorkflowService struct {
	txScope     TransactionScope
	projectRepo project.ProjectRepository
	publisher   shared.EventPublisher
	config      WorkflowConfig
	logger      *zap.Logger
}

// NewStageWorkflowService creates a new StageWorkflowService.
// publisher may be nil, in which case events are dropped.
func NewStageWorkflowService(
	txScope TransactionScope,
	projectRepo project.ProjectRepository,
	publisher shared.EventPublisher,
	config WorkflowConfig,
	logger *zap.Logger,
) *StageWorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageWorkflowService{
		txScope:     txScope,
		projectRepo: projectRepo,
		publisher:   publisher,
		config:      config,
		logger:      logger,
	}
}

// RegisterProject creates a project with all stages pending
func (s *StageWorkflowService) RegisterProject(ctx context.Context, req RegisterProjectRequest) (*ProjectResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stage_workflow", "register_project")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrProjectRef, req.ProjectRef)

	p, err := project.NewProject(req.ProjectRef, project.Priority(req.Priority), req.StageNames)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.ClientID != nil {
		p.AssignClient(*req.ClientID)
	}
	if req.CreatedBy != nil {
		p.SetCreatedBy(*req.CreatedBy)
	}
	if req.QuoteAmount != nil {
		if err := p.SetQuoteAmount(valueobject.NewAmountFromFloat(*req.QuoteAmount)); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.ProjectRepo().ExistsByRef(ctx, p.ProjectRef)
		if err != nil {
			return fmt.Errorf("failed to check project reference: %w", err)
		}
		if exists {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, fmt.Sprintf("Project %s already exists", p.ProjectRef))
		}
		return repos.ProjectRepo().Save(ctx, p)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Project registered",
		zap.String("project_id", p.ID.String()),
		zap.String("project_ref", p.ProjectRef),
		zap.Int("stages", len(p.Stages)))
	s.publish(ctx, p)
	return ToProjectResponse(p), nil
}

// StartStage moves the stage with the given order to in_progress and points
// the project's current stage at it. The project row stays locked for the
// whole read-check-write so two concurrent starts on one project serialize.
func (s *StageWorkflowService) StartStage(ctx context.Context, projectID uuid.UUID, order int) (*ProjectResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stage_workflow", "start_stage")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProjectID, projectID.String(),
		telemetry.SpanAttrStageOrder, order,
		"allow_out_of_order", s.config.AllowOutOfOrderStart,
	)

	p, err := s.transition(ctx, projectID, func(p *project.Project) error {
		return p.StartStage(order, s.config.AllowOutOfOrderStart)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Info("Stage start rejected",
			zap.String("project_id", projectID.String()),
			zap.Int("stage_order", order),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Stage started",
		zap.String("project_ref", p.ProjectRef),
		zap.Int("stage_order", order),
		zap.String("current_stage", p.CurrentStage))
	s.publish(ctx, p)
	return ToProjectResponse(p), nil
}

// CompleteStage completes an in-progress stage; the project completes once no
// stage is left uncompleted.
func (s *StageWorkflowService) CompleteStage(ctx context.Context, projectID uuid.UUID, order int) (*ProjectResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stage_workflow", "complete_stage")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProjectID, projectID.String(),
		telemetry.SpanAttrStageOrder, order,
	)

	p, err := s.transition(ctx, projectID, func(p *project.Project) error {
		return p.CompleteStage(order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Info("Stage completion rejected",
			zap.String("project_id", projectID.String()),
			zap.Int("stage_order", order),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Stage completed",
		zap.String("project_ref", p.ProjectRef),
		zap.Int("stage_order", order),
		zap.String("project_status", p.Status.String()))
	s.publish(ctx, p)
	return ToProjectResponse(p), nil
}

// GetProject returns the current snapshot of a project
func (s *StageWorkflowService) GetProject(ctx context.Context, projectID uuid.UUID) (*ProjectResponse, error) {
	p, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return ToProjectResponse(p), nil
}

// DeleteProject removes a project. Without cascade the call fails with
// HAS_DEPENDENTS while material costs, invoice lines or documents exist. With
// cascade every dependent record is removed in the same transaction.
func (s *StageWorkflowService) DeleteProject(ctx context.Context, projectID uuid.UUID, cascade bool) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "stage_workflow", "delete_project")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrProjectID, projectID.String(), "cascade", cascade)

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProjectRepo().FindByIDForUpdate(ctx, projectID)
		if err != nil {
			return err
		}

		costs, err := repos.MaterialCostRepo().CountByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to count material costs: %w", err)
		}
		lines, err := repos.InvoiceLineRepo().CountByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to count invoice lines: %w", err)
		}
		docs, err := repos.DocumentRepo().CountByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}

		if costs+lines+docs > 0 {
			if !cascade {
				return shared.NewDomainError(shared.CodeHasDependents, fmt.Sprintf(
					"Project %s has %d material costs, %d invoice lines and %d documents",
					p.ProjectRef, costs, lines, docs))
			}
			if err := repos.GenerationRepo().DeleteByProject(ctx, projectID); err != nil {
				return fmt.Errorf("failed to delete document generations: %w", err)
			}
			if err := repos.DocumentRepo().DeleteByProject(ctx, projectID); err != nil {
				return fmt.Errorf("failed to delete documents: %w", err)
			}
			if err := repos.InvoiceLineRepo().DeleteByProject(ctx, projectID); err != nil {
				return fmt.Errorf("failed to delete invoice lines: %w", err)
			}
			if err := repos.MaterialCostRepo().DeleteByProject(ctx, projectID); err != nil {
				return fmt.Errorf("failed to delete material costs: %w", err)
			}
		}
		return repos.ProjectRepo().Delete(ctx, projectID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("Project deleted", zap.String("project_id", projectID.String()), zap.Bool("cascade", cascade))
	return nil
}

// transition loads the project under lock, applies fn, re-validates the
// stage plan and saves, all in one transaction.
func (s *StageWorkflowService) transition(ctx context.Context, projectID uuid.UUID, fn func(p *project.Project) error) (*project.Project, error) {
	var result *project.Project
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProjectRepo().FindByIDForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := p.ValidateStagePlan(); err != nil {
			return err
		}
		if err := repos.ProjectRepo().Save(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *StageWorkflowService) publish(ctx context.Context, p *project.Project) {
	events := p.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish project events",
			zap.String("project_id", p.ID.String()),
			zap.Error(err))
	}
}
