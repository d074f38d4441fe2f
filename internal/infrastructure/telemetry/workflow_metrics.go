package telemetry

import (
	"context"
	"time"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// WorkflowMeterName is the meter name of the workflow counters
const WorkflowMeterName = "backoffice/workflow"

// WorkflowMetrics counts workflow outcomes from published domain events. It
// subscribes to every event type on the event bus.
type WorkflowMetrics struct {
	projectsRegistered  *Counter
	projectsCompleted   *Counter
	stageTransitions    *Counter
	materialCosts       *Counter
	documentsGenerated  *Counter
	documentsDispatched *Counter
	eventLag            *Histogram
	logger              *zap.Logger
}

// NewWorkflowMetrics creates the workflow instruments on meter
func NewWorkflowMetrics(meter metric.Meter, logger *zap.Logger) (*WorkflowMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &WorkflowMetrics{logger: logger}

	var err error
	if m.projectsRegistered, err = NewCounter(meter, "backoffice.projects.registered", "Projects registered", "{project}"); err != nil {
		return nil, err
	}
	if m.projectsCompleted, err = NewCounter(meter, "backoffice.projects.completed", "Projects whose last stage completed", "{project}"); err != nil {
		return nil, err
	}
	if m.stageTransitions, err = NewCounter(meter, "backoffice.stage.transitions", "Stage transitions by kind", "{transition}"); err != nil {
		return nil, err
	}
	if m.materialCosts, err = NewCounter(meter, "backoffice.material_costs", "Material cost records and relinks", "{cost}"); err != nil {
		return nil, err
	}
	if m.documentsGenerated, err = NewCounter(meter, "backoffice.documents.generated", "Document generation attempts by outcome", "{document}"); err != nil {
		return nil, err
	}
	if m.documentsDispatched, err = NewCounter(meter, "backoffice.documents.dispatched", "Document dispatch attempts by outcome", "{document}"); err != nil {
		return nil, err
	}
	if m.eventLag, err = NewHistogram(meter, HistogramOpts{
		Name:        "backoffice.events.lag",
		Description: "Delay between raising and handling a domain event",
		Unit:        "s",
		Boundaries:  EventLagBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes returns nil to receive every event
func (m *WorkflowMetrics) EventTypes() []string {
	return nil
}

// Handle records one event
func (m *WorkflowMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *project.ProjectRegisteredEvent:
		m.projectsRegistered.Inc(ctx)
	case *project.StageStartedEvent:
		m.stageTransitions.Inc(ctx, AttrTransition.String("start"))
	case *project.StageCompletedEvent:
		m.stageTransitions.Inc(ctx, AttrTransition.String("complete"))
	case *project.ProjectCompletedEvent:
		m.projectsCompleted.Inc(ctx)
	case *costing.MaterialCostRecordedEvent:
		m.materialCosts.Inc(ctx, AttrAction.String("recorded"))
	case *costing.MaterialCostRelinkedEvent:
		action := "linked"
		if e.InvoiceID == nil {
			action = "unlinked"
		}
		m.materialCosts.Inc(ctx, AttrAction.String(action))
	case *document.DocumentGeneratedEvent:
		m.documentsGenerated.Inc(ctx, AttrDocumentType.String(e.DocumentType.String()), AttrOutcome.String(OutcomeSuccess))
	case *document.DocumentGenerationFailedEvent:
		m.documentsGenerated.Inc(ctx, AttrDocumentType.String(e.DocumentType.String()), AttrOutcome.String(OutcomeFailure))
	case *document.DocumentDispatchedEvent:
		m.documentsDispatched.Inc(ctx, AttrDocumentType.String(e.DocumentType.String()), AttrOutcome.String(OutcomeSuccess))
	case *document.DocumentDispatchFailedEvent:
		m.documentsDispatched.Inc(ctx, AttrDocumentType.String(e.DocumentType.String()), AttrOutcome.String(OutcomeFailure))
	default:
		m.logger.Debug("No workflow metric for event", zap.String("event_type", event.EventType()))
		return nil
	}
	m.eventLag.RecordDuration(ctx, time.Since(event.OccurredAt()), AttrEventType.String(event.EventType()))
	return nil
}
