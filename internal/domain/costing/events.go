package costing

import (
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

const (
	EventTypeMaterialCostRecorded = "MaterialCostRecorded"
	EventTypeMaterialCostRelinked = "MaterialCostRelinked"
)

// MaterialCostRecordedEvent is raised when a material cost is recorded
type MaterialCostRecordedEvent struct {
	shared.BaseDomainEvent
	ProjectID uuid.UUID          `json:"project_id"`
	Material  string             `json:"material"`
	TotalCost valueobject.Amount `json:"total_cost"`
}

// NewMaterialCostRecordedEvent creates a new MaterialCostRecordedEvent
func NewMaterialCostRecordedEvent(mc *MaterialCost) *MaterialCostRecordedEvent {
	return &MaterialCostRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMaterialCostRecorded, AggregateTypeMaterialCost, mc.ID),
		ProjectID:       mc.ProjectID,
		Material:        mc.Material,
		TotalCost:       mc.TotalCost,
	}
}

// MaterialCostRelinkedEvent is raised when the supplier invoice link of a
// cost changes. A nil InvoiceID means the link was cleared.
type MaterialCostRelinkedEvent struct {
	shared.BaseDomainEvent
	ProjectID         uuid.UUID          `json:"project_id"`
	PreviousInvoiceID *uuid.UUID         `json:"previous_invoice_id,omitempty"`
	InvoiceID         *uuid.UUID         `json:"invoice_id,omitempty"`
	TotalCost         valueobject.Amount `json:"total_cost"`
}

// NewMaterialCostRelinkedEvent creates a new MaterialCostRelinkedEvent
func NewMaterialCostRelinkedEvent(mc *MaterialCost, previous *uuid.UUID) *MaterialCostRelinkedEvent {
	return &MaterialCostRelinkedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeMaterialCostRelinked, AggregateTypeMaterialCost, mc.ID),
		ProjectID:         mc.ProjectID,
		PreviousInvoiceID: previous,
		InvoiceID:         mc.SupplierInvoiceID,
		TotalCost:         mc.TotalCost,
	}
}
