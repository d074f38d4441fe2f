package costing

import (
	"strings"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is a client-facing billable line of a project
type InvoiceLine struct {
	shared.BaseEntity
	ProjectID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  valueobject.Amount
}

// NewInvoiceLine creates a billable line; TotalPrice is computed
func NewInvoiceLine(projectID uuid.UUID, description string, quantity, unitPrice decimal.Decimal) (*InvoiceLine, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot be empty")
	}
	if err := validateQuantityAndPrice(quantity, unitPrice); err != nil {
		return nil, err
	}
	return &InvoiceLine{
		BaseEntity:  shared.NewBaseEntity(),
		ProjectID:   projectID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  valueobject.LineTotal(quantity, unitPrice),
	}, nil
}

// CheckSuppliedTotal compares a caller-supplied total with the computed one
func (l *InvoiceLine) CheckSuppliedTotal(supplied *valueobject.Amount) *shared.DomainError {
	return checkSuppliedTotal("invoice line", l.TotalPrice, supplied)
}
