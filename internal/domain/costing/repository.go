package costing

import (
	"context"

	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// MaterialCostRepository persists material costs
type MaterialCostRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MaterialCost, error)
	// FindByIDForUpdate loads the cost holding a row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*MaterialCost, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]MaterialCost, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]MaterialCost, error)
	// SumByInvoice totals the costs linked to an invoice, leaving out
	// excludeCostID when it is not uuid.Nil
	SumByInvoice(ctx context.Context, invoiceID, excludeCostID uuid.UUID) (valueobject.Amount, error)
	Save(ctx context.Context, mc *MaterialCost) error
	// UnlinkInvoice clears the invoice link of every cost allocated to it and
	// returns the number of costs changed
	UnlinkInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}

// SupplierInvoiceRepository persists supplier invoices
type SupplierInvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SupplierInvoice, error)
	// FindByIDForUpdate loads the invoice holding a row lock. Every
	// allocation check takes this lock before summing linked costs.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*SupplierInvoice, error)
	ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error)
	Save(ctx context.Context, si *SupplierInvoice) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceLineRepository persists client-facing invoice lines
type InvoiceLineRepository interface {
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]InvoiceLine, error)
	Save(ctx context.Context, line *InvoiceLine) error
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
}
