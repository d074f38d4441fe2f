package costing

import (
	"time"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordMaterialCostRequest carries a material purchase. TotalCost is
// optional and only compared against the computed total.
type RecordMaterialCostRequest struct {
	ProjectID         uuid.UUID
	Material          string
	Quantity          float64
	UnitPrice         float64
	TotalCost         *float64
	Supplier          string
	Category          string
	SupplierInvoiceID *uuid.UUID
}

// RecordInvoiceLineRequest carries a client-facing billable line
type RecordInvoiceLineRequest struct {
	ProjectID   uuid.UUID
	Description string
	Quantity    float64
	UnitPrice   float64
	TotalPrice  *float64
}

// RegisterSupplierInvoiceRequest carries an incoming supplier bill
type RegisterSupplierInvoiceRequest struct {
	InvoiceNumber string
	Supplier      string
	TotalAmount   float64
	TaxAmount     float64
	IssuedAt      time.Time
}

// Warning is a non-fatal finding reported alongside a successful result
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaterialCostResponse is the snapshot of a material cost
type MaterialCostResponse struct {
	ID                uuid.UUID          `json:"id"`
	ProjectID         uuid.UUID          `json:"project_id"`
	Material          string             `json:"material"`
	Quantity          decimal.Decimal    `json:"quantity"`
	UnitPrice         decimal.Decimal    `json:"unit_price"`
	TotalCost         valueobject.Amount `json:"total_cost"`
	Supplier          string             `json:"supplier,omitempty"`
	Category          string             `json:"category,omitempty"`
	SupplierInvoiceID *uuid.UUID         `json:"supplier_invoice_id,omitempty"`
	Warnings          []Warning          `json:"warnings,omitempty"`
}

// ToMaterialCostResponse converts a material cost into its snapshot
func ToMaterialCostResponse(mc *costing.MaterialCost) *MaterialCostResponse {
	return &MaterialCostResponse{
		ID:                mc.ID,
		ProjectID:         mc.ProjectID,
		Material:          mc.Material,
		Quantity:          mc.Quantity,
		UnitPrice:         mc.UnitPrice,
		TotalCost:         mc.TotalCost,
		Supplier:          mc.Supplier,
		Category:          mc.Category,
		SupplierInvoiceID: mc.SupplierInvoiceID,
	}
}

// InvoiceLineResponse is the snapshot of an invoice line
type InvoiceLineResponse struct {
	ID          uuid.UUID          `json:"id"`
	ProjectID   uuid.UUID          `json:"project_id"`
	Description string             `json:"description"`
	Quantity    decimal.Decimal    `json:"quantity"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
	TotalPrice  valueobject.Amount `json:"total_price"`
	Warnings    []Warning          `json:"warnings,omitempty"`
}

// SupplierInvoiceResponse is the snapshot of a supplier invoice
type SupplierInvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	Supplier      string             `json:"supplier"`
	TotalAmount   valueobject.Amount `json:"total_amount"`
	TaxAmount     valueobject.Amount `json:"tax_amount"`
	NetAmount     valueobject.Amount `json:"net_amount"`
	IssuedAt      time.Time          `json:"issued_at"`
}

// AllocationResponse shows how much of a supplier invoice is allocated
type AllocationResponse struct {
	InvoiceID     uuid.UUID          `json:"invoice_id"`
	InvoiceNumber string             `json:"invoice_number"`
	TotalAmount   valueobject.Amount `json:"total_amount"`
	Allocated     valueobject.Amount `json:"allocated"`
	Remaining     valueobject.Amount `json:"remaining"`
	CostCount     int                `json:"cost_count"`
}

// FinancialSummaryResponse is the read-only roll-up of a project
type FinancialSummaryResponse struct {
	ProjectID         uuid.UUID           `json:"project_id"`
	MaterialCostTotal valueobject.Amount  `json:"material_cost_total"`
	MaterialCostCount int                 `json:"material_cost_count"`
	InvoiceLineTotal  valueobject.Amount  `json:"invoice_line_total"`
	InvoiceLineCount  int                 `json:"invoice_line_count"`
	QuoteAmount       *valueobject.Amount `json:"quote_amount,omitempty"`
	QuoteVariance     *valueobject.Amount `json:"quote_variance,omitempty"`
	BilledMargin      valueobject.Amount  `json:"billed_margin"`
	UnlinkedCostTotal valueobject.Amount  `json:"unlinked_cost_total"`
}
