package handler

import (
	"time"

	"github.com/google/uuid"
)

// RecordMaterialCostRequest is the body of POST /projects/:id/material-costs.
// TotalCost, when sent, is checked against quantity * unit price.
type RecordMaterialCostRequest struct {
	Material          string     `json:"material" binding:"required"`
	Quantity          float64    `json:"quantity"`
	UnitPrice         float64    `json:"unit_price"`
	TotalCost         *float64   `json:"total_cost"`
	Supplier          string     `json:"supplier"`
	Category          string     `json:"category"`
	SupplierInvoiceID *uuid.UUID `json:"supplier_invoice_id"`
}

// RelinkMaterialCostRequest is the body of PUT /material-costs/:id/invoice.
// A null supplier_invoice_id unlinks the cost.
type RelinkMaterialCostRequest struct {
	SupplierInvoiceID *uuid.UUID `json:"supplier_invoice_id"`
}

// RecordInvoiceLineRequest is the body of POST /projects/:id/invoice-lines
type RecordInvoiceLineRequest struct {
	Description string   `json:"description" binding:"required"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
}

// RegisterSupplierInvoiceRequest is the body of POST /supplier-invoices
type RegisterSupplierInvoiceRequest struct {
	InvoiceNumber string    `json:"invoice_number" binding:"required"`
	Supplier      string    `json:"supplier" binding:"required"`
	TotalAmount   float64   `json:"total_amount"`
	TaxAmount     float64   `json:"tax_amount"`
	IssuedAt      time.Time `json:"issued_at"`
}

// RemoveSupplierInvoiceResponse reports how many costs lost their link
type RemoveSupplierInvoiceResponse struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	UnlinkedCosts int64     `json:"unlinked_costs"`
}
