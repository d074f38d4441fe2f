package models

import (
	"time"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialCostModel is the GORM model for the material_costs table
type MaterialCostModel struct {
	AggregateModel
	ProjectID         uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index"`
	Material          string          `gorm:"type:varchar(200);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:decimal(18,4);not null"`
	TotalCost         decimal.Decimal `gorm:"column:total_cost;type:decimal(18,2);not null"`
	Supplier          string          `gorm:"type:varchar(200)"`
	Category          string          `gorm:"type:varchar(100)"`
	SupplierInvoiceID *uuid.UUID      `gorm:"column:supplier_invoice_id;type:uuid;index"`
}

// TableName returns the table name for MaterialCostModel
func (MaterialCostModel) TableName() string {
	return "material_costs"
}

// ToDomain converts MaterialCostModel to domain MaterialCost
func (m *MaterialCostModel) ToDomain() *costing.MaterialCost {
	return &costing.MaterialCost{
		BaseAggregateRoot: m.Root(),
		ProjectID:         m.ProjectID,
		Material:          m.Material,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		TotalCost:         valueobject.NewAmount(m.TotalCost),
		Supplier:          m.Supplier,
		Category:          m.Category,
		SupplierInvoiceID: m.SupplierInvoiceID,
	}
}

// MaterialCostModelFromDomain creates a MaterialCostModel from domain MaterialCost
func MaterialCostModelFromDomain(mc *costing.MaterialCost) *MaterialCostModel {
	m := &MaterialCostModel{
		ProjectID:         mc.ProjectID,
		Material:          mc.Material,
		Quantity:          mc.Quantity,
		UnitPrice:         mc.UnitPrice,
		TotalCost:         mc.TotalCost.Decimal(),
		Supplier:          mc.Supplier,
		Category:          mc.Category,
		SupplierInvoiceID: mc.SupplierInvoiceID,
	}
	m.SetRoot(mc.BaseAggregateRoot)
	return m
}

// SupplierInvoiceModel is the GORM model for the supplier_invoices table
type SupplierInvoiceModel struct {
	AggregateModel
	InvoiceNumber string          `gorm:"column:invoice_number;type:varchar(100);not null;uniqueIndex"`
	Supplier      string          `gorm:"type:varchar(200)"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null"`
	TaxAmount     decimal.Decimal `gorm:"column:tax_amount;type:decimal(18,2);not null"`
	NetAmount     decimal.Decimal `gorm:"column:net_amount;type:decimal(18,2);not null"`
	IssuedAt      time.Time       `gorm:"column:issued_at;not null"`
}

// TableName returns the table name for SupplierInvoiceModel
func (SupplierInvoiceModel) TableName() string {
	return "supplier_invoices"
}

// ToDomain converts SupplierInvoiceModel to domain SupplierInvoice
func (m *SupplierInvoiceModel) ToDomain() *costing.SupplierInvoice {
	return &costing.SupplierInvoice{
		BaseAggregateRoot: m.Root(),
		InvoiceNumber:     m.InvoiceNumber,
		Supplier:          m.Supplier,
		TotalAmount:       valueobject.NewAmount(m.TotalAmount),
		TaxAmount:         valueobject.NewAmount(m.TaxAmount),
		NetAmount:         valueobject.NewAmount(m.NetAmount),
		IssuedAt:          m.IssuedAt,
	}
}

// SupplierInvoiceModelFromDomain creates a SupplierInvoiceModel from domain SupplierInvoice
func SupplierInvoiceModelFromDomain(si *costing.SupplierInvoice) *SupplierInvoiceModel {
	m := &SupplierInvoiceModel{
		InvoiceNumber: si.InvoiceNumber,
		Supplier:      si.Supplier,
		TotalAmount:   si.TotalAmount.Decimal(),
		TaxAmount:     si.TaxAmount.Decimal(),
		NetAmount:     si.NetAmount.Decimal(),
		IssuedAt:      si.IssuedAt,
	}
	m.SetRoot(si.BaseAggregateRoot)
	return m
}

// InvoiceLineModel is the GORM model for the invoice_lines table
type InvoiceLineModel struct {
	BaseModel
	ProjectID   uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index"`
	Description string          `gorm:"type:text;not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:decimal(18,4);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:decimal(18,2);not null"`
}

// TableName returns the table name for InvoiceLineModel
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts InvoiceLineModel to domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() *costing.InvoiceLine {
	return &costing.InvoiceLine{
		BaseEntity:  m.BaseModel.Entity(),
		ProjectID:   m.ProjectID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TotalPrice:  valueobject.NewAmount(m.TotalPrice),
	}
}

// InvoiceLineModelFromDomain creates an InvoiceLineModel from domain InvoiceLine
func InvoiceLineModelFromDomain(l *costing.InvoiceLine) *InvoiceLineModel {
	m := &InvoiceLineModel{
		ProjectID:   l.ProjectID,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		TotalPrice:  l.TotalPrice.Decimal(),
	}
	m.SetEntity(l.BaseEntity)
	return m
}
