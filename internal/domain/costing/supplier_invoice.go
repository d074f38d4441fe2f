package costing

import (
	"fmt"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
)

// AggregateTypeSupplierInvoice is the aggregate type name used in events
const AggregateTypeSupplierInvoice = "SupplierInvoice"

// SupplierInvoice is an incoming bill from a supplier. Material costs from
// any project may be allocated to it up to TotalAmount.
type SupplierInvoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string
	Supplier      string
	TotalAmount   valueobject.Amount
	TaxAmount     valueobject.Amount
	NetAmount     valueobject.Amount
	IssuedAt      time.Time
}

// NewSupplierInvoice creates a supplier invoice; NetAmount is derived as
// TotalAmount - TaxAmount.
func NewSupplierInvoice(invoiceNumber, supplier string, totalAmount, taxAmount valueobject.Amount, issuedAt time.Time) (*SupplierInvoice, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if totalAmount.IsNegative() || taxAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amounts cannot be negative")
	}
	totalAmount = totalAmount.RoundCents()
	taxAmount = taxAmount.RoundCents()
	if taxAmount.GreaterThan(totalAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Tax %s exceeds invoice total %s", taxAmount, totalAmount))
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	return &SupplierInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		Supplier:          strings.TrimSpace(supplier),
		TotalAmount:       totalAmount,
		TaxAmount:         taxAmount,
		NetAmount:         totalAmount.Sub(taxAmount),
		IssuedAt:          issuedAt,
	}, nil
}

// CheckAllocation returns OVER_ALLOCATION if allocating additional on top of
// the already allocated amount would exceed the invoice total. Partial
// allocation is legal.
func (si *SupplierInvoice) CheckAllocation(allocated, additional valueobject.Amount) error {
	requested := allocated.Add(additional)
	if requested.GreaterThan(si.TotalAmount) {
		return shared.NewOverAllocationError(fmt.Sprintf(
			"Invoice %s total %s cannot cover %s already allocated plus %s",
			si.InvoiceNumber, si.TotalAmount, allocated, additional))
	}
	return nil
}

// VerifyNetAmount checks net == total - tax
func (si *SupplierInvoice) VerifyNetAmount() error {
	if !si.NetAmount.WithinTolerance(si.TotalAmount.Sub(si.TaxAmount)) {
		return shared.NewArithmeticMismatchError(fmt.Sprintf("Invoice %s net amount %s does not equal total minus tax", si.InvoiceNumber, si.NetAmount))
	}
	return nil
}

// Allocation summarizes how much of a supplier invoice is covered by costs
type Allocation struct {
	InvoiceNumber string
	TotalAmount   valueobject.Amount
	Allocated     valueobject.Amount
	Remaining     valueobject.Amount
	CostCount     int
}

// AllocationOf builds the allocation view from the linked cost totals
func (si *SupplierInvoice) AllocationOf(costs []MaterialCost) Allocation {
	allocated := valueobject.ZeroAmount()
	for _, c := range costs {
		allocated = allocated.Add(c.TotalCost)
	}
	return Allocation{
		InvoiceNumber: si.InvoiceNumber,
		TotalAmount:   si.TotalAmount,
		Allocated:     allocated,
		Remaining:     si.TotalAmount.Sub(allocated),
		CostCount:     len(costs),
	}
}
