package costing

import (
	"fmt"
	"strings"
	"time"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeMaterialCost is the aggregate type name used in events
const AggregateTypeMaterialCost = "MaterialCost"

// MaterialCost is a purchased-materials expense attributed to a project.
// TotalCost is always quantity * unit price rounded to cents and is never
// taken from the caller.
type MaterialCost struct {
	shared.BaseAggregateRoot
	ProjectID         uuid.UUID
	Material          string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	TotalCost         valueobject.Amount
	Supplier          string
	Category          string
	SupplierInvoiceID *uuid.UUID
}

// NewMaterialCost creates an unlinked material cost and computes its total
func NewMaterialCost(projectID uuid.UUID, material string, quantity, unitPrice decimal.Decimal, supplier, category string) (*MaterialCost, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material cannot be empty")
	}
	if err := validateQuantityAndPrice(quantity, unitPrice); err != nil {
		return nil, err
	}

	mc := &MaterialCost{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectID:         projectID,
		Material:          material,
		Quantity:          quantity,
		UnitPrice:         unitPrice,
		TotalCost:         valueobject.LineTotal(quantity, unitPrice),
		Supplier:          strings.TrimSpace(supplier),
		Category:          strings.TrimSpace(category),
	}
	mc.AddDomainEvent(NewMaterialCostRecordedEvent(mc))
	return mc, nil
}

// CheckSuppliedTotal compares a caller-supplied total with the computed one.
// It returns an ARITHMETIC_MISMATCH error when they differ by more than the
// tolerance. The computed total is kept either way.
func (mc *MaterialCost) CheckSuppliedTotal(supplied *valueobject.Amount) *shared.DomainError {
	return checkSuppliedTotal("material cost", mc.TotalCost, supplied)
}

// LinkToInvoice allocates the cost to a supplier invoice. allocated is the sum
// of all other costs already linked to that invoice.
func (mc *MaterialCost) LinkToInvoice(invoice *SupplierInvoice, allocated valueobject.Amount) error {
	if err := invoice.CheckAllocation(allocated, mc.TotalCost); err != nil {
		return err
	}
	previous := mc.SupplierInvoiceID
	id := invoice.ID
	mc.SupplierInvoiceID = &id
	mc.touch()
	mc.AddDomainEvent(NewMaterialCostRelinkedEvent(mc, previous))
	return nil
}

// Unlink clears the supplier invoice link. Monetary data is untouched.
func (mc *MaterialCost) Unlink() {
	if mc.SupplierInvoiceID == nil {
		return
	}
	previous := mc.SupplierInvoiceID
	mc.SupplierInvoiceID = nil
	mc.touch()
	mc.AddDomainEvent(NewMaterialCostRelinkedEvent(mc, previous))
}

// IsLinkedTo reports whether the cost is allocated to the given invoice
func (mc *MaterialCost) IsLinkedTo(invoiceID uuid.UUID) bool {
	return mc.SupplierInvoiceID != nil && *mc.SupplierInvoiceID == invoiceID
}

// VerifyTotal checks the persisted invariant total == quantity * unitPrice
func (mc *MaterialCost) VerifyTotal() error {
	if !mc.TotalCost.WithinTolerance(valueobject.LineTotal(mc.Quantity, mc.UnitPrice)) {
		return shared.NewArithmeticMismatchError(fmt.Sprintf("Material cost %s total %s does not match quantity x unit price", mc.ID, mc.TotalCost))
	}
	return nil
}

func (mc *MaterialCost) touch() {
	mc.UpdatedAt = time.Now()
	mc.IncrementVersion()
}

func validateQuantityAndPrice(quantity, unitPrice decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	return nil
}

func checkSuppliedTotal(what string, computed valueobject.Amount, supplied *valueobject.Amount) *shared.DomainError {
	if supplied == nil || computed.WithinTolerance(*supplied) {
		return nil
	}
	return shared.NewArithmeticMismatchError(fmt.Sprintf("Supplied %s total %s differs from computed total %s", what, supplied.String(), computed.String()))
}
