package costing

import (
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// FinancialSummary is a read-only roll-up of a project's costs and billing
type FinancialSummary struct {
	ProjectID         uuid.UUID
	MaterialCostTotal valueobject.Amount
	MaterialCostCount int
	InvoiceLineTotal  valueobject.Amount
	InvoiceLineCount  int
	QuoteAmount       *valueobject.Amount
	// QuoteVariance is quote minus accrued material cost; nil without a quote.
	QuoteVariance *valueobject.Amount
	// BilledMargin is billed lines minus accrued material cost.
	BilledMargin valueobject.Amount
	// UnlinkedCostTotal is the part of material cost not yet matched to a
	// supplier invoice.
	UnlinkedCostTotal valueobject.Amount
}

// Summarize computes the summary from already persisted records
func Summarize(projectID uuid.UUID, quote *valueobject.Amount, costs []MaterialCost, lines []InvoiceLine) FinancialSummary {
	costTotal := valueobject.ZeroAmount()
	unlinked := valueobject.ZeroAmount()
	for _, c := range costs {
		costTotal = costTotal.Add(c.TotalCost)
		if c.SupplierInvoiceID == nil {
			unlinked = unlinked.Add(c.TotalCost)
		}
	}
	lineTotal := valueobject.ZeroAmount()
	for _, l := range lines {
		lineTotal = lineTotal.Add(l.TotalPrice)
	}

	summary := FinancialSummary{
		ProjectID:         projectID,
		MaterialCostTotal: costTotal,
		MaterialCostCount: len(costs),
		InvoiceLineTotal:  lineTotal,
		InvoiceLineCount:  len(lines),
		BilledMargin:      lineTotal.Sub(costTotal),
		UnlinkedCostTotal: unlinked,
	}
	if quote != nil {
		q := *quote
		variance := q.Sub(costTotal)
		summary.QuoteAmount = &q
		summary.QuoteVariance = &variance
	}
	return summary
}
