package costing

import (
	"context"
	"fmt"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/buildops/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconciliationService keeps material costs, supplier invoices and invoice
// lines arithmetically consistent
type ReconciliationService struct {
	txScope   TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(txScope TransactionScope, publisher shared.EventPublisher, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		txScope:   txScope,
		publisher: publisher,
		logger:    logger,
	}
}

// RecordMaterialCost records a purchase against a project. The total is
// recomputed from quantity and unit price. When an invoice is given, the
// invoice row is locked and the new cost must fit into its remaining total.
func (s *ReconciliationService) RecordMaterialCost(ctx context.Context, req RecordMaterialCostRequest) (*MaterialCostResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "record_material_cost")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProjectID, req.ProjectID.String(),
		telemetry.SpanAttrQuantity, req.Quantity,
		"unit_price", req.UnitPrice,
	)

	mc, err := costing.NewMaterialCost(req.ProjectID, req.Material,
		decimal.NewFromFloat(req.Quantity), decimal.NewFromFloat(req.UnitPrice),
		req.Supplier, req.Category)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProjectRepo().FindByID(ctx, req.ProjectID); err != nil {
			return err
		}
		if req.SupplierInvoiceID != nil {
			if err := s.allocate(ctx, repos, mc, *req.SupplierInvoiceID); err != nil {
				return err
			}
		}
		return repos.MaterialCostRepo().Save(ctx, mc)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logRejection("Material cost rejected", req.ProjectID, err)
		return nil, err
	}

	resp := ToMaterialCostResponse(mc)
	if warning := mc.CheckSuppliedTotal(suppliedAmount(req.TotalCost)); warning != nil {
		resp.Warnings = append(resp.Warnings, s.warn(warning, mc.ID))
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, mc.TotalCost.String())

	s.logger.Info("Material cost recorded",
		zap.String("cost_id", mc.ID.String()),
		zap.String("project_id", mc.ProjectID.String()),
		zap.String("total_cost", mc.TotalCost.String()))
	s.publish(ctx, mc)
	return resp, nil
}

// RelinkMaterialCostToInvoice moves a cost to another supplier invoice, or
// clears the link when invoiceID is nil. The allocation read and the link
// write happen under the target invoice's row lock.
func (s *ReconciliationService) RelinkMaterialCostToInvoice(ctx context.Context, costID uuid.UUID, invoiceID *uuid.UUID) (*MaterialCostResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "relink_material_cost")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCostID, costID.String())
	if invoiceID != nil {
		telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoiceID.String())
	}

	var mc *costing.MaterialCost
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if invoiceID == nil {
			mc, err = repos.MaterialCostRepo().FindByIDForUpdate(ctx, costID)
			if err != nil {
				return err
			}
			if mc.SupplierInvoiceID == nil {
				return nil
			}
			mc.Unlink()
			return repos.MaterialCostRepo().Save(ctx, mc)
		}

		invoice, err := repos.SupplierInvoiceRepo().FindByIDForUpdate(ctx, *invoiceID)
		if err != nil {
			return err
		}
		mc, err = repos.MaterialCostRepo().FindByIDForUpdate(ctx, costID)
		if err != nil {
			return err
		}
		if mc.IsLinkedTo(invoice.ID) {
			return nil
		}
		allocated, err := repos.MaterialCostRepo().SumByInvoice(ctx, invoice.ID, mc.ID)
		if err != nil {
			return fmt.Errorf("failed to sum invoice allocation: %w", err)
		}
		if err := mc.LinkToInvoice(invoice, allocated); err != nil {
			return err
		}
		return repos.MaterialCostRepo().Save(ctx, mc)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Info("Material cost relink rejected",
			zap.String("cost_id", costID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Material cost relinked",
		zap.String("cost_id", mc.ID.String()),
		zap.Stringp("invoice_id", uuidString(mc.SupplierInvoiceID)))
	s.publish(ctx, mc)
	return ToMaterialCostResponse(mc), nil
}

// RecordInvoiceLine records a client-facing billable line
func (s *ReconciliationService) RecordInvoiceLine(ctx context.Context, req RecordInvoiceLineRequest) (*InvoiceLineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "record_invoice_line")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrProjectID, req.ProjectID.String())

	line, err := costing.NewInvoiceLine(req.ProjectID, req.Description,
		decimal.NewFromFloat(req.Quantity), decimal.NewFromFloat(req.UnitPrice))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProjectRepo().FindByID(ctx, req.ProjectID); err != nil {
			return err
		}
		return repos.InvoiceLineRepo().Save(ctx, line)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &InvoiceLineResponse{
		ID:          line.ID,
		ProjectID:   line.ProjectID,
		Description: line.Description,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		TotalPrice:  line.TotalPrice,
	}
	if warning := line.CheckSuppliedTotal(suppliedAmount(req.TotalPrice)); warning != nil {
		resp.Warnings = append(resp.Warnings, s.warn(warning, line.ID))
	}
	return resp, nil
}

// ProjectFinancialSummary rolls up persisted costs and billing of a project.
// It reads inside one transaction so the sums come from one snapshot.
func (s *ReconciliationService) ProjectFinancialSummary(ctx context.Context, projectID uuid.UUID) (*FinancialSummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "project_financial_summary")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrProjectID, projectID.String())

	var summary costing.FinancialSummary
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProjectRepo().FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		costs, err := repos.MaterialCostRepo().FindByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to load material costs: %w", err)
		}
		lines, err := repos.InvoiceLineRepo().FindByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to load invoice lines: %w", err)
		}
		summary = costing.Summarize(projectID, p.QuoteAmount, costs, lines)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &FinancialSummaryResponse{
		ProjectID:         summary.ProjectID,
		MaterialCostTotal: summary.MaterialCostTotal,
		MaterialCostCount: summary.MaterialCostCount,
		InvoiceLineTotal:  summary.InvoiceLineTotal,
		InvoiceLineCount:  summary.InvoiceLineCount,
		QuoteAmount:       summary.QuoteAmount,
		QuoteVariance:     summary.QuoteVariance,
		BilledMargin:      summary.BilledMargin,
		UnlinkedCostTotal: summary.UnlinkedCostTotal,
	}, nil
}

// RegisterSupplierInvoice stores a new supplier invoice
func (s *ReconciliationService) RegisterSupplierInvoice(ctx context.Context, req RegisterSupplierInvoiceRequest) (*SupplierInvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "register_supplier_invoice")
	defer span.End()
	telemetry.SetAttributes(span, "invoice_number", req.InvoiceNumber)

	si, err := costing.NewSupplierInvoice(req.InvoiceNumber, req.Supplier,
		valueobject.NewAmountFromFloat(req.TotalAmount), valueobject.NewAmountFromFloat(req.TaxAmount), req.IssuedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.SupplierInvoiceRepo().ExistsByNumber(ctx, si.InvoiceNumber)
		if err != nil {
			return fmt.Errorf("failed to check invoice number: %w", err)
		}
		if exists {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, fmt.Sprintf("Supplier invoice %s already exists", si.InvoiceNumber))
		}
		return repos.SupplierInvoiceRepo().Save(ctx, si)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Supplier invoice registered",
		zap.String("invoice_id", si.ID.String()),
		zap.String("invoice_number", si.InvoiceNumber),
		zap.String("total_amount", si.TotalAmount.String()))
	return toSupplierInvoiceResponse(si), nil
}

// RemoveSupplierInvoice deletes an invoice after explicitly clearing the
// link on every cost allocated to it. Cost amounts are kept.
func (s *ReconciliationService) RemoveSupplierInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "remove_supplier_invoice")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	var unlinked int64
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.SupplierInvoiceRepo().FindByIDForUpdate(ctx, invoiceID); err != nil {
			return err
		}
		n, err := repos.MaterialCostRepo().UnlinkInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to unlink material costs: %w", err)
		}
		unlinked = n
		return repos.SupplierInvoiceRepo().Delete(ctx, invoiceID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	s.logger.Info("Supplier invoice removed",
		zap.String("invoice_id", invoiceID.String()),
		zap.Int64("unlinked_costs", unlinked))
	return unlinked, nil
}

// SupplierInvoiceAllocation reports allocated and remaining amounts
func (s *ReconciliationService) SupplierInvoiceAllocation(ctx context.Context, invoiceID uuid.UUID) (*AllocationResponse, error) {
	var allocation costing.Allocation
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		si, err := repos.SupplierInvoiceRepo().FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		costs, err := repos.MaterialCostRepo().FindByInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to load linked costs: %w", err)
		}
		allocation = si.AllocationOf(costs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &AllocationResponse{
		InvoiceID:     invoiceID,
		InvoiceNumber: allocation.InvoiceNumber,
		TotalAmount:   allocation.TotalAmount,
		Allocated:     allocation.Allocated,
		Remaining:     allocation.Remaining,
		CostCount:     allocation.CostCount,
	}, nil
}

// allocate links mc to the invoice under the invoice row lock
func (s *ReconciliationService) allocate(ctx context.Context, repos TransactionalRepositories, mc *costing.MaterialCost, invoiceID uuid.UUID) error {
	invoice, err := repos.SupplierInvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return err
	}
	allocated, err := repos.MaterialCostRepo().SumByInvoice(ctx, invoiceID, mc.ID)
	if err != nil {
		return fmt.Errorf("failed to sum invoice allocation: %w", err)
	}
	return mc.LinkToInvoice(invoice, allocated)
}

func (s *ReconciliationService) warn(warning *shared.DomainError, id uuid.UUID) Warning {
	s.logger.Warn("Supplied total disagrees with computed total",
		zap.String("id", id.String()),
		zap.String("code", warning.Code),
		zap.String("detail", warning.Message))
	return Warning{Code: warning.Code, Message: warning.Message}
}

func (s *ReconciliationService) logRejection(msg string, projectID uuid.UUID, err error) {
	s.logger.Info(msg, zap.String("project_id", projectID.String()), zap.Error(err))
}

func (s *ReconciliationService) publish(ctx context.Context, mc *costing.MaterialCost) {
	events := mc.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish material cost events", zap.String("cost_id", mc.ID.String()), zap.Error(err))
	}
}

func toSupplierInvoiceResponse(si *costing.SupplierInvoice) *SupplierInvoiceResponse {
	return &SupplierInvoiceResponse{
		ID:            si.ID,
		InvoiceNumber: si.InvoiceNumber,
		Supplier:      si.Supplier,
		TotalAmount:   si.TotalAmount,
		TaxAmount:     si.TaxAmount,
		NetAmount:     si.NetAmount,
		IssuedAt:      si.IssuedAt,
	}
}

func suppliedAmount(f *float64) *valueobject.Amount {
	if f == nil {
		return nil
	}
	a := valueobject.NewAmountFromFloat(*f)
	return &a
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
