package handler

import (
	"context"

	appcosting "github.com/buildops/backoffice/internal/application/costing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CostingService is the reconciliation engine as seen by the HTTP layer
type CostingService interface {
	RecordMaterialCost(ctx context.Context, req appcosting.RecordMaterialCostRequest) (*appcosting.MaterialCostResponse, error)
	RelinkMaterialCostToInvoice(ctx context.Context, costID uuid.UUID, invoiceID *uuid.UUID) (*appcosting.MaterialCostResponse, error)
	RecordInvoiceLine(ctx context.Context, req appcosting.RecordInvoiceLineRequest) (*appcosting.InvoiceLineResponse, error)
	ProjectFinancialSummary(ctx context.Context, projectID uuid.UUID) (*appcosting.FinancialSummaryResponse, error)
	RegisterSupplierInvoice(ctx context.Context, req appcosting.RegisterSupplierInvoiceRequest) (*appcosting.SupplierInvoiceResponse, error)
	RemoveSupplierInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	SupplierInvoiceAllocation(ctx context.Context, invoiceID uuid.UUID) (*appcosting.AllocationResponse, error)
}

// CostingHandler serves material cost, invoice line and supplier invoice
// endpoints
type CostingHandler struct {
	BaseHandler
	service CostingService
}

func NewCostingHandler(service CostingService) *CostingHandler {
	return &CostingHandler{service: service}
}

// RecordMaterialCost godoc
// @ID           recordMaterialCost
// @Summary      Record a material cost
// @Description  Record a purchase against a project. total_cost is recomputed from quantity and unit_price; a differing supplied total is reported as a warning. With supplier_invoice_id the cost must fit into the invoice's remaining total.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body RecordMaterialCostRequest true "Material cost"
// @Success      201 {object} dto.Response{data=appcosting.MaterialCostResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id}/material-costs [post]
func (h *CostingHandler) RecordMaterialCost(c *gin.Context) {
	projectID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req RecordMaterialCostRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.RecordMaterialCost(c.Request.Context(), appcosting.RecordMaterialCostRequest{
		ProjectID:         projectID,
		Material:          req.Material,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		TotalCost:         req.TotalCost,
		Supplier:          req.Supplier,
		Category:          req.Category,
		SupplierInvoiceID: req.SupplierInvoiceID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RelinkMaterialCost godoc
// @ID           relinkMaterialCost
// @Summary      Relink a material cost
// @Description  Move a cost to another supplier invoice, or clear the link when supplier_invoice_id is null. Clearing an absent link is a no-op.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        id path string true "Material cost ID" format(uuid)
// @Param        request body RelinkMaterialCostRequest true "Target invoice"
// @Success      200 {object} dto.Response{data=appcosting.MaterialCostResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /material-costs/{id}/invoice [put]
func (h *CostingHandler) RelinkMaterialCost(c *gin.Context) {
	costID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req RelinkMaterialCostRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.RelinkMaterialCostToInvoice(c.Request.Context(), costID, req.SupplierInvoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordInvoiceLine godoc
// @ID           recordInvoiceLine
// @Summary      Record an invoice line
// @Description  Record a client-facing billable line. total_price is recomputed from quantity and unit_price.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body RecordInvoiceLineRequest true "Invoice line"
// @Success      201 {object} dto.Response{data=appcosting.InvoiceLineResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id}/invoice-lines [post]
func (h *CostingHandler) RecordInvoiceLine(c *gin.Context) {
	projectID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req RecordInvoiceLineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.RecordInvoiceLine(c.Request.Context(), appcosting.RecordInvoiceLineRequest{
		ProjectID:   projectID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TotalPrice:  req.TotalPrice,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// FinancialSummary godoc
// @ID           getProjectFinancialSummary
// @Summary      Get project financial summary
// @Description  Read-only roll-up of material costs, invoice lines, quote variance and billed margin
// @Tags         costing
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Success      200 {object} dto.Response{data=appcosting.FinancialSummaryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id}/financial-summary [get]
func (h *CostingHandler) FinancialSummary(c *gin.Context) {
	projectID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.ProjectFinancialSummary(c.Request.Context(), projectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterSupplierInvoice godoc
// @ID           registerSupplierInvoice
// @Summary      Register a supplier invoice
// @Description  Register an incoming supplier bill. Invoice numbers are unique.
// @Tags         supplier-invoices
// @Accept       json
// @Produce      json
// @Param        request body RegisterSupplierInvoiceRequest true "Supplier invoice"
// @Success      201 {object} dto.Response{data=appcosting.SupplierInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier-invoices [post]
func (h *CostingHandler) RegisterSupplierInvoice(c *gin.Context) {
	var req RegisterSupplierInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.RegisterSupplierInvoice(c.Request.Context(), appcosting.RegisterSupplierInvoiceRequest{
		InvoiceNumber: req.InvoiceNumber,
		Supplier:      req.Supplier,
		TotalAmount:   req.TotalAmount,
		TaxAmount:     req.TaxAmount,
		IssuedAt:      req.IssuedAt,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RemoveSupplierInvoice godoc
// @ID           removeSupplierInvoice
// @Summary      Remove a supplier invoice
// @Description  Delete an invoice and unlink the material costs allocated to it
// @Tags         supplier-invoices
// @Produce      json
// @Param        id path string true "Supplier invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=RemoveSupplierInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier-invoices/{id} [delete]
func (h *CostingHandler) RemoveSupplierInvoice(c *gin.Context) {
	invoiceID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	n, err := h.service.RemoveSupplierInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RemoveSupplierInvoiceResponse{InvoiceID: invoiceID, UnlinkedCosts: n})
}

// SupplierInvoiceAllocation godoc
// @ID           getSupplierInvoiceAllocation
// @Summary      Get supplier invoice allocation
// @Description  Show how much of an invoice total is allocated to material costs
// @Tags         supplier-invoices
// @Produce      json
// @Param        id path string true "Supplier invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=appcosting.AllocationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier-invoices/{id}/allocation [get]
func (h *CostingHandler) SupplierInvoiceAllocation(c *gin.Context) {
	invoiceID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.SupplierInvoiceAllocation(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
