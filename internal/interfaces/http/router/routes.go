package router

import (
	"github.com/buildops/backoffice/internal/interfaces/http/handler"
)

// Handlers groups the HTTP handlers the API exposes
type Handlers struct {
	Project  *handler.ProjectHandler
	Costing  *handler.CostingHandler
	Document *handler.DocumentHandler
	System   *handler.SystemHandler
}

// RegisterAPI registers the project, costing, document and system routes
func RegisterAPI(r *Router, h Handlers) *Router {
	return r.Register(
		ProjectRoutes(h.Project),
		CostingRoutes(h.Costing),
		DocumentRoutes(h.Document),
		SystemRoutes(h.System),
	)
}

func ProjectRoutes(h *handler.ProjectHandler) *DomainGroup {
	return NewDomainGroup("project", "/projects").
		POST("", h.Create).
		GET("/:id", h.Get).
		DELETE("/:id", h.Delete).
		POST("/:id/stages/:order/start", h.StartStage).
		POST("/:id/stages/:order/complete", h.CompleteStage)
}

// CostingRoutes spans three resources, so the group has no common prefix
func CostingRoutes(h *handler.CostingHandler) *DomainGroup {
	return NewDomainGroup("costing", "").
		POST("/projects/:id/material-costs", h.RecordMaterialCost).
		PUT("/material-costs/:id/invoice", h.RelinkMaterialCost).
		POST("/projects/:id/invoice-lines", h.RecordInvoiceLine).
		GET("/projects/:id/financial-summary", h.FinancialSummary).
		POST("/supplier-invoices", h.RegisterSupplierInvoice).
		DELETE("/supplier-invoices/:id", h.RemoveSupplierInvoice).
		GET("/supplier-invoices/:id/allocation", h.SupplierInvoiceAllocation)
}

func DocumentRoutes(h *handler.DocumentHandler) *DomainGroup {
	return NewDomainGroup("document", "").
		POST("/projects/:id/documents", h.RegisterDocument).
		POST("/documents/:id/generations", h.Generate).
		GET("/documents/:id/generations", h.ListGenerations).
		GET("/document-generations/:id", h.GetGeneration).
		POST("/document-generations/:id/dispatch", h.Dispatch)
}

func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "").
		GET("/health", h.Health)
}
