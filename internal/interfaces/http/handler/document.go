package handler

import (
	"context"

	appdocument "github.com/buildops/backoffice/internal/application/document"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentService is document numbering and dispatch as seen by the HTTP layer
type DocumentService interface {
	RegisterDocument(ctx context.Context, req appdocument.RegisterDocumentRequest) (*appdocument.DocumentResponse, error)
	Generate(ctx context.Context, req appdocument.GenerateDocumentRequest) (*appdocument.GenerateResult, error)
	Dispatch(ctx context.Context, generationID uuid.UUID, recipient string) (*appdocument.GenerationResponse, error)
	GetGeneration(ctx context.Context, generationID uuid.UUID) (*appdocument.GenerationResponse, error)
	ListGenerations(ctx context.Context, documentID uuid.UUID) ([]appdocument.GenerationResponse, error)
}

// DocumentHandler serves document, generation and dispatch endpoints
type DocumentHandler struct {
	BaseHandler
	service DocumentService
}

func NewDocumentHandler(service DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// RegisterDocument godoc
// @ID           registerDocument
// @Summary      Register a document
// @Description  Attach a document record to a project
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body RegisterDocumentRequest true "Document"
// @Success      201 {object} dto.Response{data=appdocument.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id}/documents [post]
func (h *DocumentHandler) RegisterDocument(c *gin.Context) {
	projectID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req RegisterDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.RegisterDocument(c.Request.Context(), appdocument.RegisterDocumentRequest{
		ProjectID: projectID,
		Filename:  req.Filename,
		FileType:  req.FileType,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Generate godoc
// @ID           generateDocument
// @Summary      Generate a numbered document
// @Description  Allocate the next number for the document type and render the artifact. A failed number is never reused. A failed automatic send is reported in dispatch_error of a 201 response.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body GenerateDocumentRequest true "Generation request"
// @Success      201 {object} dto.Response{data=appdocument.GenerateResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id}/generations [post]
func (h *DocumentHandler) Generate(c *gin.Context) {
	documentID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req GenerateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), appdocument.GenerateDocumentRequest{
		DocumentID:     documentID,
		DocumentType:   req.DocumentType,
		TemplateData:   req.TemplateData,
		GeneratedBy:    req.GeneratedBy,
		AutoSend:       req.AutoSend,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListGenerations godoc
// @ID           listDocumentGenerations
// @Summary      List generations of a document
// @Description  Newest first, failed attempts included
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appdocument.GenerationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id}/generations [get]
func (h *DocumentHandler) ListGenerations(c *gin.Context) {
	documentID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.ListGenerations(c.Request.Context(), documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetGeneration godoc
// @ID           getDocumentGeneration
// @Summary      Get a generation
// @Tags         documents
// @Produce      json
// @Param        id path string true "Generation ID" format(uuid)
// @Success      200 {object} dto.Response{data=appdocument.GenerationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /document-generations/{id} [get]
func (h *DocumentHandler) GetGeneration(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetGeneration(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Dispatch godoc
// @ID           dispatchDocumentGeneration
// @Summary      Email a generated document
// @Description  Send a generated artifact at most once. The body is optional; without recipient_email the address stored on the generation is used.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Generation ID" format(uuid)
// @Param        request body DispatchRequest false "Recipient override"
// @Success      200 {object} dto.Response{data=appdocument.GenerationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /document-generations/{id}/dispatch [post]
func (h *DocumentHandler) Dispatch(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req DispatchRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.Dispatch(c.Request.Context(), id, req.RecipientEmail)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
