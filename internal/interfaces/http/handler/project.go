package handler

import (
	"context"
	"strconv"

	appproject "github.com/buildops/backoffice/internal/application/project"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectService is the stage workflow as seen by the HTTP layer
type ProjectService interface {
	RegisterProject(ctx context.Context, req appproject.RegisterProjectRequest) (*appproject.ProjectResponse, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*appproject.ProjectResponse, error)
	StartStage(ctx context.Context, projectID uuid.UUID, order int) (*appproject.ProjectResponse, error)
	CompleteStage(ctx context.Context, projectID uuid.UUID, order int) (*appproject.ProjectResponse, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID, cascade bool) error
}

// ProjectHandler serves project and stage endpoints
type ProjectHandler struct {
	BaseHandler
	service ProjectService
}

func NewProjectHandler(service ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create godoc
// @ID           createProject
// @Summary      Register a project
// @Description  Register a project with its ordered stage plan. Stage orders start at 0.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        request body CreateProjectRequest true "Project registration request"
// @Success      201 {object} dto.Response{data=appproject.ProjectResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.RegisterProject(c.Request.Context(), appproject.RegisterProjectRequest{
		ProjectRef:  req.ProjectRef,
		Priority:    req.Priority,
		ClientID:    req.ClientID,
		CreatedBy:   req.CreatedBy,
		QuoteAmount: req.QuoteAmount,
		StageNames:  req.Stages,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getProject
// @Summary      Get project by ID
// @Description  Return a project with its stages in order
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Success      200 {object} dto.Response{data=appproject.ProjectResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteProject
// @Summary      Delete a project
// @Description  Without cascade=true a project that still has costs, lines or documents is refused
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        cascade query bool false "Delete dependent records too"
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	cascade := false
	if raw := c.Query("cascade"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "Invalid cascade: must be true or false")
			return
		}
		cascade = v
	}
	if err := h.service.DeleteProject(c.Request.Context(), id, cascade); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// StartStage godoc
// @ID           startProjectStage
// @Summary      Start a stage
// @Description  Move a pending stage to in_progress. Only the successor of the last completed stage may start unless out-of-order starts are enabled.
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        order path int true "Stage order"
// @Success      200 {object} dto.Response{data=appproject.ProjectResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id}/stages/{order}/start [post]
func (h *ProjectHandler) StartStage(c *gin.Context) {
	h.transition(c, h.service.StartStage)
}

// CompleteStage godoc
// @ID           completeProjectStage
// @Summary      Complete a stage
// @Description  Move an in_progress stage to completed. The project completes once every stage is completed.
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        order path int true "Stage order"
// @Success      200 {object} dto.Response{data=appproject.ProjectResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /projects/{id}/stages/{order}/complete [post]
func (h *ProjectHandler) CompleteStage(c *gin.Context) {
	h.transition(c, h.service.CompleteStage)
}

func (h *ProjectHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID, int) (*appproject.ProjectResponse, error)) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	order, ok := h.ParseIntParam(c, "order")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id, order)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
