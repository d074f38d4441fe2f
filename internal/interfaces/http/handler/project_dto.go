package handler

import "github.com/google/uuid"

// CreateProjectRequest is the body of POST /projects
type CreateProjectRequest struct {
	ProjectRef  string     `json:"project_ref" binding:"required"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	ClientID    *uuid.UUID `json:"client_id"`
	CreatedBy   *uuid.UUID `json:"created_by"`
	QuoteAmount *float64   `json:"quote_amount" binding:"omitempty,gte=0"`
	Stages      []string   `json:"stages" binding:"required,min=1,dive,required"`
}
