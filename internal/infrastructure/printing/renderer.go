package printing

import (
	"context"
	"time"
)

// PageSetup describes the printed page. Dimensions are in millimeters.
type PageSetup struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
	Landscape    bool
}

// A4Portrait is the page every built-in document template is laid out for
func A4Portrait() PageSetup {
	return PageSetup{
		Width:        210,
		Height:       297,
		MarginTop:    15,
		MarginRight:  12,
		MarginBottom: 15,
		MarginLeft:   12,
	}
}

// PDFRequest is one HTML-to-PDF conversion
type PDFRequest struct {
	HTML   string
	Title  string
	Page   PageSetup
	Footer string
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// PDFResult is the output of a conversion
type PDFResult struct {
	Data           []byte
	RenderDuration time.Duration
}

// PDFRenderer converts HTML into PDF bytes
type PDFRenderer interface {
	RenderPDF(ctx context.Context, req *PDFRequest) (*PDFResult, error)
	Close() error
}

// RenderError represents a failure anywhere in the HTML, PDF or upload steps
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout   = "RENDER_TIMEOUT"
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeInvalidHTML     = "INVALID_HTML"
	ErrCodeInvalidTemplate = "INVALID_TEMPLATE"
	ErrCodeStorageFailed   = "STORAGE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
