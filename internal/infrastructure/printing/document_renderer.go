package printing

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	appdocument "github.com/buildops/backoffice/internal/application/document"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/buildops/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

// ArtifactStore persists a rendered file and returns its URL
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DocumentRenderer renders template data to PDF and stores the result
type DocumentRenderer struct {
	engine    *TemplateEngine
	pdf       PDFRenderer
	store     ArtifactStore
	keyPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentRenderer creates a renderer. Artifacts are stored under
// keyPrefix/<project ref>/<document number>.pdf.
func NewDocumentRenderer(engine *TemplateEngine, pdf PDFRenderer, store ArtifactStore, keyPrefix string, logger *zap.Logger) *DocumentRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRenderer{
		engine:    engine,
		pdf:       pdf,
		store:     store,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// Render implements the document application's Renderer port
func (r *DocumentRenderer) Render(ctx context.Context, req appdocument.RenderRequest) (*appdocument.RenderedArtifact, error) {
	if req.Data == nil {
		return nil, NewRenderError(ErrCodeInvalidTemplate, "template data is required", nil)
	}
	docType := req.Data.DocumentType()
	number := req.Number.String()

	// Chrome and the artifact store are both remote calls
	ctx, span := telemetry.StartSpan(ctx, "printing.render",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentNumber, number),
		telemetry.WithAttribute(telemetry.SpanAttrGenerationID, req.GenerationID.String()),
	)
	defer span.End()

	view := r.buildView(req)
	body, err := r.engine.Render(docType, view)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := r.pdf.RenderPDF(ctx, &PDFRequest{
		HTML:   body,
		Title:  number,
		Page:   A4Portrait(),
		Footer: fmt.Sprintf("%s · %s", number, req.ProjectRef),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.AddEvent(span, "pdf_rendered", "bytes", len(result.Data))

	key := r.artifactKey(req.ProjectRef, number)
	url, err := r.store.Put(ctx, key, result.Data, pdfContentType)
	if err != nil {
		err = NewRenderError(ErrCodeStorageFailed, "failed to store "+key, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	r.logger.Info("Document rendered",
		zap.String("generation_id", req.GenerationID.String()),
		zap.String("document_number", number),
		zap.String("key", key),
		zap.Int("bytes", len(result.Data)),
		zap.Duration("render_duration", result.RenderDuration),
		zap.String("trace_id", telemetry.GetTraceID(ctx)))

	return &appdocument.RenderedArtifact{
		FileURL:     url,
		SizeBytes:   int64(len(result.Data)),
		ContentType: pdfContentType,
	}, nil
}

func (r *DocumentRenderer) artifactKey(projectRef, number string) string {
	ref := strings.ReplaceAll(strings.TrimSpace(projectRef), "/", "-")
	if ref == "" {
		ref = "unassigned"
	}
	return path.Join(r.keyPrefix, ref, number+".pdf")
}

// documentView is the value every template executes against. Only the
// pointer matching the document type is set.
type documentView struct {
	Number      string
	ProjectRef  string
	GeneratedAt time.Time

	Invoice     *document.InvoiceTemplateData
	Quote       *document.QuoteTemplateData
	Certificate *document.CertificateTemplateData

	Lines    []lineView
	Subtotal valueobject.Amount
	Tax      valueobject.Amount
	Total    valueobject.Amount
}

type lineView struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   valueobject.Amount
	Total       valueobject.Amount
}

func (r *DocumentRenderer) buildView(req appdocument.RenderRequest) documentView {
	view := documentView{
		Number:      req.Number.String(),
		ProjectRef:  req.ProjectRef,
		GeneratedAt: r.now(),
	}
	switch data := req.Data.(type) {
	case *document.InvoiceTemplateData:
		view.Invoice = data
		view.Lines = toLineViews(data.Lines)
		view.Subtotal = data.Subtotal()
		view.Tax = data.Tax()
		view.Total = data.Total()
	case *document.QuoteTemplateData:
		view.Quote = data
		view.Lines = toLineViews(data.Lines)
		view.Subtotal = data.Total()
		view.Total = data.Total()
	case *document.CertificateTemplateData:
		view.Certificate = data
	}
	return view
}

func toLineViews(lines []document.TemplateLine) []lineView {
	out := make([]lineView, len(lines))
	for i, l := range lines {
		out[i] = lineView{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   valueobject.NewAmount(l.UnitPrice),
			Total:       l.Total(),
		}
	}
	return out
}

var _ appdocument.Renderer = (*DocumentRenderer)(nil)
