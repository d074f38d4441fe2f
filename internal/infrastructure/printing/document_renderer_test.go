package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	appdocument "github.com/buildops/backoffice/internal/application/document"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type fakePDFRenderer struct {
	req *PDFRequest
	err error
}

func (f *fakePDFRenderer) RenderPDF(_ context.Context, req *PDFRequest) (*PDFResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &PDFResult{Data: []byte("%PDF-1.7 fake"), RenderDuration: time.Millisecond}, nil
}

func (f *fakePDFRenderer) Close() error { return nil }

type fakeArtifactStore struct {
	key         string
	data        []byte
	contentType string
	err         error
}

func (f *fakeArtifactStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.data, f.contentType = key, data, contentType
	return "https://files.example.com/" + key, nil
}

func renderRequest(t *testing.T, data document.TemplateData, docType document.DocumentType, seq int64) appdocument.RenderRequest {
	t.Helper()
	number, err := document.NewDocumentNumber(docType, seq)
	require.NoError(t, err)
	return appdocument.RenderRequest{
		GenerationID: uuid.New(),
		DocumentID:   uuid.New(),
		ProjectRef:   "PRJ-7",
		Number:       number,
		Data:         data,
	}
}

func newTestDocumentRenderer(t *testing.T, pdf PDFRenderer, store ArtifactStore) *DocumentRenderer {
	t.Helper()
	engine, err := NewTemplateEngine(WithCurrencySymbol("$"))
	require.NoError(t, err)
	r := NewDocumentRenderer(engine, pdf, store, "/documents/", nil)
	r.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return r
}

func TestDocumentRenderer_Render(t *testing.T) {
	pdf := &fakePDFRenderer{}
	store := &fakeArtifactStore{}
	r := newTestDocumentRenderer(t, pdf, store)

	artifact, err := r.Render(context.Background(), renderRequest(t, sampleInvoice(), document.DocumentTypeInvoice, 3))
	require.NoError(t, err)

	assert.Equal(t, "documents/PRJ-7/INV-00003.pdf", store.key)
	assert.Equal(t, "application/pdf", store.contentType)
	assert.Equal(t, "https://files.example.com/documents/PRJ-7/INV-00003.pdf", artifact.FileURL)
	assert.Equal(t, int64(len("%PDF-1.7 fake")), artifact.SizeBytes)
	assert.Equal(t, "application/pdf", artifact.ContentType)

	require.NotNil(t, pdf.req)
	assert.Equal(t, "INV-00003", pdf.req.Title)
	assert.Equal(t, A4Portrait(), pdf.req.Page)
	assert.Contains(t, pdf.req.Footer, "PRJ-7")
	assert.Contains(t, pdf.req.HTML, "$4,801.80")
}

func TestDocumentRenderer_KeyWithoutProjectRef(t *testing.T) {
	r := newTestDocumentRenderer(t, &fakePDFRenderer{}, &fakeArtifactStore{})
	assert.Equal(t, "documents/unassigned/QUO-00001.pdf", r.artifactKey("  ", "QUO-00001"))
	assert.Equal(t, "documents/A-B/QUO-00001.pdf", r.artifactKey("A/B", "QUO-00001"))
}

func TestDocumentRenderer_PDFFailure(t *testing.T) {
	pdfErr := NewRenderError(ErrCodeRenderTimeout, "timed out", context.DeadlineExceeded)
	store := &fakeArtifactStore{}
	r := newTestDocumentRenderer(t, &fakePDFRenderer{err: pdfErr}, store)

	_, err := r.Render(context.Background(), renderRequest(t, sampleInvoice(), document.DocumentTypeInvoice, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, store.key)
}

func TestDocumentRenderer_StorageFailure(t *testing.T) {
	r := newTestDocumentRenderer(t, &fakePDFRenderer{}, &fakeArtifactStore{err: errors.New("bucket unavailable")})

	_, err := r.Render(context.Background(), renderRequest(t, sampleInvoice(), document.DocumentTypeInvoice, 1))
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeStorageFailed, renderErr.Code)
}

func TestDocumentRenderer_NilData(t *testing.T) {
	r := newTestDocumentRenderer(t, &fakePDFRenderer{}, &fakeArtifactStore{})
	_, err := r.Render(context.Background(), appdocument.RenderRequest{})
	assert.Error(t, err)
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestDocumentRenderer_RecordsClientSpan(t *testing.T) {
	sr := recordSpans(t)
	r := newTestDocumentRenderer(t, &fakePDFRenderer{}, &fakeArtifactStore{})

	_, err := r.Render(context.Background(), renderRequest(t, sampleInvoice(), document.DocumentTypeInvoice, 4))
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "printing.render", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "pdf_rendered", spans[0].Events()[0].Name)

	var number string
	for _, a := range spans[0].Attributes() {
		if a.Key == "document_number" {
			number = a.Value.AsString()
		}
	}
	assert.Equal(t, "INV-00004", number)
}

func TestDocumentRenderer_StorageFailureMarksSpan(t *testing.T) {
	sr := recordSpans(t)
	r := newTestDocumentRenderer(t, &fakePDFRenderer{}, &fakeArtifactStore{err: errors.New("bucket unavailable")})

	_, err := r.Render(context.Background(), renderRequest(t, sampleInvoice(), document.DocumentTypeInvoice, 1))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
