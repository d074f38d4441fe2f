package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/buildops/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
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

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "document", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, "INVOICE"),
		telemetry.WithSpanKind(trace.SpanKindServer))
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "document.generate", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "INVOICE", attrMap(spans[0].Attributes())[telemetry.SpanAttrDocumentType].AsString())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	projectID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "stage_workflow.start_stage")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProjectID, projectID,
		telemetry.SpanAttrStageOrder, 2,
		42, "skipped: key is not a string",
		"allow_out_of_order", true,
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, 1250.5)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, projectID.String(), attrs[telemetry.SpanAttrProjectID].AsString())
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrStageOrder].AsInt64())
	assert.True(t, attrs["allow_out_of_order"].AsBool())
	assert.Equal(t, 1250.5, attrs[telemetry.SpanAttrAmount].AsFloat64())
	assert.Len(t, attrs, 4)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "reconciliation.relink_material_cost")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("over allocation"))
	telemetry.AddEvent(span, "invoice_locked", telemetry.SpanAttrInvoiceID, "si-1")
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "over allocation", ended.Status().Description)
	require.Len(t, ended.Events(), 2)
	assert.Equal(t, "invoice_locked", ended.Events()[1].Name)
}

func TestGetTraceID_WithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}
