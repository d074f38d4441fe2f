package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appcosting "github.com/buildops/backoffice/internal/application/costing"
	appdocument "github.com/buildops/backoffice/internal/application/document"
	appproject "github.com/buildops/backoffice/internal/application/project"
	"github.com/buildops/backoffice/internal/interfaces/http/dto"
	"github.com/buildops/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockProjectService implements ProjectService for testing
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) RegisterProject(ctx context.Context, req appproject.RegisterProjectRequest) (*appproject.ProjectResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appproject.ProjectResponse), args.Error(1)
}

func (m *MockProjectService) GetProject(ctx context.Context, id uuid.UUID) (*appproject.ProjectResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appproject.ProjectResponse), args.Error(1)
}

func (m *MockProjectService) StartStage(ctx context.Context, id uuid.UUID, order int) (*appproject.ProjectResponse, error) {
	args := m.Called(ctx, id, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appproject.ProjectResponse), args.Error(1)
}

func (m *MockProjectService) CompleteStage(ctx context.Context, id uuid.UUID, order int) (*appproject.ProjectResponse, error) {
	args := m.Called(ctx, id, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appproject.ProjectResponse), args.Error(1)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, id uuid.UUID, cascade bool) error {
	return m.Called(ctx, id, cascade).Error(0)
}

// MockCostingService implements CostingService for testing
type MockCostingService struct {
	mock.Mock
}

func (m *MockCostingService) RecordMaterialCost(ctx context.Context, req appcosting.RecordMaterialCostRequest) (*appcosting.MaterialCostResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcosting.MaterialCostResponse), args.Error(1)
}

func (m *MockCostingService) RelinkMaterialCostToInvoice(ctx context.Context, costID uuid.UUID, invoiceID *uuid.UUID) (*appcosting.MaterialCostResponse, error) {
	args := m.Called(ctx, costID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcosting.MaterialCostResponse), args.Error(1)
}

func (m *MockCostingService) RecordInvoiceLine(ctx context.Context, req appcosting.RecordInvoiceLineRequest) (*appcosting.InvoiceLineResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcosting.InvoiceLineResponse), args.Error(1)
}

func (m *MockCostingService) ProjectFinancialSummary(ctx context.Context, projectID uuid.UUID) (*appcosting.FinancialSummaryResponse, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcosting.FinancialSummaryResponse), args.Error(1)
}

func (m *MockCostingService) RegisterSupplierInvoice(ctx context.Context, req appcosting.RegisterSupplierInvoiceRequest) (*appcosting.SupplierInvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcosting.SupplierInvoiceResponse), args.Error(1)
}

func (m *MockCostingService) RemoveSupplierInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCostingService) SupplierInvoiceAllocation(ctx context.Context, invoiceID uuid.UUID) (*appcosting.AllocationResponse, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcosting.AllocationResponse), args.Error(1)
}

// MockDocumentService implements DocumentService for testing
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) RegisterDocument(ctx context.Context, req appdocument.RegisterDocumentRequest) (*appdocument.DocumentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appdocument.DocumentResponse), args.Error(1)
}

func (m *MockDocumentService) Generate(ctx context.Context, req appdocument.GenerateDocumentRequest) (*appdocument.GenerateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appdocument.GenerateResult), args.Error(1)
}

func (m *MockDocumentService) Dispatch(ctx context.Context, generationID uuid.UUID, recipient string) (*appdocument.GenerationResponse, error) {
	args := m.Called(ctx, generationID, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appdocument.GenerationResponse), args.Error(1)
}

func (m *MockDocumentService) GetGeneration(ctx context.Context, generationID uuid.UUID) (*appdocument.GenerationResponse, error) {
	args := m.Called(ctx, generationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appdocument.GenerationResponse), args.Error(1)
}

func (m *MockDocumentService) ListGenerations(ctx context.Context, documentID uuid.UUID) ([]appdocument.GenerationResponse, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appdocument.GenerationResponse), args.Error(1)
}

// performRequest sends body (marshalled unless it is already a string) and
// decodes the standard envelope
func performRequest(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}
