package costing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/project"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type reconciliationFixture struct {
	svc     *ReconciliationService
	store   *fakeStore
	pub     *recordingPublisher
	logs    *observer.ObservedLogs
	project *project.Project
}

func newReconciliationFixture(t *testing.T) *reconciliationFixture {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	store := newFakeStore()
	pub := &recordingPublisher{}

	p, err := project.NewProject("PRJ-0100", project.PriorityNormal, []string{"Survey", "Build"})
	require.NoError(t, err)
	store.addProject(p)

	return &reconciliationFixture{
		svc:     NewReconciliationService(store, pub, zap.New(core)),
		store:   store,
		pub:     pub,
		logs:    logs,
		project: p,
	}
}

func (f *reconciliationFixture) registerInvoice(t *testing.T, number string, total float64) *SupplierInvoiceResponse {
	t.Helper()
	resp, err := f.svc.RegisterSupplierInvoice(context.Background(), RegisterSupplierInvoiceRequest{
		InvoiceNumber: number,
		Supplier:      "Northern Steel",
		TotalAmount:   total,
		TaxAmount:     0,
		IssuedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return resp
}

func (f *reconciliationFixture) recordCost(t *testing.T, qty, price float64) *MaterialCostResponse {
	t.Helper()
	resp, err := f.svc.RecordMaterialCost(context.Background(), RecordMaterialCostRequest{
		ProjectID: f.project.ID,
		Material:  "Steel beam",
		Quantity:  qty,
		UnitPrice: price,
	})
	require.NoError(t, err)
	return resp
}

func TestReconciliationService_RecordMaterialCost(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	t.Run("total is computed and supplied total only warns", func(t *testing.T) {
		supplied := 130.0
		resp, err := f.svc.RecordMaterialCost(ctx, RecordMaterialCostRequest{
			ProjectID: f.project.ID,
			Material:  "Timber",
			Quantity:  3,
			UnitPrice: 41.333,
			TotalCost: &supplied,
		})
		require.NoError(t, err)
		assert.Equal(t, "124.00", resp.TotalCost.String())
		require.Len(t, resp.Warnings, 1)
		assert.Equal(t, shared.CodeArithmeticMismatch, resp.Warnings[0].Code)
		assert.Equal(t, 1, f.logs.FilterMessage("Supplied total disagrees with computed total").Len())
	})

	t.Run("supplied total within tolerance is accepted silently", func(t *testing.T) {
		supplied := 124.01
		resp, err := f.svc.RecordMaterialCost(ctx, RecordMaterialCostRequest{
			ProjectID: f.project.ID,
			Material:  "Timber",
			Quantity:  3,
			UnitPrice: 41.333,
			TotalCost: &supplied,
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Warnings)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := f.svc.RecordMaterialCost(ctx, RecordMaterialCostRequest{
			ProjectID: uuid.New(),
			Material:  "Timber",
			Quantity:  1,
			UnitPrice: 1,
		})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("invalid quantity never reaches the store", func(t *testing.T) {
		before := len(f.store.costs)
		_, err := f.svc.RecordMaterialCost(ctx, RecordMaterialCostRequest{
			ProjectID: f.project.ID,
			Material:  "Timber",
			Quantity:  0,
			UnitPrice: 10,
		})
		require.Error(t, err)
		assert.Len(t, f.store.costs, before)
	})

	assert.Equal(t, 2, f.pub.count(costing.EventTypeMaterialCostRecorded))
}

func TestReconciliationService_OverAllocationScenario(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()
	invoice := f.registerInvoice(t, "NS-2201", 1000)

	first := f.recordCost(t, 1, 600)
	second := f.recordCost(t, 1, 600)

	linked, err := f.svc.RelinkMaterialCostToInvoice(ctx, first.ID, &invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.SupplierInvoiceID)
	assert.Equal(t, invoice.ID, *linked.SupplierInvoiceID)

	_, err = f.svc.RelinkMaterialCostToInvoice(ctx, second.ID, &invoice.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrOverAllocation))
	assert.Nil(t, f.store.costs[second.ID].SupplierInvoiceID, "rejected relink leaves the cost unlinked")

	allocation, err := f.svc.SupplierInvoiceAllocation(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "600.00", allocation.Allocated.String())
	assert.Equal(t, "400.00", allocation.Remaining.String())
	assert.Equal(t, 1, allocation.CostCount)
}

func TestReconciliationService_RecordMaterialCostAgainstInvoice(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()
	invoice := f.registerInvoice(t, "NS-2202", 500)

	resp, err := f.svc.RecordMaterialCost(ctx, RecordMaterialCostRequest{
		ProjectID:         f.project.ID,
		Material:          "Rebar",
		Quantity:          10,
		UnitPrice:         50,
		SupplierInvoiceID: &invoice.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SupplierInvoiceID)

	_, err = f.svc.RecordMaterialCost(ctx, RecordMaterialCostRequest{
		ProjectID:         f.project.ID,
		Material:          "Rebar",
		Quantity:          1,
		UnitPrice:         0.01,
		SupplierInvoiceID: &invoice.ID,
	})
	assert.True(t, errors.Is(err, shared.ErrOverAllocation))
	assert.Len(t, f.store.costs, 1)
}

func TestReconciliationService_Relink(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()
	a := f.registerInvoice(t, "NS-1", 1000)
	b := f.registerInvoice(t, "NS-2", 1000)
	cost := f.recordCost(t, 2, 400)

	_, err := f.svc.RelinkMaterialCostToInvoice(ctx, cost.ID, &a.ID)
	require.NoError(t, err)

	t.Run("relinking to the same invoice does not double count", func(t *testing.T) {
		_, err := f.svc.RelinkMaterialCostToInvoice(ctx, cost.ID, &a.ID)
		require.NoError(t, err)
		allocation, err := f.svc.SupplierInvoiceAllocation(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "800.00", allocation.Allocated.String())
	})

	t.Run("moving to another invoice frees the first", func(t *testing.T) {
		f.store.locks = nil
		resp, err := f.svc.RelinkMaterialCostToInvoice(ctx, cost.ID, &b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, *resp.SupplierInvoiceID)
		assert.Equal(t, []string{"invoice", "cost"}, f.store.locks, "invoice row is locked before the cost row")

		allocation, err := f.svc.SupplierInvoiceAllocation(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, allocation.Allocated.IsZero())
	})

	t.Run("nil invoice clears the link", func(t *testing.T) {
		resp, err := f.svc.RelinkMaterialCostToInvoice(ctx, cost.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, resp.SupplierInvoiceID)
		assert.Equal(t, "800.00", resp.TotalCost.String())
	})

	t.Run("unknown invoice", func(t *testing.T) {
		missing := uuid.New()
		_, err := f.svc.RelinkMaterialCostToInvoice(ctx, cost.ID, &missing)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestReconciliationService_ConcurrentRelinksNeverOverAllocate(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()
	invoice := f.registerInvoice(t, "NS-3000", 1000)

	const workers = 8
	costIDs := make([]uuid.UUID, workers)
	for i := range costIDs {
		costIDs[i] = f.recordCost(t, 1, 300).ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, id := range costIDs {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.RelinkMaterialCostToInvoice(ctx, id, &invoice.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, shared.ErrOverAllocation) {
				rejected++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)

	allocation, err := f.svc.SupplierInvoiceAllocation(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "900.00", allocation.Allocated.String())
	assert.False(t, allocation.Remaining.IsNegative())
}

func TestReconciliationService_SupplierInvoices(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()
	invoice := f.registerInvoice(t, "NS-9", 750)

	t.Run("duplicate number", func(t *testing.T) {
		_, err := f.svc.RegisterSupplierInvoice(ctx, RegisterSupplierInvoiceRequest{InvoiceNumber: "NS-9", TotalAmount: 1})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("remove unlinks costs and keeps amounts", func(t *testing.T) {
		cost := f.recordCost(t, 5, 100)
		_, err := f.svc.RelinkMaterialCostToInvoice(ctx, cost.ID, &invoice.ID)
		require.NoError(t, err)

		unlinked, err := f.svc.RemoveSupplierInvoice(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unlinked)

		kept := f.store.costs[cost.ID]
		assert.Nil(t, kept.SupplierInvoiceID)
		assert.Equal(t, "500.00", kept.TotalCost.String())

		_, err = f.svc.SupplierInvoiceAllocation(ctx, invoice.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestReconciliationService_ProjectFinancialSummary(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()
	require.NoError(t, f.project.SetQuoteAmount(amountOf(2000)))

	f.recordCost(t, 2, 300)
	f.recordCost(t, 4, 12.5)
	supplied := 999.0
	line, err := f.svc.RecordInvoiceLine(ctx, RecordInvoiceLineRequest{
		ProjectID:   f.project.ID,
		Description: "Groundworks",
		Quantity:    1,
		UnitPrice:   1200,
		TotalPrice:  &supplied,
	})
	require.NoError(t, err)
	assert.Equal(t, "1200.00", line.TotalPrice.String())
	require.Len(t, line.Warnings, 1)

	summary, err := f.svc.ProjectFinancialSummary(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "650.00", summary.MaterialCostTotal.String())
	assert.Equal(t, 2, summary.MaterialCostCount)
	assert.Equal(t, "1200.00", summary.InvoiceLineTotal.String())
	assert.Equal(t, "550.00", summary.BilledMargin.String())
	assert.Equal(t, "650.00", summary.UnlinkedCostTotal.String())
	require.NotNil(t, summary.QuoteVariance)
	assert.Equal(t, "1350.00", summary.QuoteVariance.String())

	_, err = f.svc.ProjectFinancialSummary(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
