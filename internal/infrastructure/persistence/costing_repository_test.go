package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCost(t *testing.T, projectID uuid.UUID, qty, price string) *costing.MaterialCost {
	t.Helper()
	mc, err := costing.NewMaterialCost(projectID, "Timber", decimal.RequireFromString(qty), decimal.RequireFromString(price), "Northwood Supplies", "structure")
	require.NoError(t, err)
	return mc
}

func newSupplierInvoice(t *testing.T, number string, total float64) *costing.SupplierInvoice {
	t.Helper()
	si, err := costing.NewSupplierInvoice(number, "Northwood Supplies",
		valueobject.NewAmountFromFloat(total), valueobject.NewAmountFromFloat(total/6), time.Now())
	require.NoError(t, err)
	return si
}

func TestGormMaterialCostRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMaterialCostRepository(newSQLiteDB(t))
	projectID := uuid.New()

	mc := newCost(t, projectID, "3", "41.333")
	require.NoError(t, repo.Save(ctx, mc))

	loaded, err := repo.FindByID(ctx, mc.ID)
	require.NoError(t, err)
	assert.True(t, loaded.TotalCost.Equal(valueobject.NewAmountFromFloat(124)), "got %s", loaded.TotalCost)
	assert.True(t, loaded.Quantity.Equal(decimal.NewFromInt(3)))
	assert.NoError(t, loaded.VerifyTotal())
	assert.Nil(t, loaded.SupplierInvoiceID)

	byProject, err := repo.FindByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, byProject, 1)

	_, err = repo.FindByIDForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormMaterialCostRepository_InvoiceAllocation(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	costs := NewGormMaterialCostRepository(db)
	invoices := NewGormSupplierInvoiceRepository(db)
	projectID := uuid.New()

	invoice := newSupplierInvoice(t, "SUP-778", 1000)
	require.NoError(t, invoices.Save(ctx, invoice))

	first := newCost(t, projectID, "10", "40")
	second := newCost(t, projectID, "5", "30")
	for _, mc := range []*costing.MaterialCost{first, second} {
		allocated, err := costs.SumByInvoice(ctx, invoice.ID, mc.ID)
		require.NoError(t, err)
		require.NoError(t, mc.LinkToInvoice(invoice, allocated))
		require.NoError(t, costs.Save(ctx, mc))
	}

	total, err := costs.SumByInvoice(ctx, invoice.ID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(valueobject.NewAmountFromFloat(550)), "got %s", total)

	others, err := costs.SumByInvoice(ctx, invoice.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, others.Equal(valueobject.NewAmountFromFloat(150)), "got %s", others)

	linked, err := costs.FindByInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	n, err := costs.UnlinkInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	reloaded, err := costs.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.SupplierInvoiceID)
	assert.Equal(t, first.Version+1, reloaded.Version)
	assert.True(t, reloaded.TotalCost.Equal(first.TotalCost))

	empty, err := costs.SumByInvoice(ctx, invoice.ID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestGormSupplierInvoiceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSupplierInvoiceRepository(newSQLiteDB(t))

	si := newSupplierInvoice(t, "SUP-100", 1200)
	require.NoError(t, repo.Save(ctx, si))

	exists, err := repo.ExistsByNumber(ctx, "SUP-100")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := repo.FindByIDForUpdate(ctx, si.ID)
	require.NoError(t, err)
	assert.True(t, loaded.TotalAmount.Equal(si.TotalAmount))
	assert.NoError(t, loaded.VerifyNetAmount())

	err = repo.Save(ctx, newSupplierInvoice(t, "SUP-100", 50))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	require.NoError(t, repo.Delete(ctx, si.ID))
	assert.ErrorIs(t, repo.Delete(ctx, si.ID), shared.ErrNotFound)
}

func TestGormInvoiceLineRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceLineRepository(newSQLiteDB(t))
	projectID := uuid.New()

	line, err := costing.NewInvoiceLine(projectID, "Labour", decimal.NewFromInt(8), decimal.RequireFromString("45.50"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, line))

	lines, err := repo.FindByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].TotalPrice.Equal(valueobject.NewAmountFromFloat(364)))

	count, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.DeleteByProject(ctx, projectID))
	count, err = repo.CountByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
