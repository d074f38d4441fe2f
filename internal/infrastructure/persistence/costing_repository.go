package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/buildops/backoffice/internal/domain/costing"
	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/buildops/backoffice/internal/domain/shared/valueobject"
	"github.com/buildops/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMaterialCostRepository implements MaterialCostRepository using GORM
type GormMaterialCostRepository struct {
	db *gorm.DB
}

// NewGormMaterialCostRepository creates a new GormMaterialCostRepository
func NewGormMaterialCostRepository(db *gorm.DB) *GormMaterialCostRepository {
	return &GormMaterialCostRepository{db: db}
}

func (r *GormMaterialCostRepository) FindByID(ctx context.Context, id uuid.UUID) (*costing.MaterialCost, error) {
	var m models.MaterialCostModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIDForUpdate reads the cost with SELECT ... FOR UPDATE. Callers that
// also lock an invoice must lock the invoice first.
func (r *GormMaterialCostRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*costing.MaterialCost, error) {
	var m models.MaterialCostModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

func (r *GormMaterialCostRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]costing.MaterialCost, error) {
	return r.findWhere(ctx, "project_id = ?", projectID)
}

func (r *GormMaterialCostRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]costing.MaterialCost, error) {
	return r.findWhere(ctx, "supplier_invoice_id = ?", invoiceID)
}

func (r *GormMaterialCostRepository) findWhere(ctx context.Context, query string, args ...any) ([]costing.MaterialCost, error) {
	var rows []models.MaterialCostModel
	if err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	costs := make([]costing.MaterialCost, 0, len(rows))
	for i := range rows {
		costs = append(costs, *rows[i].ToDomain())
	}
	return costs, nil
}

// SumByInvoice totals linked costs in the database. It is only meaningful
// while the invoice row is locked by the calling transaction.
func (r *GormMaterialCostRepository) SumByInvoice(ctx context.Context, invoiceID, excludeCostID uuid.UUID) (valueobject.Amount, error) {
	query := r.db.WithContext(ctx).Model(&models.MaterialCostModel{}).
		Select("COALESCE(SUM(total_cost), 0)").
		Where("supplier_invoice_id = ?", invoiceID)
	if excludeCostID != uuid.Nil {
		query = query.Where("id <> ?", excludeCostID)
	}

	var total decimal.Decimal
	if err := query.Row().Scan(&total); err != nil {
		return valueobject.Amount{}, fmt.Errorf("failed to sum costs of invoice %s: %w", invoiceID, err)
	}
	return valueobject.NewAmount(total), nil
}

func (r *GormMaterialCostRepository) Save(ctx context.Context, mc *costing.MaterialCost) error {
	return saveAggregate(r.db.WithContext(ctx), models.MaterialCostModelFromDomain(mc), mc.ID, mc.Version)
}

// UnlinkInvoice clears the link of every cost allocated to the invoice and
// bumps their versions
func (r *GormMaterialCostRepository) UnlinkInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.MaterialCostModel{}).
		Where("supplier_invoice_id = ?", invoiceID).
		Updates(map[string]any{
			"supplier_invoice_id": nil,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormMaterialCostRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MaterialCostModel{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

func (r *GormMaterialCostRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.MaterialCostModel{}).Error
}

// GormSupplierInvoiceRepository implements SupplierInvoiceRepository using GORM
type GormSupplierInvoiceRepository struct {
	db *gorm.DB
}

// NewGormSupplierInvoiceRepository creates a new GormSupplierInvoiceRepository
func NewGormSupplierInvoiceRepository(db *gorm.DB) *GormSupplierInvoiceRepository {
	return &GormSupplierInvoiceRepository{db: db}
}

func (r *GormSupplierInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*costing.SupplierInvoice, error) {
	var m models.SupplierInvoiceModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIDForUpdate reads the invoice with SELECT ... FOR UPDATE, serializing
// every allocation against it
func (r *GormSupplierInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*costing.SupplierInvoice, error) {
	var m models.SupplierInvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

func (r *GormSupplierInvoiceRepository) ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SupplierInvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormSupplierInvoiceRepository) Save(ctx context.Context, si *costing.SupplierInvoice) error {
	return saveAggregate(r.db.WithContext(ctx), models.SupplierInvoiceModelFromDomain(si), si.ID, si.Version)
}

func (r *GormSupplierInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SupplierInvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormInvoiceLineRepository implements InvoiceLineRepository using GORM
type GormInvoiceLineRepository struct {
	db *gorm.DB
}

// NewGormInvoiceLineRepository creates a new GormInvoiceLineRepository
func NewGormInvoiceLineRepository(db *gorm.DB) *GormInvoiceLineRepository {
	return &GormInvoiceLineRepository{db: db}
}

func (r *GormInvoiceLineRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]costing.InvoiceLine, error) {
	var rows []models.InvoiceLineModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]costing.InvoiceLine, 0, len(rows))
	for i := range rows {
		lines = append(lines, *rows[i].ToDomain())
	}
	return lines, nil
}

// Save inserts the line or overwrites it by primary key
func (r *GormInvoiceLineRepository) Save(ctx context.Context, line *costing.InvoiceLine) error {
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(models.InvoiceLineModelFromDomain(line)).Error)
}

func (r *GormInvoiceLineRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InvoiceLineModel{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

func (r *GormInvoiceLineRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.InvoiceLineModel{}).Error
}

var (
	_ costing.MaterialCostRepository    = (*GormMaterialCostRepository)(nil)
	_ costing.SupplierInvoiceRepository = (*GormSupplierInvoiceRepository)(nil)
	_ costing.InvoiceLineRepository     = (*GormInvoiceLineRepository)(nil)
)
