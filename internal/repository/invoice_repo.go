package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceFilter narrows List queries. Nil pointer fields are ignored.
type InvoiceFilter struct {
	CustomerID  *uuid.UUID
	IsDelivered *bool
	IsProforma  *bool
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	ListByCustomer(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Invoice, error)
	ListOutstandingCandidates(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Invoice, error)
	List(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter, page, limit int) ([]model.Invoice, int64, error)
	MarkDelivered(ctx context.Context, orgID, id uuid.UUID) (bool, error)
	MarkLineDelivered(ctx context.Context, orgID, lineID uuid.UUID) (bool, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Preload("Lines").Preload("Payments").
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate locks the invoice row; lines and payments are loaded
// after the lock is taken.
func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := lockForUpdate(GetDB(ctx, r.db)).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&invoice).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", id).Order("created_at asc").Find(&invoice.Lines).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", id).Find(&invoice.Payments).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListByCustomer(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Lines").Preload("Payments").
		Where("organization_id = ? AND customer_id = ?", orgID, customerID).
		Order("placed_at asc, id asc").
		Find(&invoices).Error
	return invoices, err
}

// ListOutstandingCandidates returns the customer's non-proforma invoices in
// strict FIFO order: placed_at ascending, id as the deterministic tie-break.
// Rows are locked on dialects that support it so two allocations cannot
// read the same balances concurrently. Balance filtering happens in the
// service, where decimal arithmetic is exact.
func (r *invoiceRepository) ListOutstandingCandidates(ctx context.Context, orgID, customerID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := lockForUpdate(GetDB(ctx, r.db)).
		Where("organization_id = ? AND customer_id = ? AND is_proforma = ?", orgID, customerID, false).
		Order("placed_at asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoices[i].ID).Find(&invoices[i].Lines).Error; err != nil {
			return nil, err
		}
		if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoices[i].ID).Find(&invoices[i].Payments).Error; err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (r *invoiceRepository) List(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter, page, limit int) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("organization_id = ?", orgID)
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.IsDelivered != nil {
		db = db.Where("is_delivered = ?", *filter.IsDelivered)
	}
	if filter.IsProforma != nil {
		db = db.Where("is_proforma = ?", *filter.IsProforma)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Lines").Preload("Payments").
		Order("placed_at desc").Offset(offset).Limit(limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// MarkDelivered flips is_delivered from false to true. The guard in the
// WHERE clause makes the transition happen at most once; the boolean result
// reports whether this call performed it.
func (r *invoiceRepository) MarkDelivered(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND organization_id = ? AND is_delivered = ?", id, orgID, false).
		Update("is_delivered", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkLineDelivered is the line-level counterpart of MarkDelivered. The
// stock decrement for a line is only applied when this transition succeeds,
// which is what rules out the double-decrement.
func (r *invoiceRepository) MarkLineDelivered(ctx context.Context, orgID, lineID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.InvoiceLine{}).
		Where("id = ? AND organization_id = ? AND is_delivered = ?", lineID, orgID, false).
		Update("is_delivered", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
