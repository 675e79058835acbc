package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	CreateBatch(ctx context.Context, payments []model.Payment) error
	ListByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// CreateBatch inserts the allocation's payment rows in the FIFO order the
// engine produced them.
func (r *paymentRepository) CreateBatch(ctx context.Context, payments []model.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&payments).Error
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := GetDB(ctx, r.db).
		Where("organization_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("created_at asc").
		Find(&payments).Error
	return payments, err
}

type BulkPaymentRepository interface {
	Create(ctx context.Context, bp *model.BulkPayment) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.BulkPayment, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	SetLedgerTransaction(ctx context.Context, orgID, id, txnID uuid.UUID) error
}

type bulkPaymentRepository struct {
	db *gorm.DB
}

func NewBulkPaymentRepository(db *gorm.DB) BulkPaymentRepository {
	return &bulkPaymentRepository{db: db}
}

func (r *bulkPaymentRepository) Create(ctx context.Context, bp *model.BulkPayment) error {
	return GetDB(ctx, r.db).Create(bp).Error
}

// FindByID loads a bulk payment with its split payments in the same order
// the allocator produced them. Payments of one batch share a created_at, so
// the preload orders by the invoice FIFO key instead.
func (r *bulkPaymentRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.BulkPayment, error) {
	var bp model.BulkPayment
	if err := GetDB(ctx, r.db).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.
				Select("payments.*").
				Joins("JOIN invoices ON invoices.id = payments.invoice_id").
				Order("invoices.placed_at asc, invoices.id asc")
		}).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&bp).Error; err != nil {
		return nil, err
	}
	return &bp, nil
}

// Exists checks the idempotency key across all organizations. A key that
// was consumed by another tenant can never be replayed or reused.
func (r *bulkPaymentRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.BulkPayment{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *bulkPaymentRepository) SetLedgerTransaction(ctx context.Context, orgID, id, txnID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.BulkPayment{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("ledger_transaction_id", txnID).Error
}
