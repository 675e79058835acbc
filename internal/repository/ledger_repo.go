package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LedgerRepository interface {
	Create(ctx context.Context, txn *model.LedgerTransaction) error
	List(ctx context.Context, orgID uuid.UUID, registerID *uuid.UUID, page, limit int) ([]model.LedgerTransaction, int64, error)
	Balance(ctx context.Context, orgID uuid.UUID, registerID *uuid.UUID) (decimal.Decimal, error)
	CreateRegister(ctx context.Context, register *model.CashRegister) error
	FindRegisterByID(ctx context.Context, orgID, id uuid.UUID) (*model.CashRegister, error)
	ListRegisters(ctx context.Context, orgID uuid.UUID) ([]model.CashRegister, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, txn *model.LedgerTransaction) error {
	return GetDB(ctx, r.db).Create(txn).Error
}

func (r *ledgerRepository) List(ctx context.Context, orgID uuid.UUID, registerID *uuid.UUID, page, limit int) ([]model.LedgerTransaction, int64, error) {
	var txns []model.LedgerTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.LedgerTransaction{}).Where("organization_id = ?", orgID)
	if registerID != nil {
		db = db.Where("cash_register_id = ?", *registerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&txns).Error; err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

// Balance computes Σ deposits − Σ withdrawals for one organization (and
// optionally one register). The organization filter is mandatory, so the
// sum never scans other tenants' records. Amounts are summed per kind in
// Go with exact decimal arithmetic.
func (r *ledgerRepository) Balance(ctx context.Context, orgID uuid.UUID, registerID *uuid.UUID) (decimal.Decimal, error) {
	db := GetDB(ctx, r.db).Model(&model.LedgerTransaction{}).Where("organization_id = ?", orgID)
	if registerID != nil {
		db = db.Where("cash_register_id = ?", *registerID)
	}

	var rows []struct {
		Kind   string
		Amount decimal.Decimal
	}
	if err := db.Select("kind", "amount").Scan(&rows).Error; err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, row := range rows {
		if row.Kind == model.LedgerWithdrawal {
			balance = balance.Sub(row.Amount)
		} else {
			balance = balance.Add(row.Amount)
		}
	}
	return balance, nil
}

func (r *ledgerRepository) CreateRegister(ctx context.Context, register *model.CashRegister) error {
	return GetDB(ctx, r.db).Create(register).Error
}

func (r *ledgerRepository) FindRegisterByID(ctx context.Context, orgID, id uuid.UUID) (*model.CashRegister, error) {
	var register model.CashRegister
	if err := GetDB(ctx, r.db).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&register).Error; err != nil {
		return nil, err
	}
	return &register, nil
}

func (r *ledgerRepository) ListRegisters(ctx context.Context, orgID uuid.UUID) ([]model.CashRegister, error) {
	var registers []model.CashRegister
	err := GetDB(ctx, r.db).
		Where("organization_id = ?", orgID).
		Order("name asc").
		Find(&registers).Error
	return registers, err
}
