package repository

import (
	"context"
	"errors"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when a relative decrement would take a
// lot's quantity below zero. The guarded UPDATE simply matches no row, so
// nothing is written.
var ErrInsufficientStock = errors.New("insufficient stock")

type StockRepository interface {
	CreateLot(ctx context.Context, lot *model.StockLot) error
	FindLotByID(ctx context.Context, orgID, id uuid.UUID) (*model.StockLot, error)
	FindLotByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.StockLot, error)
	ListLots(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.StockLot, int64, error)
	AdjustQuantity(ctx context.Context, orgID, id uuid.UUID, delta int) error
	FindOrCreateItem(ctx context.Context, orgID uuid.UUID, name string, categoryID *uuid.UUID) (*model.Item, error)
	FindOrCreateCategory(ctx context.Context, orgID uuid.UUID, name string) (*model.Category, error)
	FindOrCreateSupplier(ctx context.Context, orgID uuid.UUID, name string) (*model.Supplier, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) CreateLot(ctx context.Context, lot *model.StockLot) error {
	return GetDB(ctx, r.db).Create(lot).Error
}

func (r *stockRepository) FindLotByID(ctx context.Context, orgID, id uuid.UUID) (*model.StockLot, error) {
	var lot model.StockLot
	if err := GetDB(ctx, r.db).
		Preload("Item").
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *stockRepository) FindLotByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.StockLot, error) {
	var lot model.StockLot
	if err := lockForUpdate(GetDB(ctx, r.db)).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *stockRepository) ListLots(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.StockLot, int64, error) {
	var lots []model.StockLot
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockLot{}).Where("organization_id = ?", orgID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Item").
		Order("received_at desc").Offset(offset).Limit(limit).
		Find(&lots).Error; err != nil {
		return nil, 0, err
	}

	return lots, total, nil
}

// AdjustQuantity applies a relative quantity update evaluated by the
// storage layer. The quantity + delta >= 0 guard rejects a decrement that
// would go negative: the UPDATE matches no row and ErrInsufficientStock is
// returned without touching the lot. Application code never computes the
// new quantity itself.
func (r *stockRepository) AdjustQuantity(ctx context.Context, orgID, id uuid.UUID, delta int) error {
	res := GetDB(ctx, r.db).Model(&model.StockLot{}).
		Where("id = ? AND organization_id = ? AND quantity + ? >= 0", id, orgID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing lot from a shortfall.
		var count int64
		if err := GetDB(ctx, r.db).Model(&model.StockLot{}).
			Where("id = ? AND organization_id = ?", id, orgID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *stockRepository) FindOrCreateItem(ctx context.Context, orgID uuid.UUID, name string, categoryID *uuid.UUID) (*model.Item, error) {
	var item model.Item
	err := GetDB(ctx, r.db).
		Where("organization_id = ? AND name = ?", orgID, name).
		First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	item = model.Item{OrganizationID: orgID, Name: name, CategoryID: categoryID}
	if err := GetDB(ctx, r.db).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockRepository) FindOrCreateCategory(ctx context.Context, orgID uuid.UUID, name string) (*model.Category, error) {
	var category model.Category
	err := GetDB(ctx, r.db).
		Where("organization_id = ? AND name = ?", orgID, name).
		First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	category = model.Category{OrganizationID: orgID, Name: name}
	if err := GetDB(ctx, r.db).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *stockRepository) FindOrCreateSupplier(ctx context.Context, orgID uuid.UUID, name string) (*model.Supplier, error) {
	var supplier model.Supplier
	err := GetDB(ctx, r.db).
		Where("organization_id = ? AND name = ?", orgID, name).
		First(&supplier).Error
	if err == nil {
		return &supplier, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	supplier = model.Supplier{OrganizationID: orgID, Name: name}
	if err := GetDB(ctx, r.db).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}
