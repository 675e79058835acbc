package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error)
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error)
	AddCredit(ctx context.Context, orgID, id uuid.UUID, amount decimal.Decimal) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByIDForUpdate locks the customer row for the rest of the transaction.
// Allocations against the same customer serialize on this lock.
func (r *customerRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := lockForUpdate(GetDB(ctx, r.db)).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int, search string) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{}).Where("organization_id = ?", orgID)
	if search != "" {
		db = db.Where("name LIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

// AddCredit applies a relative update to the stored credit balance. The
// delta is evaluated by the database so concurrent allocations cannot lose
// each other's increments.
func (r *customerRepository) AddCredit(ctx context.Context, orgID, id uuid.UUID, amount decimal.Decimal) error {
	res := GetDB(ctx, r.db).Model(&model.Customer{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("credit_balance", gorm.Expr("credit_balance + CAST(? AS DECIMAL(19,4))", amount.String()))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
