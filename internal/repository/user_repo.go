package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	CreateOrganization(ctx context.Context, org *model.Organization) error
	CreateMembership(ctx context.Context, membership *model.OrganizationUser) error
	GetMembership(ctx context.Context, userID uuid.UUID) (*model.OrganizationUser, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return GetDB(ctx, r.db).Create(org).Error
}

func (r *userRepository) CreateMembership(ctx context.Context, membership *model.OrganizationUser) error {
	return GetDB(ctx, r.db).Create(membership).Error
}

// GetMembership returns the user's organization membership. One membership
// per user is assumed; organization switching is not modeled.
func (r *userRepository) GetMembership(ctx context.Context, userID uuid.UUID) (*model.OrganizationUser, error) {
	var membership model.OrganizationUser
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}
