package service

import (
	"context"
	"errors"
	"os"
	"regexp"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Username         string `json:"username" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// UserService handles account bootstrap and login. It only exists to issue
// the tenant-scoped tokens the rest of the API consumes; identity
// management beyond that is out of scope.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
}

type userService struct {
	userRepo  repository.UserRepository
	txManager repository.TransactionManager
}

func NewUserService(userRepo repository.UserRepository, txManager repository.TransactionManager) UserService {
	return &userService{userRepo: userRepo, txManager: txManager}
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)

// Register creates the organization, its first user, and the membership
// linking them, then returns a login token.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, apperror.Validation("invalid email format")
	}

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperror.Conflict("username already exists")
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	org := model.Organization{Name: req.OrganizationName}
	user := model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.CreateOrganization(txCtx, &org); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("organization %q already exists", req.OrganizationName)
			}
			return apperror.Internal("failed to create organization", err)
		}
		if err := s.userRepo.Create(txCtx, &user); err != nil {
			return apperror.Internal("failed to create user", err)
		}
		membership := model.OrganizationUser{
			OrganizationID: org.ID,
			UserID:         user.ID,
		}
		if err := s.userRepo.CreateMembership(txCtx, &membership); err != nil {
			return apperror.Internal("failed to create membership", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issueToken(user.ID.String(), org.ID.String())
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Validation("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("invalid email or password")
	}

	membership, err := s.userRepo.GetMembership(ctx, user.ID)
	if err != nil {
		return nil, apperror.Validation("user has no organization membership")
	}

	return s.issueToken(user.ID.String(), membership.OrganizationID.String())
}

func (s *userService) issueToken(userID, orgID string) (*TokenResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"org": orgID,
	})

	// Use same fallback strategy as middleware for simplicity here or get from env centrally
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}

	return &TokenResponse{Token: tokenString}, nil
}
