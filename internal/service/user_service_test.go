package service

import (
	"context"
	"testing"

	"billing/internal/repository"
	"billing/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

func newUserService(t *testing.T) UserService {
	t.Helper()
	db := setupTestDB(t, t.Name())
	return NewUserService(repository.NewUserRepository(db), repository.NewTransactionManager(db))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	reg := RegisterRequest{
		OrganizationName: "Boutique Thiaroye",
		Username:         "admin",
		Email:            "admin@example.com",
		Password:         "secret123",
	}
	token, err := svc.Register(ctx, reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token.Token == "" {
		t.Fatal("expected a token")
	}

	login, err := svc.Login(ctx, LoginRequest{Email: reg.Email, Password: reg.Password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The token carries both identities the services need.
	parsed, err := jwt.Parse(login.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("default_super_secret_key"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] == "" || claims["org"] == "" {
		t.Fatalf("missing claims: %v", claims)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	base := RegisterRequest{
		OrganizationName: "Boutique Pikine",
		Username:         "owner",
		Email:            "owner@example.com",
		Password:         "secret123",
	}
	if _, err := svc.Register(ctx, base); err != nil {
		t.Fatalf("register: %v", err)
	}

	dup := base
	dup.OrganizationName = "Another Org"
	if _, err := svc.Register(ctx, dup); !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}

	dup = base
	dup.OrganizationName = "Another Org"
	dup.Username = "owner2"
	if _, err := svc.Register(ctx, dup); !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	dup = base
	dup.Username = "owner3"
	dup.Email = "owner3@example.com"
	if _, err := svc.Register(ctx, dup); !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict on duplicate organization, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		OrganizationName: "Boutique Rufisque",
		Username:         "cashier",
		Email:            "cashier@example.com",
		Password:         "secret123",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "cashier@example.com", Password: "wrong"}); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected rejection for bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"}); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected rejection for unknown email, got %v", err)
	}
}
