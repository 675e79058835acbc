package service

import (
	"context"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"
	"billing/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateCustomerRequest struct {
	Name        string          `json:"name" binding:"required"`
	PhoneNumber string          `json:"phone_number"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type CustomerResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	PhoneNumber   string          `json:"phone_number"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, tenant model.TenantContext, req CreateCustomerRequest) (CustomerResponse, error)
	ListCustomers(ctx context.Context, tenant model.TenantContext, page, limit int, search string) ([]CustomerResponse, int64, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerService{customerRepo: customerRepo}
}

func (s *customerService) CreateCustomer(ctx context.Context, tenant model.TenantContext, req CreateCustomerRequest) (CustomerResponse, error) {
	if req.CreditLimit.IsNegative() {
		return CustomerResponse{}, apperror.Validation("credit_limit must not be negative")
	}

	customer := model.Customer{
		OrganizationID: tenant.OrganizationID,
		Name:           req.Name,
		PhoneNumber:    req.PhoneNumber,
		CreditLimit:    req.CreditLimit,
		CreditBalance:  decimal.Zero,
	}
	if err := s.customerRepo.Create(ctx, &customer); err != nil {
		return CustomerResponse{}, apperror.Internal("failed to create customer", err)
	}

	return toCustomerResponse(&customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, tenant model.TenantContext, page, limit int, search string) ([]CustomerResponse, int64, error) {
	window := pagination.Normalize(page, limit)

	customers, total, err := s.customerRepo.List(ctx, tenant.OrganizationID, window.Page, window.Limit, search)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list customers", err)
	}

	res := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		res = append(res, toCustomerResponse(&customers[i]))
	}
	return res, total, nil
}

func toCustomerResponse(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		PhoneNumber:   c.PhoneNumber,
		CreditLimit:   c.CreditLimit,
		CreditBalance: c.CreditBalance,
	}
}
