package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"
	"billing/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type InvoiceLineRequest struct {
	StockLotID string          `json:"stock_lot_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price" binding:"required"`
}

type CreateInvoiceRequest struct {
	CustomerID string               `json:"customer_id" binding:"required"`
	IsProforma bool                 `json:"is_proforma"`
	Lines      []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type InvoiceResponse struct {
	ID               uuid.UUID       `json:"id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	BillNumber       string          `json:"bill_number"`
	PlacedAt         string          `json:"placed_at"`
	IsDelivered      bool            `json:"is_delivered"`
	IsProforma       bool            `json:"is_proforma"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Lines            []model.InvoiceLine `json:"lines,omitempty"`
}

type ListInvoicesFilter struct {
	CustomerID  *uuid.UUID
	IsDelivered *bool
	IsProforma  *bool
	Page        int
	Limit       int
}

// InvoiceService covers the tenant-facing invoice flows: creation with
// lines, and listing with derived balances. Creating an invoice never
// touches stock — delivery is the only decrement site.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, tenant model.TenantContext, req CreateInvoiceRequest) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, tenant model.TenantContext, filter ListInvoicesFilter) ([]InvoiceResponse, int64, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	stockRepo    repository.StockRepository
	txManager    repository.TransactionManager
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	stockRepo repository.StockRepository,
	txManager repository.TransactionManager,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		stockRepo:    stockRepo,
		txManager:    txManager,
	}
}

// generateBillNumber builds a human-readable bill reference.
func generateBillNumber() string {
	return fmt.Sprintf("FAC-%s-%s",
		time.Now().Format("20060102"),
		strings.ToUpper(uuid.NewString()[:8]))
}

func (s *invoiceService) CreateInvoice(ctx context.Context, tenant model.TenantContext, req CreateInvoiceRequest) (InvoiceResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return InvoiceResponse{}, apperror.Validation("invalid customer_id: %v", err)
	}

	lines := make([]model.InvoiceLine, 0, len(req.Lines))
	lotIDs := make([]uuid.UUID, 0, len(req.Lines))
	for i, lr := range req.Lines {
		lotID, err := uuid.Parse(lr.StockLotID)
		if err != nil {
			return InvoiceResponse{}, apperror.Validation("line %d: invalid stock_lot_id: %v", i, err)
		}
		if lr.Quantity <= 0 {
			return InvoiceResponse{}, apperror.Validation("line %d: quantity must be positive", i)
		}
		if lr.UnitPrice.IsNegative() {
			return InvoiceResponse{}, apperror.Validation("line %d: unit_price must not be negative", i)
		}
		lines = append(lines, model.InvoiceLine{
			OrganizationID: tenant.OrganizationID,
			StockLotID:     lotID,
			Quantity:       lr.Quantity,
			UnitPrice:      lr.UnitPrice,
		})
		lotIDs = append(lotIDs, lotID)
	}

	invoice := model.Invoice{
		OrganizationID: tenant.OrganizationID,
		CustomerID:     customerID,
		BillNumber:     generateBillNumber(),
		IsProforma:     req.IsProforma,
		CreatedBy:      tenant.UserID,
		Lines:          lines,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.customerRepo.FindByID(txCtx, tenant.OrganizationID, customerID); err != nil {
			return mapRepoErr(err, "customer")
		}
		for _, lotID := range lotIDs {
			if _, err := s.stockRepo.FindLotByID(txCtx, tenant.OrganizationID, lotID); err != nil {
				return mapRepoErr(err, "stock lot")
			}
		}
		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return apperror.Internal("failed to create invoice", err)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return toInvoiceResponse(&invoice)
}

func (s *invoiceService) ListInvoices(ctx context.Context, tenant model.TenantContext, filter ListInvoicesFilter) ([]InvoiceResponse, int64, error) {
	window := pagination.Normalize(filter.Page, filter.Limit)

	invoices, total, err := s.invoiceRepo.List(ctx, tenant.OrganizationID, repository.InvoiceFilter{
		CustomerID:  filter.CustomerID,
		IsDelivered: filter.IsDelivered,
		IsProforma:  filter.IsProforma,
	}, window.Page, window.Limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list invoices", err)
	}

	res := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		ir, err := toInvoiceResponse(&invoices[i])
		if err != nil {
			return nil, 0, err
		}
		res = append(res, ir)
	}
	return res, total, nil
}

func toInvoiceResponse(inv *model.Invoice) (InvoiceResponse, error) {
	balance, err := ComputeInvoiceBalance(inv)
	if err != nil {
		return InvoiceResponse{}, err
	}
	return InvoiceResponse{
		ID:               inv.ID,
		CustomerID:       inv.CustomerID,
		BillNumber:       inv.BillNumber,
		PlacedAt:         inv.PlacedAt.Format("2006-01-02T15:04:05Z07:00"),
		IsDelivered:      inv.IsDelivered,
		IsProforma:       inv.IsProforma,
		TotalSales:       balance.TotalSales,
		TotalPaid:        balance.TotalPaid,
		RemainingBalance: balance.RemainingBalance,
		Lines:            inv.Lines,
	}, nil
}
