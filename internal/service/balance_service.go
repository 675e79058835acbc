package service

import (
	"context"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type InvoiceBalance struct {
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	BillNumber       string          `json:"bill_number"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

type CustomerSummary struct {
	CustomerID           uuid.UUID       `json:"customer_id"`
	Name                 string          `json:"name"`
	TotalSales           decimal.Decimal `json:"total_sales"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	TotalDue             decimal.Decimal `json:"total_due"`
	CreditLimit          decimal.Decimal `json:"credit_limit"`
	CreditBalance        decimal.Decimal `json:"credit_balance"`
	PaymentProgressPct   decimal.Decimal `json:"payment_progress_pct"`
	CreditUtilizationPct decimal.Decimal `json:"credit_utilization_pct"`
}

// BalanceService derives balances from stored lines and payments. It is
// read-only: nothing here writes.
type BalanceService interface {
	GetInvoiceBalance(ctx context.Context, tenant model.TenantContext, invoiceID uuid.UUID) (InvoiceBalance, error)
	GetCustomerSummary(ctx context.Context, tenant model.TenantContext, customerID uuid.UUID) (CustomerSummary, error)
}

type balanceService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
}

func NewBalanceService(invoiceRepo repository.InvoiceRepository, customerRepo repository.CustomerRepository) BalanceService {
	return &balanceService{invoiceRepo: invoiceRepo, customerRepo: customerRepo}
}

var oneHundred = decimal.NewFromInt(100)

// ComputeInvoiceBalance sums the invoice's lines and payments with exact
// decimal arithmetic. A negative remaining balance means the stored data
// already violates the paid-never-exceeds-sold invariant, so it is raised
// as a data-integrity error instead of being clamped.
func ComputeInvoiceBalance(inv *model.Invoice) (InvoiceBalance, error) {
	totalSales := decimal.Zero
	for i := range inv.Lines {
		totalSales = totalSales.Add(inv.Lines[i].Total())
	}

	totalPaid := decimal.Zero
	for i := range inv.Payments {
		totalPaid = totalPaid.Add(inv.Payments[i].Amount)
	}

	remaining := totalSales.Sub(totalPaid)
	if remaining.IsNegative() {
		return InvoiceBalance{}, apperror.Integrity(
			"invoice %s: total paid %s exceeds total sales %s",
			inv.BillNumber, totalPaid.String(), totalSales.String(),
		)
	}

	return InvoiceBalance{
		InvoiceID:        inv.ID,
		BillNumber:       inv.BillNumber,
		TotalSales:       totalSales,
		TotalPaid:        totalPaid,
		RemainingBalance: remaining,
	}, nil
}

func (s *balanceService) GetInvoiceBalance(ctx context.Context, tenant model.TenantContext, invoiceID uuid.UUID) (InvoiceBalance, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, tenant.OrganizationID, invoiceID)
	if err != nil {
		return InvoiceBalance{}, mapRepoErr(err, "invoice")
	}
	return ComputeInvoiceBalance(invoice)
}

// GetCustomerSummary aggregates per-invoice balances across the customer's
// non-proforma invoices. It sums the exact same per-invoice figures
// GetInvoiceBalance reports, which keeps the aggregate consistent with them
// by construction.
func (s *balanceService) GetCustomerSummary(ctx context.Context, tenant model.TenantContext, customerID uuid.UUID) (CustomerSummary, error) {
	customer, err := s.customerRepo.FindByID(ctx, tenant.OrganizationID, customerID)
	if err != nil {
		return CustomerSummary{}, mapRepoErr(err, "customer")
	}

	invoices, err := s.invoiceRepo.ListByCustomer(ctx, tenant.OrganizationID, customerID)
	if err != nil {
		return CustomerSummary{}, mapRepoErr(err, "invoices")
	}

	totalSales := decimal.Zero
	totalPaid := decimal.Zero
	for i := range invoices {
		if invoices[i].IsProforma {
			continue
		}
		balance, err := ComputeInvoiceBalance(&invoices[i])
		if err != nil {
			return CustomerSummary{}, err
		}
		totalSales = totalSales.Add(balance.TotalSales)
		totalPaid = totalPaid.Add(balance.TotalPaid)
	}
	totalDue := totalSales.Sub(totalPaid)

	// With no sales the customer is vacuously fully paid.
	progress := oneHundred
	if totalSales.IsPositive() {
		progress = totalPaid.Mul(oneHundred).DivRound(totalSales, 1)
	}

	utilization := decimal.Zero
	if customer.CreditLimit.IsPositive() {
		utilization = totalDue.Mul(oneHundred).DivRound(customer.CreditLimit, 1)
	}

	return CustomerSummary{
		CustomerID:           customer.ID,
		Name:                 customer.Name,
		TotalSales:           totalSales,
		TotalPaid:            totalPaid,
		TotalDue:             totalDue,
		CreditLimit:          customer.CreditLimit,
		CreditBalance:        customer.CreditBalance,
		PaymentProgressPct:   progress,
		CreditUtilizationPct: utilization,
	}, nil
}
