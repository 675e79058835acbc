package service

import (
	"context"
	"errors"
	"fmt"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type AllocatePaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Broker         string          `json:"broker"`
	IdempotencyKey uuid.UUID       `json:"idempotency_key" binding:"required"`
}

type InvoiceAllocation struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type AllocationResult struct {
	BulkPaymentID       uuid.UUID           `json:"bulk_payment_id"`
	Allocations         []InvoiceAllocation `json:"allocations"`
	TotalAllocated      decimal.Decimal     `json:"total_allocated"`
	Leftover            decimal.Decimal     `json:"leftover"`
	LedgerTransactionID uuid.UUID           `json:"ledger_transaction_id"`
	AlreadyProcessed    bool                `json:"already_processed"`
}

// AllocationService distributes one bulk payment across a customer's
// outstanding invoices oldest-first and books any surplus as customer
// credit. The whole allocation commits as a single transaction.
type AllocationService interface {
	AllocatePayment(ctx context.Context, tenant model.TenantContext, customerID uuid.UUID, req AllocatePaymentRequest) (AllocationResult, error)
}

type allocationService struct {
	customerRepo repository.CustomerRepository
	invoiceRepo  repository.InvoiceRepository
	paymentRepo  repository.PaymentRepository
	bulkRepo     repository.BulkPaymentRepository
	ledgerRepo   repository.LedgerRepository
	txManager    repository.TransactionManager
	events       EventPublisher
}

func NewAllocationService(
	customerRepo repository.CustomerRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	bulkRepo repository.BulkPaymentRepository,
	ledgerRepo repository.LedgerRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) AllocationService {
	return &allocationService{
		customerRepo: customerRepo,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		bulkRepo:     bulkRepo,
		ledgerRepo:   ledgerRepo,
		txManager:    txManager,
		events:       events,
	}
}

func (s *allocationService) AllocatePayment(ctx context.Context, tenant model.TenantContext, customerID uuid.UUID, req AllocatePaymentRequest) (AllocationResult, error) {
	if req.IdempotencyKey == uuid.Nil {
		return AllocationResult{}, apperror.Validation("idempotency_key is required")
	}
	if !req.Amount.IsPositive() {
		return AllocationResult{}, apperror.Validation("amount must be positive, got %s", req.Amount.String())
	}
	broker := req.Broker
	if broker == "" {
		broker = model.BrokerCashier
	}
	if !model.ValidBroker(broker) {
		return AllocationResult{}, apperror.Validation("unknown payment broker %q", broker)
	}

	var result AllocationResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Replay check first: a key that was already processed returns the
		// stored result without touching anything.
		exists, err := s.bulkRepo.Exists(txCtx, req.IdempotencyKey)
		if err != nil {
			return apperror.Internal("failed to check idempotency key", err)
		}
		if exists {
			replayed, err := s.replay(txCtx, tenant, customerID, req)
			if err != nil {
				return err
			}
			result = replayed
			return nil
		}

		// Lock the customer row: concurrent allocations for the same
		// customer serialize here instead of double-spending balances.
		customer, err := s.customerRepo.FindByIDForUpdate(txCtx, tenant.OrganizationID, customerID)
		if err != nil {
			return mapRepoErr(err, "customer")
		}

		invoices, err := s.invoiceRepo.ListOutstandingCandidates(txCtx, tenant.OrganizationID, customerID)
		if err != nil {
			return apperror.Internal("failed to load outstanding invoices", err)
		}

		bulk := &model.BulkPayment{
			ID:             req.IdempotencyKey,
			OrganizationID: tenant.OrganizationID,
			CustomerID:     customerID,
			Broker:         broker,
			Amount:         req.Amount,
			CreatedBy:      tenant.UserID,
		}
		if err := s.bulkRepo.Create(txCtx, bulk); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("payment %s is being processed concurrently, retry to fetch its result", req.IdempotencyKey)
			}
			return apperror.Internal("failed to create bulk payment", err)
		}

		// Walk oldest-first; each invoice absorbs as much of the remaining
		// amount as its balance allows.
		remaining := req.Amount
		var payments []model.Payment
		var allocations []InvoiceAllocation
		for i := range invoices {
			if remaining.IsZero() {
				break
			}
			balance, err := ComputeInvoiceBalance(&invoices[i])
			if err != nil {
				return err
			}
			if !balance.RemainingBalance.IsPositive() {
				continue
			}

			allocate := decimal.Min(remaining, balance.RemainingBalance)
			payments = append(payments, model.Payment{
				OrganizationID: tenant.OrganizationID,
				InvoiceID:      invoices[i].ID,
				BulkPaymentID:  &bulk.ID,
				Broker:         broker,
				Amount:         allocate,
				CreatedBy:      tenant.UserID,
			})
			allocations = append(allocations, InvoiceAllocation{InvoiceID: invoices[i].ID, Amount: allocate})
			remaining = remaining.Sub(allocate)
		}

		if err := s.paymentRepo.CreateBatch(txCtx, payments); err != nil {
			return apperror.Internal("failed to create payment records", err)
		}

		// One deposit for the full received amount, leftover included.
		txn := &model.LedgerTransaction{
			OrganizationID: tenant.OrganizationID,
			Kind:           model.LedgerDeposit,
			Broker:         broker,
			Amount:         req.Amount,
			Participant:    customer.Name,
			Reason:         fmt.Sprintf("payment recovery for %s", customer.Name),
			RecordedBy:     tenant.UserID,
		}
		if err := s.ledgerRepo.Create(txCtx, txn); err != nil {
			return apperror.Internal("failed to record ledger transaction", err)
		}
		if err := s.bulkRepo.SetLedgerTransaction(txCtx, tenant.OrganizationID, bulk.ID, txn.ID); err != nil {
			return apperror.Internal("failed to link ledger transaction", err)
		}

		// Zero outstanding invoices is a success: the full amount becomes
		// stored customer credit.
		if remaining.IsPositive() {
			if err := s.customerRepo.AddCredit(txCtx, tenant.OrganizationID, customerID, remaining); err != nil {
				return apperror.Internal("failed to credit customer balance", err)
			}
		}

		result = AllocationResult{
			BulkPaymentID:       bulk.ID,
			Allocations:         allocations,
			TotalAllocated:      req.Amount.Sub(remaining),
			Leftover:            remaining,
			LedgerTransactionID: txn.ID,
		}
		return nil
	})
	if err != nil {
		return AllocationResult{}, err
	}

	if !result.AlreadyProcessed {
		publish(s.events, tenant.OrganizationID, "payment.allocated", result)
	}
	return result, nil
}

// replay rebuilds the result of a previously processed bulk payment so a
// retried request is a no-op.
func (s *allocationService) replay(ctx context.Context, tenant model.TenantContext, customerID uuid.UUID, req AllocatePaymentRequest) (AllocationResult, error) {
	bulk, err := s.bulkRepo.FindByID(ctx, tenant.OrganizationID, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AllocationResult{}, apperror.Conflict("idempotency key %s was already used by another organization", req.IdempotencyKey)
		}
		return AllocationResult{}, apperror.Internal("failed to load bulk payment", err)
	}
	if bulk.CustomerID != customerID || !bulk.Amount.Equal(req.Amount) {
		return AllocationResult{}, apperror.Conflict("idempotency key %s was already used with different parameters", req.IdempotencyKey)
	}

	totalAllocated := decimal.Zero
	allocations := make([]InvoiceAllocation, 0, len(bulk.Payments))
	for i := range bulk.Payments {
		allocations = append(allocations, InvoiceAllocation{
			InvoiceID: bulk.Payments[i].InvoiceID,
			Amount:    bulk.Payments[i].Amount,
		})
		totalAllocated = totalAllocated.Add(bulk.Payments[i].Amount)
	}

	return AllocationResult{
		BulkPaymentID:       bulk.ID,
		Allocations:         allocations,
		TotalAllocated:      totalAllocated,
		Leftover:            bulk.Amount.Sub(totalAllocated),
		LedgerTransactionID: bulk.LedgerTransactionID,
		AlreadyProcessed:    true,
	}, nil
}
