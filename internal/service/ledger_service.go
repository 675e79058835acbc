package service

import (
	"context"
	"errors"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"
	"billing/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type RecordTransactionRequest struct {
	Kind           string          `json:"kind" binding:"required,oneof=deposit withdrawal"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Participant    string          `json:"participant" binding:"required"`
	Reason         string          `json:"reason" binding:"required"`
	Broker         string          `json:"broker"`
	CashRegisterID *uuid.UUID      `json:"cash_register_id"`
}

type LedgerTransactionResponse struct {
	ID             uuid.UUID       `json:"id"`
	Kind           string          `json:"kind"`
	Broker         string          `json:"broker"`
	Amount         decimal.Decimal `json:"amount"`
	Participant    string          `json:"participant"`
	Reason         string          `json:"reason"`
	CashRegisterID *uuid.UUID      `json:"cash_register_id"`
	CreatedAt      string          `json:"created_at"`
}

type CreateRegisterRequest struct {
	Name string `json:"name" binding:"required"`
}

// LedgerService appends cash-movement records and derives running
// balances. The ledger is append-only: no update or delete exists.
type LedgerService interface {
	RecordTransaction(ctx context.Context, tenant model.TenantContext, req RecordTransactionRequest) (uuid.UUID, error)
	ListTransactions(ctx context.Context, tenant model.TenantContext, registerID *uuid.UUID, page, limit int) ([]LedgerTransactionResponse, int64, error)
	GetBalance(ctx context.Context, tenant model.TenantContext, registerID *uuid.UUID) (decimal.Decimal, error)
	CreateRegister(ctx context.Context, tenant model.TenantContext, req CreateRegisterRequest) (*model.CashRegister, error)
	ListRegisters(ctx context.Context, tenant model.TenantContext) ([]model.CashRegister, error)
}

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
	txManager  repository.TransactionManager
	events     EventPublisher
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, txManager repository.TransactionManager, events EventPublisher) LedgerService {
	return &ledgerService{ledgerRepo: ledgerRepo, txManager: txManager, events: events}
}

func (s *ledgerService) RecordTransaction(ctx context.Context, tenant model.TenantContext, req RecordTransactionRequest) (uuid.UUID, error) {
	if !model.ValidLedgerKind(req.Kind) {
		return uuid.Nil, apperror.Validation("kind must be deposit or withdrawal, got %q", req.Kind)
	}
	if !req.Amount.IsPositive() {
		return uuid.Nil, apperror.Validation("amount must be positive, got %s", req.Amount.String())
	}
	if req.Participant == "" || req.Reason == "" {
		return uuid.Nil, apperror.Validation("participant and reason are required")
	}
	broker := req.Broker
	if broker == "" {
		broker = model.BrokerCashier
	}
	if !model.ValidBroker(broker) {
		return uuid.Nil, apperror.Validation("unknown payment broker %q", broker)
	}

	txn := &model.LedgerTransaction{
		OrganizationID: tenant.OrganizationID,
		CashRegisterID: req.CashRegisterID,
		Kind:           req.Kind,
		Broker:         broker,
		Amount:         req.Amount,
		Participant:    req.Participant,
		Reason:         req.Reason,
		RecordedBy:     tenant.UserID,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.CashRegisterID != nil {
			if _, err := s.ledgerRepo.FindRegisterByID(txCtx, tenant.OrganizationID, *req.CashRegisterID); err != nil {
				return mapRepoErr(err, "cash register")
			}
		}
		if err := s.ledgerRepo.Create(txCtx, txn); err != nil {
			return apperror.Internal("failed to record ledger transaction", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	publish(s.events, tenant.OrganizationID, "ledger.recorded", txn)
	return txn.ID, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, tenant model.TenantContext, registerID *uuid.UUID, page, limit int) ([]LedgerTransactionResponse, int64, error) {
	window := pagination.Normalize(page, limit)
	txns, total, err := s.ledgerRepo.List(ctx, tenant.OrganizationID, registerID, window.Page, window.Limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list ledger transactions", err)
	}

	res := make([]LedgerTransactionResponse, 0, len(txns))
	for i := range txns {
		res = append(res, LedgerTransactionResponse{
			ID:             txns[i].ID,
			Kind:           txns[i].Kind,
			Broker:         txns[i].Broker,
			Amount:         txns[i].Amount,
			Participant:    txns[i].Participant,
			Reason:         txns[i].Reason,
			CashRegisterID: txns[i].CashRegisterID,
			CreatedAt:      txns[i].CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return res, total, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, tenant model.TenantContext, registerID *uuid.UUID) (decimal.Decimal, error) {
	if registerID != nil {
		if _, err := s.ledgerRepo.FindRegisterByID(ctx, tenant.OrganizationID, *registerID); err != nil {
			return decimal.Zero, mapRepoErr(err, "cash register")
		}
	}
	balance, err := s.ledgerRepo.Balance(ctx, tenant.OrganizationID, registerID)
	if err != nil {
		return decimal.Zero, apperror.Internal("failed to compute ledger balance", err)
	}
	return balance, nil
}

func (s *ledgerService) CreateRegister(ctx context.Context, tenant model.TenantContext, req CreateRegisterRequest) (*model.CashRegister, error) {
	register := &model.CashRegister{
		OrganizationID: tenant.OrganizationID,
		Name:           req.Name,
	}
	if err := s.ledgerRepo.CreateRegister(ctx, register); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("cash register %q already exists", req.Name)
		}
		return nil, apperror.Internal("failed to create cash register", err)
	}
	return register, nil
}

func (s *ledgerService) ListRegisters(ctx context.Context, tenant model.TenantContext) ([]model.CashRegister, error) {
	registers, err := s.ledgerRepo.ListRegisters(ctx, tenant.OrganizationID)
	if err != nil {
		return nil, apperror.Internal("failed to list cash registers", err)
	}
	return registers, nil
}
