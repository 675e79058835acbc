package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"

	"github.com/google/uuid"
)

// DTOs
type DeliveredLine struct {
	LineID         uuid.UUID `json:"line_id"`
	StockLotID     uuid.UUID `json:"stock_lot_id"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
}

type DeliveryResult struct {
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	BillNumber string          `json:"bill_number"`
	Lines      []DeliveredLine `json:"lines"`
}

// FulfillmentService marks an invoice delivered and decrements the
// referenced stock lots, all inside one transaction. A shortfall on any
// line rejects the whole delivery.
type FulfillmentService interface {
	DeliverInvoice(ctx context.Context, tenant model.TenantContext, invoiceID uuid.UUID) (DeliveryResult, error)
}

type fulfillmentService struct {
	invoiceRepo repository.InvoiceRepository
	stockRepo   repository.StockRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewFulfillmentService(
	invoiceRepo repository.InvoiceRepository,
	stockRepo repository.StockRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) FulfillmentService {
	return &fulfillmentService{
		invoiceRepo: invoiceRepo,
		stockRepo:   stockRepo,
		txManager:   txManager,
		events:      events,
	}
}

func (s *fulfillmentService) DeliverInvoice(ctx context.Context, tenant model.TenantContext, invoiceID uuid.UUID) (DeliveryResult, error) {
	var result DeliveryResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, tenant.OrganizationID, invoiceID)
		if err != nil {
			return mapRepoErr(err, "invoice")
		}
		if invoice.IsDelivered {
			return apperror.Conflict("invoice %s is already delivered", invoice.BillNumber)
		}

		// Guarded transition: if another transaction delivered the invoice
		// between our read and this update, zero rows match.
		flipped, err := s.invoiceRepo.MarkDelivered(txCtx, tenant.OrganizationID, invoiceID)
		if err != nil {
			return apperror.Internal("failed to mark invoice delivered", err)
		}
		if !flipped {
			return apperror.Conflict("invoice %s is already delivered", invoice.BillNumber)
		}

		var delivered []DeliveredLine
		var shortfalls []string
		for i := range invoice.Lines {
			line := &invoice.Lines[i]

			// The line-level flag flips in the same transaction as the
			// decrement; a line that is already delivered is never
			// decremented again.
			flipped, err := s.invoiceRepo.MarkLineDelivered(txCtx, tenant.OrganizationID, line.ID)
			if err != nil {
				return apperror.Internal("failed to mark line delivered", err)
			}
			if !flipped {
				continue
			}

			lot, err := s.stockRepo.FindLotByIDForUpdate(txCtx, tenant.OrganizationID, line.StockLotID)
			if err != nil {
				return mapRepoErr(err, "stock lot")
			}

			if err := s.stockRepo.AdjustQuantity(txCtx, tenant.OrganizationID, line.StockLotID, -line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					shortfalls = append(shortfalls, fmt.Sprintf(
						"line %s: need %d, lot %s holds %d", line.ID, line.Quantity, lot.ID, lot.Quantity))
					continue
				}
				return mapRepoErr(err, "stock lot")
			}

			delivered = append(delivered, DeliveredLine{
				LineID:         line.ID,
				StockLotID:     lot.ID,
				Quantity:       line.Quantity,
				QuantityBefore: lot.Quantity,
				QuantityAfter:  lot.Quantity - line.Quantity,
			})
		}

		// Any shortfall aborts the whole delivery; the rollback undoes the
		// decrements and flag flips already staged above.
		if len(shortfalls) > 0 {
			return apperror.Conflict("insufficient stock: %s", strings.Join(shortfalls, "; "))
		}

		result = DeliveryResult{
			InvoiceID:  invoice.ID,
			BillNumber: invoice.BillNumber,
			Lines:      delivered,
		}
		return nil
	})
	if err != nil {
		return DeliveryResult{}, err
	}

	publish(s.events, tenant.OrganizationID, "invoice.delivered", result)
	return result, nil
}
