package service

import (
	"context"
	"time"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/apperror"
	"billing/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateStockLotRequest struct {
	ItemName      string          `json:"item_name" binding:"required"`
	CategoryName  string          `json:"category_name"`
	SupplierName  string          `json:"supplier_name"`
	BatchNumber   string          `json:"batch_number" binding:"required"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" binding:"required"`
	SalePrice     decimal.Decimal `json:"sale_price" binding:"required"`
	ExpiresAt     *time.Time      `json:"expires_at"`
}

type StockLotResponse struct {
	ID          uuid.UUID       `json:"id"`
	ItemName    string          `json:"item_name"`
	BatchNumber string          `json:"batch_number"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	Quantity    int             `json:"quantity"`
	ExpiresAt   *time.Time      `json:"expires_at"`
}

// StockService covers the receiving side of inventory: creating lots and
// topping them up. Decrementing happens only through invoice delivery.
type StockService interface {
	CreateStockLot(ctx context.Context, tenant model.TenantContext, req CreateStockLotRequest) (StockLotResponse, error)
	ReceiveStock(ctx context.Context, tenant model.TenantContext, lotID uuid.UUID, quantity int) (StockLotResponse, error)
	ListStockLots(ctx context.Context, tenant model.TenantContext, page, limit int) ([]StockLotResponse, int64, error)
}

type stockService struct {
	stockRepo repository.StockRepository
	txManager repository.TransactionManager
}

func NewStockService(stockRepo repository.StockRepository, txManager repository.TransactionManager) StockService {
	return &stockService{stockRepo: stockRepo, txManager: txManager}
}

func (s *stockService) CreateStockLot(ctx context.Context, tenant model.TenantContext, req CreateStockLotRequest) (StockLotResponse, error) {
	if req.Quantity <= 0 {
		return StockLotResponse{}, apperror.Validation("quantity must be positive")
	}
	if !req.PurchasePrice.IsPositive() || !req.SalePrice.IsPositive() {
		return StockLotResponse{}, apperror.Validation("purchase_price and sale_price must be positive")
	}

	var lot model.StockLot
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var categoryID *uuid.UUID
		if req.CategoryName != "" {
			category, err := s.stockRepo.FindOrCreateCategory(txCtx, tenant.OrganizationID, req.CategoryName)
			if err != nil {
				return apperror.Internal("failed to resolve category", err)
			}
			categoryID = &category.ID
		}

		item, err := s.stockRepo.FindOrCreateItem(txCtx, tenant.OrganizationID, req.ItemName, categoryID)
		if err != nil {
			return apperror.Internal("failed to resolve item", err)
		}

		var supplierID *uuid.UUID
		if req.SupplierName != "" {
			supplier, err := s.stockRepo.FindOrCreateSupplier(txCtx, tenant.OrganizationID, req.SupplierName)
			if err != nil {
				return apperror.Internal("failed to resolve supplier", err)
			}
			supplierID = &supplier.ID
		}

		lot = model.StockLot{
			OrganizationID: tenant.OrganizationID,
			ItemID:         item.ID,
			Item:           *item,
			SupplierID:     supplierID,
			BatchNumber:    req.BatchNumber,
			PurchasePrice:  req.PurchasePrice,
			SalePrice:      req.SalePrice,
			Quantity:       req.Quantity,
			ReceivedAt:     time.Now(),
			ExpiresAt:      req.ExpiresAt,
		}
		if err := s.stockRepo.CreateLot(txCtx, &lot); err != nil {
			return apperror.Internal("failed to create stock lot", err)
		}
		return nil
	})
	if err != nil {
		return StockLotResponse{}, err
	}

	return toStockLotResponse(&lot), nil
}

// ReceiveStock tops up an existing lot through the same relative-update
// primitive delivery uses, just with a positive delta.
func (s *stockService) ReceiveStock(ctx context.Context, tenant model.TenantContext, lotID uuid.UUID, quantity int) (StockLotResponse, error) {
	if quantity <= 0 {
		return StockLotResponse{}, apperror.Validation("quantity must be positive")
	}

	var lot *model.StockLot
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.stockRepo.AdjustQuantity(txCtx, tenant.OrganizationID, lotID, quantity); err != nil {
			return mapRepoErr(err, "stock lot")
		}
		var err error
		lot, err = s.stockRepo.FindLotByID(txCtx, tenant.OrganizationID, lotID)
		if err != nil {
			return mapRepoErr(err, "stock lot")
		}
		return nil
	})
	if err != nil {
		return StockLotResponse{}, err
	}

	return toStockLotResponse(lot), nil
}

func (s *stockService) ListStockLots(ctx context.Context, tenant model.TenantContext, page, limit int) ([]StockLotResponse, int64, error) {
	window := pagination.Normalize(page, limit)

	lots, total, err := s.stockRepo.ListLots(ctx, tenant.OrganizationID, window.Page, window.Limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list stock lots", err)
	}

	res := make([]StockLotResponse, 0, len(lots))
	for i := range lots {
		res = append(res, toStockLotResponse(&lots[i]))
	}
	return res, total, nil
}

func toStockLotResponse(lot *model.StockLot) StockLotResponse {
	return StockLotResponse{
		ID:          lot.ID,
		ItemName:    lot.Item.Name,
		BatchNumber: lot.BatchNumber,
		SalePrice:   lot.SalePrice,
		Quantity:    lot.Quantity,
		ExpiresAt:   lot.ExpiresAt,
	}
}
