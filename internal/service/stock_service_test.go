package service

import (
	"context"
	"testing"

	"billing/internal/model"
	"billing/pkg/apperror"

	"github.com/google/uuid"
)

func TestCreateStockLotReusesItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.stock.CreateStockLot(ctx, env.tenant, CreateStockLotRequest{
		ItemName:      "paracetamol 500mg",
		CategoryName:  "pharmacy",
		SupplierName:  "Laborex",
		BatchNumber:   "B001",
		Quantity:      40,
		PurchasePrice: dec("2"),
		SalePrice:     dec("3.50"),
	})
	if err != nil {
		t.Fatalf("create first lot: %v", err)
	}
	if first.ItemName != "paracetamol 500mg" || first.Quantity != 40 {
		t.Fatalf("unexpected lot: %+v", first)
	}

	// A second batch of the same item attaches to the existing catalog
	// entries instead of creating duplicates.
	if _, err := env.stock.CreateStockLot(ctx, env.tenant, CreateStockLotRequest{
		ItemName:      "paracetamol 500mg",
		SupplierName:  "Laborex",
		BatchNumber:   "B002",
		Quantity:      25,
		PurchasePrice: dec("2"),
		SalePrice:     dec("3.50"),
	}); err != nil {
		t.Fatalf("create second lot: %v", err)
	}

	lots, total, err := env.stock.ListStockLots(ctx, env.tenant, 1, 20)
	if err != nil {
		t.Fatalf("list lots: %v", err)
	}
	if total != 2 || len(lots) != 2 {
		t.Fatalf("expected 2 lots, got %d", total)
	}

	var itemCount, supplierCount int64
	if err := env.db.Model(&model.Item{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if err := env.db.Model(&model.Supplier{}).Count(&supplierCount).Error; err != nil {
		t.Fatalf("count suppliers: %v", err)
	}
	if itemCount != 1 || supplierCount != 1 {
		t.Fatalf("expected 1 item and 1 supplier, got %d and %d", itemCount, supplierCount)
	}
}

func TestCreateStockLotValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.stock.CreateStockLot(ctx, env.tenant, CreateStockLotRequest{
		ItemName:      "broken",
		BatchNumber:   "B001",
		Quantity:      0,
		PurchasePrice: dec("2"),
		SalePrice:     dec("3"),
	})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	_, err = env.stock.CreateStockLot(ctx, env.tenant, CreateStockLotRequest{
		ItemName:      "broken",
		BatchNumber:   "B001",
		Quantity:      5,
		PurchasePrice: dec("0"),
		SalePrice:     dec("3"),
	})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
}

func TestReceiveStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lot := env.seedLot(t, "syrup bottle", 10)

	updated, err := env.stock.ReceiveStock(ctx, env.tenant, lot.ID, 15)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if updated.Quantity != 25 {
		t.Fatalf("expected quantity 25, got %d", updated.Quantity)
	}

	if _, err := env.stock.ReceiveStock(ctx, env.tenant, lot.ID, 0); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for zero delta, got %v", err)
	}
	if _, err := env.stock.ReceiveStock(ctx, env.tenant, uuid.New(), 5); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found for unknown lot, got %v", err)
	}

	// Other organizations cannot top up this lot.
	other := env.secondTenant(t)
	if _, err := env.stock.ReceiveStock(ctx, other, lot.ID, 5); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found across organizations, got %v", err)
	}
	if got := env.lotQuantity(t, lot.ID); got != 25 {
		t.Fatalf("expected quantity 25, got %d", got)
	}
}
