package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"billing/internal/database"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A single connection serializes transactions the way row locks do on
	// postgres, so concurrent-allocation tests behave deterministically.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testEnv bundles the whole service graph over one in-memory database.
type testEnv struct {
	db     *gorm.DB
	tenant model.TenantContext

	customers   CustomerService
	invoices    InvoiceService
	balances    BalanceService
	allocations AllocationService
	fulfillment FulfillmentService
	stock       StockService
	ledger      LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t, t.Name())

	txManager := repository.NewTransactionManager(db)
	customerRepo := repository.NewCustomerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	bulkRepo := repository.NewBulkPaymentRepository(db)
	stockRepo := repository.NewStockRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	return &testEnv{
		db: db,
		tenant: model.TenantContext{
			OrganizationID: mustSeedOrg(t, db, "Test Org"),
			UserID:         mustSeedUser(t, db),
		},
		customers:   NewCustomerService(customerRepo),
		invoices:    NewInvoiceService(invoiceRepo, customerRepo, stockRepo, txManager),
		balances:    NewBalanceService(invoiceRepo, customerRepo),
		allocations: NewAllocationService(customerRepo, invoiceRepo, paymentRepo, bulkRepo, ledgerRepo, txManager, nil),
		fulfillment: NewFulfillmentService(invoiceRepo, stockRepo, txManager, nil),
		stock:       NewStockService(stockRepo, txManager),
		ledger:      NewLedgerService(ledgerRepo, txManager, nil),
	}
}

// secondTenant creates another organization sharing the same database.
func (e *testEnv) secondTenant(t *testing.T) model.TenantContext {
	t.Helper()
	return model.TenantContext{
		OrganizationID: mustSeedOrg(t, e.db, "Other Org"),
		UserID:         mustSeedUser(t, e.db),
	}
}

func mustSeedOrg(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	org := model.Organization{Name: name}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return org.ID
}

func mustSeedUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := model.User{
		Username: fmt.Sprintf("user-%d", time.Now().UnixNano()),
		Email:    fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()),
		Password: "hash",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func (e *testEnv) seedCustomer(t *testing.T, name, creditLimit string) *model.Customer {
	t.Helper()
	customer := model.Customer{
		OrganizationID: e.tenant.OrganizationID,
		Name:           name,
		CreditLimit:    dec(creditLimit),
	}
	if err := e.db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return &customer
}

func (e *testEnv) seedLot(t *testing.T, itemName string, quantity int) *model.StockLot {
	t.Helper()
	item := model.Item{OrganizationID: e.tenant.OrganizationID, Name: itemName}
	if err := e.db.Create(&item).Error; err != nil {
		t.Fatalf("seed item %s: %v", itemName, err)
	}
	lot := model.StockLot{
		OrganizationID: e.tenant.OrganizationID,
		ItemID:         item.ID,
		BatchNumber:    "B-" + itemName,
		PurchasePrice:  dec("5"),
		SalePrice:      dec("10"),
		Quantity:       quantity,
		ReceivedAt:     time.Now(),
	}
	if err := e.db.Create(&lot).Error; err != nil {
		t.Fatalf("seed lot %s: %v", itemName, err)
	}
	return &lot
}

// seedInvoice creates a one-line invoice worth quantity * unitPrice,
// placed at the given time so ordering tests can control FIFO position.
func (e *testEnv) seedInvoice(t *testing.T, customer *model.Customer, lot *model.StockLot, quantity int, unitPrice string, placedAt time.Time) *model.Invoice {
	t.Helper()
	invoice := model.Invoice{
		OrganizationID: e.tenant.OrganizationID,
		CustomerID:     customer.ID,
		BillNumber:     fmt.Sprintf("FAC-%d", placedAt.UnixNano()),
		PlacedAt:       placedAt,
		CreatedBy:      e.tenant.UserID,
		Lines: []model.InvoiceLine{{
			OrganizationID: e.tenant.OrganizationID,
			StockLotID:     lot.ID,
			Quantity:       quantity,
			UnitPrice:      dec(unitPrice),
		}},
	}
	if err := e.db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return &invoice
}

func (e *testEnv) invoiceRemaining(t *testing.T, invoiceID uuid.UUID) decimal.Decimal {
	t.Helper()
	balance, err := e.balances.GetInvoiceBalance(context.Background(), e.tenant, invoiceID)
	if err != nil {
		t.Fatalf("invoice balance: %v", err)
	}
	return balance.RemainingBalance
}

func (e *testEnv) customerCredit(t *testing.T, customerID uuid.UUID) decimal.Decimal {
	t.Helper()
	var customer model.Customer
	if err := e.db.First(&customer, "id = ?", customerID).Error; err != nil {
		t.Fatalf("reload customer: %v", err)
	}
	return customer.CreditBalance
}

func (e *testEnv) lotQuantity(t *testing.T, lotID uuid.UUID) int {
	t.Helper()
	var lot model.StockLot
	if err := e.db.First(&lot, "id = ?", lotID).Error; err != nil {
		t.Fatalf("reload lot: %v", err)
	}
	return lot.Quantity
}

func (e *testEnv) count(t *testing.T, value interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(value).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecEqual(t *testing.T, want, got decimal.Decimal, label string) {
	t.Helper()
	if !want.Equal(got) {
		t.Fatalf("%s: want %s got %s", label, want.String(), got.String())
	}
}
