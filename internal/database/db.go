package database

import (
	"log"

	"billing/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate runs auto-migration for every persistent model. Exposed so tests
// can apply the same schema to their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Organization{},
		&model.OrganizationUser{},
		&model.User{},
		&model.Customer{},
		&model.Category{},
		&model.Supplier{},
		&model.Item{},
		&model.StockLot{},
		&model.Invoice{},
		&model.InvoiceLine{},
		&model.BulkPayment{},
		&model.Payment{},
		&model.CashRegister{},
		&model.LedgerTransaction{},
	)
}
