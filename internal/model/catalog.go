package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups catalog items for reporting.
type Category struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_categories_org_name,unique" json:"organization_id"`
	Name           string    `gorm:"type:varchar(100);not null;index:idx_categories_org_name,unique" json:"name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Supplier is the party a stock lot was purchased from.
type Supplier struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_suppliers_org_name,unique" json:"organization_id"`
	Name           string    `gorm:"type:varchar(100);not null;index:idx_suppliers_org_name,unique" json:"name"`
	PhoneNumber    string    `gorm:"type:varchar(20)" json:"phone_number"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *Supplier) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Item is a catalog entry. Stock lives in StockLot batches referencing it.
type Item struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_items_org_name,unique" json:"organization_id"`
	Name           string     `gorm:"type:varchar(255);not null;index:idx_items_org_name,unique" json:"name"`
	CategoryID     *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	AlertQuantity  int        `gorm:"type:int;not null;default:1" json:"alert_quantity"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Item) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// StockLot is a countable batch of one item. Quantity is a shared counter:
// the only sanctioned mutation is the relative update in
// StockRepository.AdjustQuantity, and a successful operation must never
// leave it negative.
type StockLot struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	ItemID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Item           Item            `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	SupplierID     *uuid.UUID      `gorm:"type:uuid;index" json:"supplier_id"`
	BatchNumber    string          `gorm:"type:varchar(15);not null" json:"batch_number"`
	PurchasePrice  decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"purchase_price"`
	SalePrice      decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"sale_price"`
	Quantity       int             `gorm:"type:int;not null" json:"quantity"`
	ReceivedAt     time.Time       `gorm:"not null" json:"received_at"`
	ExpiresAt      *time.Time      `json:"expires_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *StockLot) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsExpired reports whether the lot is past its expiration date.
func (s *StockLot) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
