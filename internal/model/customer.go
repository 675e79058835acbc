package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is an organization-scoped buyer. CreditLimit caps the unsecured
// exposure shown on the customer summary; CreditBalance stores overpayments
// left over after a bulk payment allocation and must never go negative.
// CreditBalance is only ever mutated through relative updates
// (CustomerRepository.AddCredit), never read-modify-write.
type Customer struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string          `gorm:"type:varchar(100);not null" json:"name"`
	PhoneNumber    string          `gorm:"type:varchar(20)" json:"phone_number"`
	CreditLimit    decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0" json:"credit_limit"`
	CreditBalance  decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0" json:"credit_balance"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
