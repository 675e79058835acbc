package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerTransaction kind tags. The record is a tagged variant dispatched on
// Kind — deposits add to the running balance, withdrawals subtract.
const (
	LedgerDeposit    = "deposit"
	LedgerWithdrawal = "withdrawal"
)

// ValidLedgerKind reports whether k is a known transaction kind.
func ValidLedgerKind(k string) bool {
	return k == LedgerDeposit || k == LedgerWithdrawal
}

// CashRegister is a named cash drawer within an organization. Its balance
// is derived from its transactions, never stored.
type CashRegister struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_registers_org_name,unique" json:"organization_id"`
	Name           string    `gorm:"type:varchar(30);not null;index:idx_registers_org_name,unique" json:"name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *CashRegister) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// LedgerTransaction is an append-only cash-movement record. Nothing in the
// system updates or deletes these rows.
type LedgerTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	CashRegisterID *uuid.UUID      `gorm:"type:uuid;index" json:"cash_register_id"`
	Kind           string          `gorm:"type:varchar(20);not null;index" json:"kind"` // deposit, withdrawal
	Broker         string          `gorm:"type:varchar(20);not null;default:'cashier'" json:"broker"`
	Amount         decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	Participant    string          `gorm:"type:varchar(100);not null" json:"participant"`
	Reason         string          `gorm:"type:varchar(255);not null" json:"reason"`
	RecordedBy     uuid.UUID       `gorm:"type:uuid" json:"recorded_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (t *LedgerTransaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Signed returns the amount with the sign implied by the kind tag.
func (t *LedgerTransaction) Signed() decimal.Decimal {
	if t.Kind == LedgerWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}
