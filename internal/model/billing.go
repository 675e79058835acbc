package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionBroker enum constants — the channel a payment came through.
const (
	BrokerCashier        = "cashier"
	BrokerOrangeMoney    = "orange_money"
	BrokerMTNMobileMoney = "mtn_mobile_money"
)

// ValidBroker reports whether b is a known payment broker tag.
func ValidBroker(b string) bool {
	return b == BrokerCashier || b == BrokerOrangeMoney || b == BrokerMTNMobileMoney
}

// Invoice is a bill issued to a customer. Proforma invoices are quotes and
// are excluded from payment allocation. IsDelivered flips exactly once,
// inside the same transaction that decrements the referenced stock lots.
type Invoice struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"organization_id"`
	CustomerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	BillNumber     string        `gorm:"type:varchar(30);not null;index" json:"bill_number"`
	PlacedAt       time.Time     `gorm:"not null;index" json:"placed_at"`
	IsDelivered    bool          `gorm:"not null;default:false" json:"is_delivered"`
	IsProforma     bool          `gorm:"not null;default:false" json:"is_proforma"`
	CreatedBy      uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	Lines          []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
	Payments       []Payment     `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.PlacedAt.IsZero() {
		i.PlacedAt = time.Now()
	}
	return nil
}

// InvoiceLine is one stock-lot quantity/price entry on an invoice.
// IsDelivered guards the lot decrement: it is checked and set inside the
// delivery transaction so the decrement can never be applied twice.
type InvoiceLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	StockLotID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"stock_lot_id"`
	StockLot       StockLot        `gorm:"foreignKey:StockLotID" json:"stock_lot,omitempty"`
	Quantity       int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(19,6);not null" json:"unit_price"`
	IsDelivered    bool            `gorm:"not null;default:false" json:"is_delivered"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (l *InvoiceLine) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Total returns quantity * unit price.
func (l *InvoiceLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Payment is one monetary amount applied against one invoice, usually the
// product of a bulk payment allocation.
type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	BulkPaymentID  *uuid.UUID      `gorm:"type:uuid;index" json:"bulk_payment_id"`
	Broker         string          `gorm:"type:varchar(20);not null;default:'cashier'" json:"broker"`
	Amount         decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BulkPayment is a single customer payment event split across invoices by
// the allocation engine. Its ID is the caller-supplied idempotency key:
// re-submitting the same id replays the stored result instead of
// re-allocating.
type BulkPayment struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	CustomerID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Broker              string          `gorm:"type:varchar(20);not null;default:'cashier'" json:"broker"`
	Amount              decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	LedgerTransactionID uuid.UUID       `gorm:"type:uuid" json:"ledger_transaction_id"`
	CreatedBy           uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	Payments            []Payment       `gorm:"foreignKey:BulkPaymentID" json:"payments,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
