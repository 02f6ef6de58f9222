package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forno-digital/pizzaria-backend/pkg/enums"
)

// CashEntry is the persisted form of one immutable ledger line. Rows are only
// ever inserted; compensations append a mirroring row instead of touching the
// original.
type CashEntry struct {
	ID            string              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string              `gorm:"column:order_id;not null;index"`
	Operation     enums.CashOperation `gorm:"column:operation;not null"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	RecordedAt    time.Time           `gorm:"column:recorded_at;not null"`
	EffectiveAt   time.Time           `gorm:"column:effective_at;not null"`
	EffectiveDate string              `gorm:"column:effective_date;not null;index"`
	Description   *string             `gorm:"column:description"`
	Metadata      json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table used by the ledger migrations.
func (CashEntry) TableName() string {
	return "cash_entries"
}
