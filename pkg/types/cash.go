package types

import (
	"github.com/shopspring/decimal"

	"github.com/forno-digital/pizzaria-backend/pkg/enums"
)

// CashEntry is one immutable line in the cash ledger. Entries are append
// only: a reversal is a new compensating entry, never a mutation or delete.
type CashEntry struct {
	ID            string              `json:"id"`
	OrderID       string              `json:"orderId"`
	Operation     enums.CashOperation `json:"operation"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	RecordedAt    Timestamp           `json:"recordedAt"`
	EffectiveAt   Timestamp           `json:"effectiveAt"`
	Description   string              `json:"description,omitempty"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
}

// EffectiveDate returns the accounting date (YYYY-MM-DD) of the entry.
func (e CashEntry) EffectiveDate() string {
	if e.EffectiveAt.IsZero() {
		return ""
	}
	return e.EffectiveAt.Format("2006-01-02")
}

// SignedAmount returns the amount negated for outflows.
func (e CashEntry) SignedAmount() decimal.Decimal {
	if e.Operation == enums.CashOperationOutflow {
		return e.Amount.Neg()
	}
	return e.Amount
}

// CashFlowSnapshot is a derived read-only aggregate over one accounting date.
// Balance equals NetChange for a single day; there is no carry-forward.
type CashFlowSnapshot struct {
	Date              string                                  `json:"date"`
	TotalInflow       decimal.Decimal                         `json:"totalInflow"`
	TotalOutflow      decimal.Decimal                         `json:"totalOutflow"`
	NetChange         decimal.Decimal                         `json:"netChange"`
	Balance           decimal.Decimal                         `json:"balance"`
	LastEntryID       string                                  `json:"lastEntryId,omitempty"`
	LastEntryAt       Timestamp                               `json:"lastEntryAt,omitempty"`
	BreakdownByMethod map[enums.PaymentMethod]decimal.Decimal `json:"breakdownByMethod,omitempty"`
}

// CashFlowSummaryQuery selects a single accounting date or a date range.
type CashFlowSummaryQuery struct {
	Date      string `json:"date,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// IsZero reports whether no date constraint is present.
func (q CashFlowSummaryQuery) IsZero() bool {
	return q.Date == "" && q.StartDate == "" && q.EndDate == ""
}
