package cashflow

import (
	"github.com/shopspring/decimal"

	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

// BuildSnapshot aggregates entries of a single accounting date. The ledger
// carries no balance forward, so Balance equals NetChange.
func BuildSnapshot(date string, entries []types.CashEntry) *types.CashFlowSnapshot {
	snapshot := &types.CashFlowSnapshot{
		Date:              date,
		TotalInflow:       decimal.Zero,
		TotalOutflow:      decimal.Zero,
		NetChange:         decimal.Zero,
		Balance:           decimal.Zero,
		BreakdownByMethod: map[enums.PaymentMethod]decimal.Decimal{},
	}

	for _, entry := range entries {
		switch entry.Operation {
		case enums.CashOperationOutflow:
			snapshot.TotalOutflow = snapshot.TotalOutflow.Add(entry.Amount)
		default:
			snapshot.TotalInflow = snapshot.TotalInflow.Add(entry.Amount)
		}

		current, ok := snapshot.BreakdownByMethod[entry.PaymentMethod]
		if !ok {
			current = decimal.Zero
		}
		snapshot.BreakdownByMethod[entry.PaymentMethod] = current.Add(entry.SignedAmount())

		if snapshot.LastEntryAt.IsZero() || !entry.RecordedAt.Before(snapshot.LastEntryAt.Time) {
			snapshot.LastEntryID = entry.ID
			snapshot.LastEntryAt = entry.RecordedAt
		}
	}

	snapshot.NetChange = snapshot.TotalInflow.Sub(snapshot.TotalOutflow)
	snapshot.Balance = snapshot.NetChange
	return snapshot
}

// SingleEntrySnapshot synthesizes the snapshot a lone entry implies. Used
// when the backend cannot produce an aggregate for the entry's date.
func SingleEntrySnapshot(entry types.CashEntry) *types.CashFlowSnapshot {
	return BuildSnapshot(entry.EffectiveDate(), []types.CashEntry{entry})
}
