package cashflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS cash_entries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  operation TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  payment_method TEXT NOT NULL,
  recorded_at DATETIME NOT NULL,
  effective_at DATETIME NOT NULL,
  effective_date TEXT NOT NULL,
  description TEXT,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, gdb.Exec(schema).Error)
	return gdb
}

func ledgerEntry(orderID, date string, amount int64, op enums.CashOperation) types.CashEntry {
	at := types.ParseTimestamp(date + "T12:00:00Z")
	return types.CashEntry{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		Operation:     op,
		Amount:        decimal.NewFromInt(amount),
		PaymentMethod: enums.PaymentMethodCash,
		RecordedAt:    types.NewTimestamp(time.Now().UTC()),
		EffectiveAt:   at,
		Metadata:      map[string]any{"source": "test"},
	}
}

func TestGormLedgerAppendAndDailySnapshot(t *testing.T) {
	gdb := setupLedgerTestDB(t)
	ledger, err := NewGormLedger(gdb)
	require.NoError(t, err)
	ctx := context.Background()

	in := ledgerEntry("order-1", "2026-08-30", 100, enums.CashOperationInflow)
	out := ledgerEntry("order-1", "2026-08-30", 40, enums.CashOperationOutflow)
	other := ledgerEntry("order-2", "2026-08-29", 15, enums.CashOperationInflow)

	require.NoError(t, ledger.Append(ctx, &in))
	require.NoError(t, ledger.Append(ctx, &out))
	require.NoError(t, ledger.Append(ctx, &other))

	snapshot, err := ledger.DailySnapshot(ctx, "2026-08-30")
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.True(t, snapshot.TotalInflow.Equal(decimal.NewFromInt(100)))
	assert.True(t, snapshot.TotalOutflow.Equal(decimal.NewFromInt(40)))
	assert.True(t, snapshot.NetChange.Equal(decimal.NewFromInt(60)))
	assert.True(t, snapshot.Balance.Equal(decimal.NewFromInt(60)))
	assert.True(t, snapshot.BreakdownByMethod[enums.PaymentMethodCash].Equal(decimal.NewFromInt(60)))

	empty, err := ledger.DailySnapshot(ctx, "2026-01-01")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGormLedgerSummaryRangePicksLastDay(t *testing.T) {
	gdb := setupLedgerTestDB(t)
	ledger, err := NewGormLedger(gdb)
	require.NoError(t, err)
	ctx := context.Background()

	early := ledgerEntry("order-1", "2026-08-27", 30, enums.CashOperationInflow)
	late := ledgerEntry("order-2", "2026-08-29", 50, enums.CashOperationInflow)
	require.NoError(t, ledger.Append(ctx, &early))
	require.NoError(t, ledger.Append(ctx, &late))

	snapshot, err := ledger.SummaryRange(ctx, "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "2026-08-29", snapshot.Date)
	assert.True(t, snapshot.TotalInflow.Equal(decimal.NewFromInt(50)))

	none, err := ledger.SummaryRange(ctx, "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGormLedgerRoundTripsMetadata(t *testing.T) {
	gdb := setupLedgerTestDB(t)
	ledger, err := NewGormLedger(gdb)
	require.NoError(t, err)
	ctx := context.Background()

	entry := ledgerEntry("order-1", "2026-08-30", 10, enums.CashOperationInflow)
	entry.Description = "payment for order order-1"
	require.NoError(t, ledger.Append(ctx, &entry))

	snapshot, err := ledger.DailySnapshot(ctx, "2026-08-30")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, entry.ID, snapshot.LastEntryID)
}

func TestGormUnitOfWorkRollsBackOnFailure(t *testing.T) {
	gdb := setupLedgerTestDB(t)
	ledger, err := NewGormLedger(gdb)
	require.NoError(t, err)

	// Exercise the transaction path through gorm directly; the db client
	// wrapper only adds connection management on top of it.
	ctx := context.Background()
	entry := ledgerEntry("order-1", "2026-08-30", 10, enums.CashOperationInflow)

	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := ledger.withTx(tx).Append(ctx, &entry); err != nil {
			return err
		}
		return errors.New("forced failure")
	})
	require.Error(t, err)

	snapshot, err := ledger.DailySnapshot(ctx, "2026-08-30")
	require.NoError(t, err)
	assert.Nil(t, snapshot, "rolled back entry must not be visible")
}
