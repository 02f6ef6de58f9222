package cashflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

type fakeLedger struct {
	entries     []types.CashEntry
	appendErr   error
	snapshotErr error
	noAggregate bool
}

func (l *fakeLedger) Append(_ context.Context, entry *types.CashEntry) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *fakeLedger) DailySnapshot(_ context.Context, date string) (*types.CashFlowSnapshot, error) {
	if l.snapshotErr != nil {
		return nil, l.snapshotErr
	}
	if l.noAggregate {
		return nil, nil
	}
	day := l.entriesFor(date, date)
	if len(day) == 0 {
		return nil, nil
	}
	return BuildSnapshot(date, day), nil
}

func (l *fakeLedger) SummaryRange(_ context.Context, startDate, endDate string) (*types.CashFlowSnapshot, error) {
	entries := l.entriesFor(startDate, endDate)
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[0].EffectiveDate()
	for _, entry := range entries[1:] {
		if d := entry.EffectiveDate(); d > last {
			last = d
		}
	}
	day := l.entriesFor(last, last)
	return BuildSnapshot(last, day), nil
}

func (l *fakeLedger) entriesFor(startDate, endDate string) []types.CashEntry {
	var out []types.CashEntry
	for _, entry := range l.entries {
		d := entry.EffectiveDate()
		if startDate != "" && d < startDate {
			continue
		}
		if endDate != "" && d > endDate {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// passthroughUnitOfWork mimics the HTTP unit of work: no atomicity.
type passthroughUnitOfWork struct {
	ledger Ledger
}

func (u *passthroughUnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, ledger Ledger) error) error {
	return fn(ctx, u.ledger)
}

func (u *passthroughUnitOfWork) Atomic() bool { return false }

type recordingPublisher struct {
	published []types.CashEntry
	err       error
}

func (p *recordingPublisher) PublishEntry(_ context.Context, entry types.CashEntry) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, entry)
	return nil
}

var serviceTestClock = func() time.Time {
	return time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T, ledger *fakeLedger, opts ...ServiceOption) Service {
	t.Helper()
	cfg := config.CashFlowConfig{DefaultPaymentMethod: "cash"}
	opts = append(opts, WithServiceClock(serviceTestClock))
	svc, err := NewService(ledger, &passthroughUnitOfWork{ledger: ledger}, cfg, nil, opts...)
	require.NoError(t, err)
	return svc
}

func testOrder(metadata map[string]any) types.Order {
	return types.Order{
		ID:       "order-1",
		Status:   enums.OrderStatusQueued,
		Totals:   types.CartTotals{Total: decimal.NewFromInt(80), Count: 2},
		Metadata: metadata,
	}
}

func TestRecordPaymentResolvesMethodAndEffectiveDate(t *testing.T) {
	ledger := &fakeLedger{}
	publisher := &recordingPublisher{}
	svc := newTestService(t, ledger, WithPublisher(publisher))

	order := testOrder(map[string]any{
		"paymentMethod": "PIX",
		"effectiveAt":   "2026-08-29T23:55:00Z",
	})

	record, err := svc.RecordPayment(context.Background(), order, decimal.NewFromInt(80))
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentMethodPix, record.Entry.PaymentMethod)
	assert.Equal(t, "2026-08-29", record.Entry.EffectiveDate())
	assert.Equal(t, enums.CashOperationInflow, record.Entry.Operation)
	assert.False(t, record.DegradedSnapshot)

	require.NotNil(t, record.Snapshot)
	assert.Equal(t, "2026-08-29", record.Snapshot.Date)
	assert.True(t, record.Snapshot.TotalInflow.Equal(decimal.NewFromInt(80)))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, record.Entry.ID, publisher.published[0].ID)
}

func TestRecordPaymentUnknownMethodFallsBackToDefault(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(t, ledger)

	order := testOrder(map[string]any{"paymentMethod": "cowrie-shells"})

	record, err := svc.RecordPayment(context.Background(), order, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCash, record.Entry.PaymentMethod)
	// No effectiveAt hint: the accounting date is the recording date.
	assert.Equal(t, "2026-08-30", record.Entry.EffectiveDate())
}

func TestRecordPaymentSynthesizesSnapshotWhenAggregateAbsent(t *testing.T) {
	ledger := &fakeLedger{noAggregate: true}
	svc := newTestService(t, ledger)

	record, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.NewFromInt(25))
	require.NoError(t, err)

	assert.True(t, record.DegradedSnapshot)
	require.NotNil(t, record.Snapshot)
	assert.True(t, record.Snapshot.TotalInflow.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, record.Entry.ID, record.Snapshot.LastEntryID)
}

func TestRecordPaymentAppendFailureIsPlainError(t *testing.T) {
	ledger := &fakeLedger{appendErr: errors.New("ledger down")}
	svc := newTestService(t, ledger)

	_, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.NewFromInt(25))
	require.Error(t, err)

	var regErr *RegistrationError
	assert.False(t, errors.As(err, &regErr), "append failure leaves no orphan to report")
	assert.Empty(t, ledger.entries)
}

func TestRecordPaymentSnapshotFailureAfterAppendIsRegistrationError(t *testing.T) {
	ledger := &fakeLedger{snapshotErr: errors.New("summary backend down")}
	svc := newTestService(t, ledger)

	_, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.NewFromInt(25))
	require.Error(t, err)

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "order-1", regErr.Entry.OrderID)
	// The orphaned entry really is in the ledger.
	require.Len(t, ledger.entries, 1)
	assert.Equal(t, regErr.Entry.ID, ledger.entries[0].ID)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, &fakeLedger{})

	_, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.Zero)
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCompensatePaymentNetsToZero(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(t, ledger)

	record, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.NewFromInt(60))
	require.NoError(t, err)

	reversal, err := svc.CompensatePayment(context.Background(), record.Entry)
	require.NoError(t, err)

	assert.Equal(t, enums.CashOperationOutflow, reversal.Operation)
	assert.True(t, reversal.Amount.Equal(record.Entry.Amount))
	assert.Equal(t, record.Entry.PaymentMethod, reversal.PaymentMethod)
	assert.Equal(t, record.Entry.EffectiveDate(), reversal.EffectiveDate())
	assert.Equal(t, record.Entry.ID, reversal.Metadata["reversal_of"])

	snapshot, err := svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{Date: record.Entry.EffectiveDate()})
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.NetChange.IsZero(), "inflow and reversal must cancel, got %s", snapshot.NetChange)
	assert.True(t, snapshot.Balance.IsZero())
}

func TestGetDailySummaryNormalizesQueries(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(t, ledger)

	_, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.NewFromInt(30))
	require.NoError(t, err)

	// Full timestamp collapses to its calendar date.
	snapshot, err := svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{Date: "2026-08-30T18:00:00Z"})
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "2026-08-30", snapshot.Date)

	// Garbage falls back to today.
	snapshot, err = svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{Date: "not-a-date at all"})
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "2026-08-30", snapshot.Date)

	// Empty query means today as well.
	snapshot, err = svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{})
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	// Unknown date yields no snapshot.
	snapshot, err = svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{Date: "1999-01-01"})
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestGetDailySummaryRangePicksLastDay(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(t, ledger)

	first := testOrder(map[string]any{"effectiveAt": "2026-08-28"})
	second := testOrder(map[string]any{"effectiveAt": "2026-08-29"})
	second.ID = "order-2"

	_, err := svc.RecordPayment(context.Background(), first, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), second, decimal.NewFromInt(20))
	require.NoError(t, err)

	snapshot, err := svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{
		StartDate: "2026-08-01",
		EndDate:   "2026-08-31",
	})
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "2026-08-29", snapshot.Date)
	assert.True(t, snapshot.TotalInflow.Equal(decimal.NewFromInt(20)))
}

func TestGetDailySummaryDateWinsOverRange(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newTestService(t, ledger)

	first := testOrder(map[string]any{"effectiveAt": "2026-08-28"})
	second := testOrder(map[string]any{"effectiveAt": "2026-08-29"})
	second.ID = "order-2"

	_, err := svc.RecordPayment(context.Background(), first, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), second, decimal.NewFromInt(20))
	require.NoError(t, err)

	snapshot, err := svc.GetDailySummary(context.Background(), types.CashFlowSummaryQuery{
		Date:      "2026-08-28",
		StartDate: "2026-08-01",
		EndDate:   "2026-08-31",
	})
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "2026-08-28", snapshot.Date)
	assert.True(t, snapshot.TotalInflow.Equal(decimal.NewFromInt(10)))
}

func TestPublisherFailureSurfacesAsRegistrationError(t *testing.T) {
	ledger := &fakeLedger{}
	publisher := &recordingPublisher{err: errors.New("topic gone")}
	svc := newTestService(t, ledger, WithPublisher(publisher))

	_, err := svc.RecordPayment(context.Background(), testOrder(nil), decimal.NewFromInt(5))
	require.Error(t, err)

	// The unit of work is not atomic, so the entry is already durable and
	// the caller must learn it needs compensating.
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "order-1", regErr.Entry.OrderID)
	require.Len(t, ledger.entries, 1)
}

func TestCompensatePaymentSurvivesPublisherFailure(t *testing.T) {
	ledger := &fakeLedger{}
	publisher := &recordingPublisher{err: errors.New("topic gone")}
	svc := newTestService(t, ledger, WithPublisher(publisher))

	entry := types.CashEntry{
		ID:            "entry-1",
		OrderID:       "order-1",
		Operation:     enums.CashOperationInflow,
		Amount:        decimal.NewFromInt(5),
		PaymentMethod: enums.PaymentMethodCash,
		RecordedAt:    types.NewTimestamp(serviceTestClock()),
		EffectiveAt:   types.NewTimestamp(serviceTestClock()),
	}
	reversal, err := svc.CompensatePayment(context.Background(), entry)
	require.NoError(t, err)
	require.NotNil(t, reversal)
	require.Len(t, ledger.entries, 1)
}
