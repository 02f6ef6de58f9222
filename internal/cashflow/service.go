package cashflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/redis"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

const (
	metadataPaymentMethodKey = "paymentMethod"
	metadataEffectiveAtKey   = "effectiveAt"
	metadataReversalOfKey    = "reversal_of"
)

// Service records order payments in the cash ledger and serves the daily
// summaries derived from it.
type Service interface {
	RecordPayment(ctx context.Context, order types.Order, amount decimal.Decimal) (*PaymentRecord, error)
	CompensatePayment(ctx context.Context, entry types.CashEntry) (*types.CashEntry, error)
	GetDailySummary(ctx context.Context, query types.CashFlowSummaryQuery) (*types.CashFlowSnapshot, error)
}

// PaymentRecord is the outcome of recording a payment. DegradedSnapshot is
// set when the backend had no aggregate for the entry's date and Snapshot
// was synthesized from the entry alone.
type PaymentRecord struct {
	Entry            types.CashEntry
	Snapshot         *types.CashFlowSnapshot
	DegradedSnapshot bool
}

type service struct {
	ledger    Ledger
	uow       UnitOfWork
	publisher EventPublisher
	cache     *redis.Client
	cfg       config.CashFlowConfig
	logger    *logger.Logger
	now       func() time.Time
	newID     func() string
}

// ServiceOption configures optional service behavior.
type ServiceOption func(*service)

// WithPublisher attaches an event publisher for recorded entries.
func WithPublisher(publisher EventPublisher) ServiceOption {
	return func(s *service) {
		s.publisher = publisher
	}
}

// WithCache attaches a redis client used as summary read-through cache.
func WithCache(cache *redis.Client) ServiceOption {
	return func(s *service) {
		s.cache = cache
	}
}

// WithServiceClock overrides the clock, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the cash flow service.
func NewService(ledger Ledger, uow UnitOfWork, cfg config.CashFlowConfig, logg *logger.Logger, opts ...ServiceOption) (Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if uow == nil {
		return nil, fmt.Errorf("unit of work is required")
	}

	svc := &service{
		ledger: ledger,
		uow:    uow,
		cfg:    cfg,
		logger: logg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

func (s *service) RecordPayment(ctx context.Context, order types.Order, amount decimal.Decimal) (*PaymentRecord, error) {
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	recordedAt := s.now()
	entry := types.CashEntry{
		ID:            s.newID(),
		OrderID:       order.ID,
		Operation:     enums.CashOperationInflow,
		Amount:        amount,
		PaymentMethod: s.resolveMethod(order),
		RecordedAt:    types.NewTimestamp(recordedAt),
		EffectiveAt:   resolveEffectiveAt(order, recordedAt),
		Description:   fmt.Sprintf("payment for order %s", order.ID),
	}

	var (
		appended bool
		snapshot *types.CashFlowSnapshot
		degraded bool
	)
	err := s.uow.Run(ctx, func(ctx context.Context, ledger Ledger) error {
		if err := ledger.Append(ctx, &entry); err != nil {
			return err
		}
		appended = true

		snap, err := ledger.DailySnapshot(ctx, entry.EffectiveDate())
		if err != nil {
			return err
		}
		if snap == nil {
			// Backend has no aggregate for the date yet; the lone entry is
			// the whole day.
			snapshot = SingleEntrySnapshot(entry)
			degraded = true
		} else {
			snapshot = snap
		}

		// The event publish belongs to the registration: a lost event fails
		// the payment so the caller can compensate the appended entry.
		if s.publisher != nil {
			if err := s.publisher.PublishEntry(ctx, entry); err != nil {
				return fmt.Errorf("publish cash entry %s: %w", entry.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		if appended && !s.uow.Atomic() {
			return nil, &RegistrationError{Entry: entry, Err: err}
		}
		return nil, err
	}

	s.invalidateSummary(ctx, entry.EffectiveDate())
	return &PaymentRecord{Entry: entry, Snapshot: snapshot, DegradedSnapshot: degraded}, nil
}

func (s *service) CompensatePayment(ctx context.Context, entry types.CashEntry) (*types.CashEntry, error) {
	if entry.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	if entry.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry amount must be positive")
	}

	reversal := types.CashEntry{
		ID:            s.newID(),
		OrderID:       entry.OrderID,
		Operation:     enums.CashOperationOutflow,
		Amount:        entry.Amount,
		PaymentMethod: entry.PaymentMethod,
		RecordedAt:    types.NewTimestamp(s.now()),
		EffectiveAt:   entry.EffectiveAt,
		Description:   fmt.Sprintf("reversal of entry %s", entry.ID),
		Metadata:      map[string]any{metadataReversalOfKey: entry.ID},
	}

	err := s.uow.Run(ctx, func(ctx context.Context, ledger Ledger) error {
		return ledger.Append(ctx, &reversal)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, reversal)
	return &reversal, nil
}

func (s *service) GetDailySummary(ctx context.Context, query types.CashFlowSummaryQuery) (*types.CashFlowSnapshot, error) {
	// An explicit date wins over a range when both are given.
	if query.Date == "" && (query.StartDate != "" || query.EndDate != "") {
		var start, end string
		if query.StartDate != "" {
			start = normalizeDate(query.StartDate, s.now)
		}
		if query.EndDate != "" {
			end = normalizeDate(query.EndDate, s.now)
		}
		return s.ledger.SummaryRange(ctx, start, end)
	}

	date := normalizeDate(query.Date, s.now)

	if cached := s.cachedSnapshot(ctx, date); cached != nil {
		return cached, nil
	}

	snapshot, err := s.ledger.DailySnapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	s.storeSnapshot(ctx, date, snapshot)
	return snapshot, nil
}

func (s *service) resolveMethod(order types.Order) enums.PaymentMethod {
	if raw, ok := order.MetadataString(metadataPaymentMethodKey); ok {
		if method, err := enums.ParsePaymentMethod(raw); err == nil {
			return method
		}
		// Unknown methods are silently folded into the default.
	}
	if method, err := enums.ParsePaymentMethod(s.cfg.DefaultPaymentMethod); err == nil {
		return method
	}
	return enums.PaymentMethodCash
}

func resolveEffectiveAt(order types.Order, recordedAt time.Time) types.Timestamp {
	if raw, ok := order.MetadataString(metadataEffectiveAtKey); ok {
		if ts := types.ParseTimestamp(raw); !ts.IsZero() {
			return ts
		}
	}
	return types.NewTimestamp(recordedAt)
}

// normalizeDate accepts a calendar date as-is and coerces anything else that
// parses as a timestamp to its date; unparseable input falls back to today.
func normalizeDate(value string, now func() time.Time) string {
	if len(value) == 10 {
		return value
	}
	if value != "" {
		if ts := types.ParseTimestamp(value); !ts.IsZero() {
			return ts.Format("2006-01-02")
		}
	}
	return now().Format("2006-01-02")
}

// afterWrite handles post-reversal side effects. Reversal events are best
// effort: the reversal is already durable, and retrying the compensation to
// replay the event would double it.
func (s *service) afterWrite(ctx context.Context, entry types.CashEntry) {
	if s.publisher != nil {
		if err := s.publisher.PublishEntry(ctx, entry); err != nil && s.logger != nil {
			s.logger.Warn(ctx, fmt.Sprintf("publish cash entry %s: %v", entry.ID, err))
		}
	}
	s.invalidateSummary(ctx, entry.EffectiveDate())
}

func (s *service) invalidateSummary(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CashSummaryKey(date)); err != nil && s.logger != nil {
		s.logger.Warn(ctx, fmt.Sprintf("invalidate summary cache for %s: %v", date, err))
	}
}

func (s *service) cachedSnapshot(ctx context.Context, date string) *types.CashFlowSnapshot {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.CashSummaryKey(date))
	if err != nil || raw == "" {
		return nil
	}
	var snapshot types.CashFlowSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

func (s *service) storeSnapshot(ctx context.Context, date string, snapshot *types.CashFlowSnapshot) {
	if s.cache == nil || snapshot == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	ttl := s.cfg.SummaryCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if err := s.cache.Set(ctx, s.cache.CashSummaryKey(date), string(raw), ttl); err != nil && s.logger != nil {
		s.logger.Warn(ctx, fmt.Sprintf("cache summary for %s: %v", date, err))
	}
}
