package cashflow

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/forno-digital/pizzaria-backend/pkg/db"
	"github.com/forno-digital/pizzaria-backend/pkg/db/models"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

// GormLedger persists cash entries in the local database instead of the
// HTTP backend. Aggregates are computed over the stored rows.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger builds a database-backed ledger.
func NewGormLedger(gdb *gorm.DB) (*GormLedger, error) {
	if gdb == nil {
		return nil, fmt.Errorf("gorm db is required")
	}
	return &GormLedger{db: gdb}, nil
}

func (l *GormLedger) withTx(tx *gorm.DB) *GormLedger {
	if tx == nil {
		return l
	}
	return &GormLedger{db: tx}
}

func (l *GormLedger) Append(ctx context.Context, entry *types.CashEntry) error {
	row, err := modelFromEntry(entry)
	if err != nil {
		return err
	}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cash entry")
	}
	return nil
}

func (l *GormLedger) DailySnapshot(ctx context.Context, date string) (*types.CashFlowSnapshot, error) {
	entries, err := l.listByDateRange(ctx, date, date)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return BuildSnapshot(date, entries), nil
}

func (l *GormLedger) SummaryRange(ctx context.Context, startDate, endDate string) (*types.CashFlowSnapshot, error) {
	entries, err := l.listByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// The chronologically last day in the range wins.
	last := entries[0].EffectiveDate()
	for _, entry := range entries[1:] {
		if d := entry.EffectiveDate(); d > last {
			last = d
		}
	}
	lastDay := make([]types.CashEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.EffectiveDate() == last {
			lastDay = append(lastDay, entry)
		}
	}
	return BuildSnapshot(last, lastDay), nil
}

func (l *GormLedger) listByDateRange(ctx context.Context, startDate, endDate string) ([]types.CashEntry, error) {
	var rows []models.CashEntry
	query := l.db.WithContext(ctx).Order("effective_at ASC, created_at ASC")
	if startDate != "" {
		query = query.Where("effective_date >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("effective_date <= ?", endDate)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cash entries")
	}

	entries := make([]types.CashEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entryFromModel(row))
	}
	return entries, nil
}

func modelFromEntry(entry *types.CashEntry) (*models.CashEntry, error) {
	var metadata json.RawMessage
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal entry metadata")
		}
		metadata = raw
	}

	var description *string
	if entry.Description != "" {
		d := entry.Description
		description = &d
	}

	return &models.CashEntry{
		ID:            entry.ID,
		OrderID:       entry.OrderID,
		Operation:     entry.Operation,
		Amount:        entry.Amount,
		PaymentMethod: entry.PaymentMethod,
		RecordedAt:    entry.RecordedAt.Time,
		EffectiveAt:   entry.EffectiveAt.Time,
		EffectiveDate: entry.EffectiveDate(),
		Description:   description,
		Metadata:      metadata,
	}, nil
}

func entryFromModel(row models.CashEntry) types.CashEntry {
	entry := types.CashEntry{
		ID:            row.ID,
		OrderID:       row.OrderID,
		Operation:     row.Operation,
		Amount:        row.Amount,
		PaymentMethod: row.PaymentMethod,
		RecordedAt:    types.NewTimestamp(row.RecordedAt),
		EffectiveAt:   types.NewTimestamp(row.EffectiveAt),
	}
	if row.Description != nil {
		entry.Description = *row.Description
	}
	if len(row.Metadata) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(row.Metadata, &metadata); err == nil {
			entry.Metadata = metadata
		}
	}
	return entry
}

// gormUnitOfWork runs ledger work inside a database transaction.
type gormUnitOfWork struct {
	client *db.Client
	ledger *GormLedger
}

// NewGormUnitOfWork wraps the database ledger in a transactional unit of work.
func NewGormUnitOfWork(client *db.Client, ledger *GormLedger) (UnitOfWork, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	return &gormUnitOfWork{client: client, ledger: ledger}, nil
}

func (u *gormUnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, ledger Ledger) error) error {
	return u.client.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(ctx, u.ledger.withTx(tx))
	})
}

func (u *gormUnitOfWork) Atomic() bool {
	return true
}
