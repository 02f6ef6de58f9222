package cashflow

import (
	"context"
	"fmt"

	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

// Ledger is the append-only cash ledger plus its derived daily aggregates.
type Ledger interface {
	Append(ctx context.Context, entry *types.CashEntry) error
	DailySnapshot(ctx context.Context, date string) (*types.CashFlowSnapshot, error)
	SummaryRange(ctx context.Context, startDate, endDate string) (*types.CashFlowSnapshot, error)
}

// UnitOfWork scopes a sequence of ledger operations. The database-backed
// implementation runs fn inside a transaction; the HTTP-backed one cannot,
// so a failure after an append leaves the appended entry behind.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, ledger Ledger) error) error
	// Atomic reports whether a failed Run is guaranteed to leave no writes.
	Atomic() bool
}

// RegistrationError signals that a cash entry was durably appended but the
// operation failed afterwards and could not be rolled back. The orphaned
// entry is carried so the caller can compensate.
type RegistrationError struct {
	Entry types.CashEntry
	Err   error
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("cash entry %s registered but operation failed: %v", e.Entry.ID, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
