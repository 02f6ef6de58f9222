package queue

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forno-digital/pizzaria-backend/internal/cashflow"
	"github.com/forno-digital/pizzaria-backend/internal/orders"
	"github.com/forno-digital/pizzaria-backend/pkg/enums"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/metrics"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

const (
	actionAccept  = "accept"
	actionDiscard = "discard"
	actionConfirm = "confirm"
)

// State is the dashboard-facing view of the queue. It is only ever mutated
// under the orchestrator's lock; Snapshot returns copies.
type State struct {
	Orders               []types.Order
	SelectedOrder        *types.Order
	SelectedOrderID      string
	IsLoading            bool
	IsProcessing         bool
	ProcessingOrderID    string
	Err                  error
	CashSummary          *types.CashFlowSnapshot
	CashSummaryErr       error
	IsCashSummaryLoading bool
}

// Orchestrator drives the order queue: refreshing it, accepting and
// discarding orders, and running the confirm-payment saga. The cash ledger
// write always happens before the status command; when the command then
// fails, the orchestrator restores the order status and appends a
// compensating entry so the day's net cash effect is zero.
type Orchestrator struct {
	repo     orders.Repository
	commands orders.CommandService
	cash     cashflow.Service
	logger   *logger.Logger
	metrics  *metrics.PaymentSagaMetrics
	now      func() time.Time

	mu    sync.Mutex
	state State
	// pendingCompensations holds ledger entries whose reversal has not been
	// confirmed yet. A failed reversal stays here; there is no second-level
	// compensation.
	pendingCompensations map[string]types.CashEntry

	wg sync.WaitGroup
}

// OrchestratorOption configures optional orchestrator behavior.
type OrchestratorOption func(*Orchestrator)

// WithMetrics attaches saga metrics.
func WithMetrics(m *metrics.PaymentSagaMetrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New wires an orchestrator over the order store, the status command service
// and the cash flow service.
func New(repo orders.Repository, commands orders.CommandService, cash cashflow.Service, logg *logger.Logger, opts ...OrchestratorOption) (*Orchestrator, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if commands == nil {
		return nil, fmt.Errorf("command service is required")
	}
	if cash == nil {
		return nil, fmt.Errorf("cash flow service is required")
	}

	o := &Orchestrator{
		repo:                 repo,
		commands:             commands,
		cash:                 cash,
		logger:               logg,
		now:                  time.Now,
		pendingCompensations: map[string]types.CashEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// apply is the single serialized mutation point for the queue state.
func (o *Orchestrator) apply(fn func(s *State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.state)
}

// Snapshot returns a copy of the current state safe for concurrent readers.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := o.state
	snapshot.Orders = append([]types.Order(nil), o.state.Orders...)
	if o.state.SelectedOrderID != "" {
		for i := range snapshot.Orders {
			if snapshot.Orders[i].ID == o.state.SelectedOrderID {
				selected := snapshot.Orders[i]
				snapshot.SelectedOrder = &selected
				break
			}
		}
	}
	if o.state.CashSummary != nil {
		summary := *o.state.CashSummary
		snapshot.CashSummary = &summary
	}
	return snapshot
}

// PendingCompensations lists ledger entries whose reversal is still owed.
func (o *Orchestrator) PendingCompensations() []types.CashEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries := make([]types.CashEntry, 0, len(o.pendingCompensations))
	for _, entry := range o.pendingCompensations {
		entries = append(entries, entry)
	}
	return entries
}

// Wait joins any in-flight background refreshes. Intended for shutdown and
// deterministic tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// SelectOrder updates the selection. An empty id clears it; an id not in the
// queue is ignored.
func (o *Orchestrator) SelectOrder(id string) {
	o.apply(func(s *State) {
		if id == "" {
			s.SelectedOrderID = ""
			return
		}
		for _, order := range s.Orders {
			if order.ID == id {
				s.SelectedOrderID = id
				return
			}
		}
	})
}

// Refresh reloads the pending orders and today's cash summary concurrently.
// Each side merges independently: one failing does not mask the other.
func (o *Orchestrator) Refresh(ctx context.Context) {
	o.apply(func(s *State) {
		s.IsLoading = true
		s.IsCashSummaryLoading = true
	})

	var g errgroup.Group
	g.Go(func() error {
		pending, err := o.repo.ListPending(ctx)
		o.apply(func(s *State) {
			s.IsLoading = false
			if err != nil {
				s.Err = err
				return
			}
			s.Err = nil
			s.Orders = pending
			reassignSelection(s)
		})
		return nil
	})
	g.Go(func() error {
		summary, err := o.cash.GetDailySummary(ctx, types.CashFlowSummaryQuery{})
		o.apply(func(s *State) {
			s.IsCashSummaryLoading = false
			if err != nil {
				s.CashSummaryErr = err
				return
			}
			s.CashSummaryErr = nil
			s.CashSummary = summary
		})
		return nil
	})
	_ = g.Wait()
}

// Accept marks the order queued upstream, then removes it locally.
func (o *Orchestrator) Accept(ctx context.Context, orderID string) error {
	return o.runCommand(ctx, actionAccept, orderID, o.commands.AcceptOrder)
}

// Discard marks the order failed upstream, then removes it locally.
func (o *Orchestrator) Discard(ctx context.Context, orderID string) error {
	return o.runCommand(ctx, actionDiscard, orderID, o.commands.DiscardOrder)
}

func (o *Orchestrator) runCommand(ctx context.Context, action, orderID string, command func(ctx context.Context, orderID string) error) error {
	o.apply(func(s *State) {
		s.IsProcessing = true
		s.ProcessingOrderID = orderID
		s.Err = nil
	})
	defer o.apply(func(s *State) {
		s.IsProcessing = false
		s.ProcessingOrderID = ""
	})

	started := o.now()
	err := command(ctx, orderID)
	o.metrics.ObserveDuration(action, o.now().Sub(started))

	if err != nil {
		o.metrics.IncFailure(action)
		o.apply(func(s *State) {
			s.Err = err
		})
		return err
	}

	o.metrics.IncSuccess(action)
	o.removeLocally(orderID)
	o.backgroundRefresh(ctx)
	return nil
}

// ConfirmPayment runs the payment saga for the order: record the payment in
// the cash ledger, then confirm the order upstream. The ledger write comes
// strictly first, and at most one confirm command is sent per attempt.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, orderID string) error {
	o.apply(func(s *State) {
		s.IsProcessing = true
		s.ProcessingOrderID = orderID
		s.Err = nil
		s.IsCashSummaryLoading = true
	})
	defer o.apply(func(s *State) {
		s.IsProcessing = false
		s.ProcessingOrderID = ""
		s.IsCashSummaryLoading = false
	})

	order, ok := o.lookup(orderID)
	if !ok {
		err := pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found in queue", orderID))
		o.apply(func(s *State) {
			s.Err = err
		})
		return err
	}
	previousStatus := order.Status

	started := o.now()
	record, err := o.cash.RecordPayment(ctx, order, order.Totals.Total)
	if err != nil {
		o.metrics.IncFailure(actionConfirm)

		var regErr *cashflow.RegistrationError
		if stderrors.As(err, &regErr) {
			// The entry landed in the ledger even though the operation
			// failed. Undo both sides: restore the status and reverse the
			// orphaned entry.
			o.restoreStatus(ctx, orderID, previousStatus)
			o.compensate(ctx, regErr.Entry)
		}

		o.apply(func(s *State) {
			s.Err = err
			s.CashSummaryErr = err
		})
		return err
	}

	o.apply(func(s *State) {
		s.CashSummary = record.Snapshot
		s.CashSummaryErr = nil
		s.IsCashSummaryLoading = false
	})

	if err := o.commands.ConfirmOrder(ctx, orderID); err != nil {
		o.metrics.IncFailure(actionConfirm)
		o.restoreStatus(ctx, orderID, previousStatus)
		o.compensate(ctx, record.Entry)
		o.apply(func(s *State) {
			s.Err = err
		})
		return err
	}

	o.metrics.ObserveDuration(actionConfirm, o.now().Sub(started))
	o.metrics.IncSuccess(actionConfirm)
	o.removeLocally(orderID)
	o.backgroundRefresh(ctx)
	return nil
}

func (o *Orchestrator) lookup(orderID string) (types.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, order := range o.state.Orders {
		if order.ID == orderID {
			return order, true
		}
	}
	return types.Order{}, false
}

func (o *Orchestrator) removeLocally(orderID string) {
	o.apply(func(s *State) {
		kept := make([]types.Order, 0, len(s.Orders))
		for _, order := range s.Orders {
			if order.ID != orderID {
				kept = append(kept, order)
			}
		}
		s.Orders = kept
		reassignSelection(s)
	})
}

// reassignSelection keeps the selection valid: a vanished selected order is
// replaced with the first remaining one.
func reassignSelection(s *State) {
	if s.SelectedOrderID == "" {
		return
	}
	for _, order := range s.Orders {
		if order.ID == s.SelectedOrderID {
			return
		}
	}
	if len(s.Orders) > 0 {
		s.SelectedOrderID = s.Orders[0].ID
		return
	}
	s.SelectedOrderID = ""
}

// restoreStatus puts the order back where it was before the saga touched it.
// A failed restore is logged but not retried; the backend keeps whatever
// status the failed command left behind.
func (o *Orchestrator) restoreStatus(ctx context.Context, orderID string, status enums.OrderStatus) {
	if err := o.commands.RestoreOrderStatus(ctx, orderID, status); err != nil && o.logger != nil {
		ctx = o.logger.WithOrderID(ctx, orderID)
		o.logger.Error(ctx, fmt.Sprintf("restore order status to %s", status), err)
	}
}

// compensate reverses a ledger entry left behind by a failed saga. The entry
// stays in the pending set until the reversal append succeeds.
func (o *Orchestrator) compensate(ctx context.Context, entry types.CashEntry) {
	o.mu.Lock()
	o.pendingCompensations[entry.ID] = entry
	o.mu.Unlock()

	if _, err := o.cash.CompensatePayment(ctx, entry); err != nil {
		o.metrics.IncCompensation("failed")
		if o.logger != nil {
			ctx = o.logger.WithEntryID(ctx, entry.ID)
			o.logger.Error(ctx, "compensating cash entry", err)
		}
		return
	}

	o.metrics.IncCompensation("ok")
	o.mu.Lock()
	delete(o.pendingCompensations, entry.ID)
	o.mu.Unlock()
}

func (o *Orchestrator) backgroundRefresh(ctx context.Context) {
	refreshCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Refresh(refreshCtx)
	}()
}
