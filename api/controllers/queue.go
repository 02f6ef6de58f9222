package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forno-digital/pizzaria-backend/api/responses"
	"github.com/forno-digital/pizzaria-backend/api/validators"
	"github.com/forno-digital/pizzaria-backend/internal/queue"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

type queueView struct {
	Orders               []types.Order           `json:"orders"`
	SelectedOrder        *types.Order            `json:"selectedOrder,omitempty"`
	SelectedOrderID      string                  `json:"selectedOrderId,omitempty"`
	IsLoading            bool                    `json:"isLoading"`
	IsProcessing         bool                    `json:"isProcessing"`
	ProcessingOrderID    string                  `json:"processingOrderId,omitempty"`
	Error                string                  `json:"error,omitempty"`
	CashSummary          *types.CashFlowSnapshot `json:"cashSummary,omitempty"`
	CashSummaryError     string                  `json:"cashSummaryError,omitempty"`
	IsCashSummaryLoading bool                    `json:"isCashSummaryLoading"`
}

func viewFromState(state queue.State) queueView {
	view := queueView{
		Orders:               state.Orders,
		SelectedOrder:        state.SelectedOrder,
		SelectedOrderID:      state.SelectedOrderID,
		IsLoading:            state.IsLoading,
		IsProcessing:         state.IsProcessing,
		ProcessingOrderID:    state.ProcessingOrderID,
		CashSummary:          state.CashSummary,
		IsCashSummaryLoading: state.IsCashSummaryLoading,
	}
	if view.Orders == nil {
		view.Orders = []types.Order{}
	}
	if state.Err != nil {
		view.Error = state.Err.Error()
	}
	if state.CashSummaryErr != nil {
		view.CashSummaryError = state.CashSummaryErr.Error()
	}
	return view
}

// QueueSnapshot returns the current queue state without touching the backend.
func QueueSnapshot(orch *queue.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue unavailable"))
			return
		}
		responses.WriteSuccess(w, viewFromState(orch.Snapshot()))
	}
}

// QueueRefresh reloads the pending orders and the day's cash summary, then
// returns the resulting state.
func QueueRefresh(orch *queue.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue unavailable"))
			return
		}
		orch.Refresh(r.Context())
		responses.WriteSuccess(w, viewFromState(orch.Snapshot()))
	}
}

type selectOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// QueueSelect marks an order as the one shown in the detail pane.
func QueueSelect(orch *queue.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue unavailable"))
			return
		}

		var body selectOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orch.SelectOrder(strings.TrimSpace(body.OrderID))
		responses.WriteSuccess(w, viewFromState(orch.Snapshot()))
	}
}

// QueueAccept moves an order into preparation.
func QueueAccept(orch *queue.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return queueAction(orch, logg, (*queue.Orchestrator).Accept)
}

// QueueDiscard removes an order from the queue without payment.
func QueueDiscard(orch *queue.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return queueAction(orch, logg, (*queue.Orchestrator).Discard)
}

// QueueConfirm runs the confirm-payment saga for an order.
func QueueConfirm(orch *queue.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return queueAction(orch, logg, (*queue.Orchestrator).ConfirmPayment)
}

func queueAction(orch *queue.Orchestrator, logg *logger.Logger, action func(*queue.Orchestrator, context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue unavailable"))
			return
		}

		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}

		if err := action(orch, r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewFromState(orch.Snapshot()))
	}
}
