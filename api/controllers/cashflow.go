package controllers

import (
	"net/http"

	"github.com/forno-digital/pizzaria-backend/api/responses"
	"github.com/forno-digital/pizzaria-backend/api/validators"
	"github.com/forno-digital/pizzaria-backend/internal/cashflow"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

// CashFlowSummary returns the aggregated cash position for a single day or a
// date range. With no parameters the current day is used.
func CashFlowSummary(svc cashflow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash flow service unavailable"))
			return
		}

		query := types.CashFlowSummaryQuery{}
		var err error
		if query.Date, err = validators.ParseQueryDate(r, "date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.StartDate, err = validators.ParseQueryDate(r, "startDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.EndDate, err = validators.ParseQueryDate(r, "endDate"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if query.Date != "" && (query.StartDate != "" || query.EndDate != "") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date cannot be combined with startDate or endDate"))
			return
		}

		snapshot, err := svc.GetDailySummary(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
