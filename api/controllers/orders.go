package controllers

import (
	"net/http"

	"github.com/forno-digital/pizzaria-backend/api/responses"
	"github.com/forno-digital/pizzaria-backend/api/validators"
	internalorders "github.com/forno-digital/pizzaria-backend/internal/orders"
	"github.com/forno-digital/pizzaria-backend/pkg/cart"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

const (
	maxNameLen  = 120
	maxNotesLen = 500
)

type createOrderResponse struct {
	Order    types.Order `json:"order"`
	Degraded bool        `json:"degraded,omitempty"`
}

// CreateOrder accepts a storefront checkout and forwards it to the orders
// backend. The payload is validated against the creation-time cart
// invariants before it leaves the process.
func CreateOrder(repo internalorders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders repository unavailable"))
			return
		}

		var body types.OrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body.Customer.Name = validators.SanitizeString(body.Customer.Name, maxNameLen)
		body.Customer.Phone = validators.SanitizeString(body.Customer.Phone, maxNameLen)
		body.Customer.Notes = validators.SanitizeString(body.Customer.Notes, maxNotesLen)
		body.Address.Label = validators.SanitizeString(body.Address.Label, maxNotesLen)
		body.Address.Complement = validators.SanitizeString(body.Address.Complement, maxNotesLen)

		if err := cart.ValidateItems(body.Items, body.Totals); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := repo.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{
			Order:    result.Order,
			Degraded: result.Degraded,
		})
	}
}
