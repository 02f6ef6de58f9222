package controllers

import (
	"net/http"

	"github.com/forno-digital/pizzaria-backend/api/responses"
	"github.com/forno-digital/pizzaria-backend/api/validators"
	"github.com/forno-digital/pizzaria-backend/internal/auth"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
)

// AdminAuthLogin wires the counter login endpoint into the HTTP layer.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
