package controllers

import (
	"net/http"

	"github.com/minimartapp/minimart-backend/api/responses"
	"github.com/minimartapp/minimart-backend/api/validators"
	"github.com/minimartapp/minimart-backend/internal/passwordreset"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

type resetRequestBody struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmBody struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// PasswordResetRequest mints a reset token. The response is identical for
// known and unknown emails; delivery happens out of band.
func PasswordResetRequest(svc passwordreset.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reset service unavailable"))
			return
		}

		var body resetRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.Request(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

// PasswordResetConfirm consumes the token and installs the new password.
func PasswordResetConfirm(svc passwordreset.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reset service unavailable"))
			return
		}

		var body resetConfirmBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Confirm(r.Context(), body.Token, body.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reset"})
	}
}
