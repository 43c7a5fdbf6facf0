package middleware

import (
	"net/http"

	"github.com/minimartapp/minimart-backend/api/responses"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

// RequireStaffManagement rejects callers whose role cannot manage staff or
// store settings.
func RequireStaffManagement(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleFromContext(r.Context()).CanManageStaff() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "management role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCatalogManagement rejects callers whose role cannot mutate the
// product catalog. Reads are not gated.
func RequireCatalogManagement(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleFromContext(r.Context()).CanManageCatalog() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "management role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStore rejects callers whose token carries no store. Owners who have
// not finished onboarding land here.
func RequireStore(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if StoreIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no store on session"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
