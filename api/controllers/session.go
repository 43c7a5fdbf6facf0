package controllers

import (
	"errors"
	"net/http"

	"github.com/minimartapp/minimart-backend/api/middleware"
	"github.com/minimartapp/minimart-backend/api/responses"
	"github.com/minimartapp/minimart-backend/internal/rolefeed"
	"github.com/minimartapp/minimart-backend/internal/session"
	pkgauth "github.com/minimartapp/minimart-backend/pkg/auth"
	authsession "github.com/minimartapp/minimart-backend/pkg/auth/session"
	"github.com/minimartapp/minimart-backend/pkg/config"
	pkgerrors "github.com/minimartapp/minimart-backend/pkg/errors"
	"github.com/minimartapp/minimart-backend/pkg/logger"
)

type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	Source        string          `json:"source"`
	Record        *session.Record `json:"record,omitempty"`
	RoleRevision  uint64          `json:"role_revision"`
}

// SessionResolve restores the caller's session. A valid live token wins
// outright; an expired one still names the caller so the stored tiers can
// answer. The unauthenticated outcome is a 200 with authenticated=false.
func SessionResolve(reconciler *session.Reconciler, hub *rolefeed.Hub, checker authsession.AccessSessionChecker, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reconciler == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session reconciler unavailable"))
			return
		}

		token, err := middleware.BearerToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var live *session.Record
		var callerKey string

		if claims, err := pkgauth.ParseAccessToken(cfg, token); err == nil {
			callerKey = session.CallerKey(claims.Email)
			alive := true
			if checker != nil {
				alive, err = checker.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
			}
			if alive {
				live = &session.Record{
					UserEmail: claims.Email,
					UserID:    claims.UserID.String(),
					UserRole:  string(claims.Role),
				}
				if claims.StoreID != nil {
					live.StoreID = claims.StoreID.String()
				}
			}
		} else if claims, lerr := pkgauth.ParseAccessTokenAllowExpired(cfg, token); lerr == nil {
			callerKey = session.CallerKey(claims.Email)
		} else {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"))
			return
		}

		res, err := reconciler.Reconcile(r.Context(), live, callerKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := sessionResponse{
			Authenticated: res.Authenticated,
			Source:        string(res.Source),
			Record:        res.Record,
		}
		if hub != nil {
			body.RoleRevision = hub.Revision()
		}
		responses.WriteSuccess(w, body)
	}
}

// SessionRefreshRole forces a role re-read for the caller and broadcasts the
// result, bumping the revision even when the role is unchanged.
func SessionRefreshRole(hub *rolefeed.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role feed unavailable"))
			return
		}

		email := middleware.EmailFromContext(r.Context())
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity"))
			return
		}

		ev, err := hub.Refresh(r.Context(), session.CallerKey(email))
		if err != nil {
			if errors.Is(err, session.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no session record"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh role"))
			return
		}
		responses.WriteSuccess(w, ev)
	}
}
