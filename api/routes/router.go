package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minimartapp/minimart-backend/api/controllers"
	"github.com/minimartapp/minimart-backend/api/middleware"
	"github.com/minimartapp/minimart-backend/internal/auth"
	"github.com/minimartapp/minimart-backend/internal/invitations"
	"github.com/minimartapp/minimart-backend/internal/passwordreset"
	"github.com/minimartapp/minimart-backend/internal/products"
	"github.com/minimartapp/minimart-backend/internal/rolefeed"
	"github.com/minimartapp/minimart-backend/internal/session"
	"github.com/minimartapp/minimart-backend/internal/staff"
	"github.com/minimartapp/minimart-backend/internal/stores"
	authsession "github.com/minimartapp/minimart-backend/pkg/auth/session"
	"github.com/minimartapp/minimart-backend/pkg/config"
	"github.com/minimartapp/minimart-backend/pkg/logger"
	"github.com/minimartapp/minimart-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Auth          auth.Service
	Stores        stores.Service
	Staff         staff.Service
	Invitations   invitations.Service
	Products      products.Service
	PasswordReset passwordreset.Service
	Reconciler    *session.Reconciler
	RoleHub       *rolefeed.Hub
	Sessions      authsession.AccessSessionChecker
	Health        map[string]controllers.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	invitePolicy := middleware.NewAuthRateLimitPolicy(
		"invite",
		cfg.AuthRateLimit.InviteWindow,
		cfg.AuthRateLimit.InviteIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, svcs.Health))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/invited-login", controllers.AuthInvitedLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(invitePolicy, redisClient, logg)).Post("/verify-email", controllers.AuthVerifyEmail(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1/password-reset", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/", controllers.PasswordResetRequest(svcs.PasswordReset, logg))
		r.Post("/confirm", controllers.PasswordResetConfirm(svcs.PasswordReset, logg))
	})

	// invitation validation and acceptance are public: the invitee has no
	// account yet
	r.Route("/api/v1/invitations", func(r chi.Router) {
		r.Get("/{token}", controllers.InvitationValidate(svcs.Invitations, logg))
		r.With(middleware.AuthRateLimit(invitePolicy, redisClient, logg)).Post("/accept", controllers.InvitationAccept(svcs.Invitations, logg))
	})

	// session restoration accepts expired tokens, so it sits outside the
	// strict auth gate
	r.Get("/api/v1/session", controllers.SessionResolve(svcs.Reconciler, svcs.RoleHub, svcs.Sessions, cfg.JWT, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, svcs.Sessions, logg))

		r.Post("/session/refresh-role", controllers.SessionRefreshRole(svcs.RoleHub, logg))
		r.Post("/stores", controllers.StoreCreate(svcs.Stores, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStore(logg))

			r.Get("/stores/me", controllers.StoreProfile(svcs.Stores, logg))
			r.With(middleware.RequireStaffManagement(logg)).Put("/stores/me", controllers.StoreUpdate(svcs.Stores, logg))

			r.Route("/staff", func(r chi.Router) {
				r.Get("/", controllers.StaffList(svcs.Staff, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireStaffManagement(logg))
					r.Patch("/{memberId}/role", controllers.StaffUpdateRole(svcs.Staff, logg))
					r.Delete("/{memberId}", controllers.StaffRemove(svcs.Staff, logg))
				})
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Use(middleware.RequireStaffManagement(logg))
				r.Get("/", controllers.InvitationList(svcs.Invitations, logg))
				r.Post("/", controllers.InvitationCreate(svcs.Invitations, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductList(svcs.Products, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCatalogManagement(logg))
					r.Post("/", controllers.ProductCreate(svcs.Products, logg))
					r.Patch("/{productId}", controllers.ProductUpdate(svcs.Products, logg))
					r.Patch("/{productId}/availability", controllers.ProductSetAvailability(svcs.Products, logg))
					r.Delete("/{productId}", controllers.ProductDelete(svcs.Products, logg))
				})
			})
		})
	})

	return r
}
