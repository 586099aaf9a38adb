package router

import (
	"context"
	"log/slog"
	"net/http"

	"redirect_service/internal/http_server/handlers/checkout_sessions"
	"redirect_service/internal/http_server/handlers/login"
	"redirect_service/internal/http_server/handlers/redirects"
	"redirect_service/internal/http_server/handlers/settings"
	"redirect_service/internal/http_server/handlers/signup"
	"redirect_service/internal/http_server/handlers/subscription_tier"
	"redirect_service/internal/http_server/handlers/subscription_tiers"
	"redirect_service/internal/http_server/handlers/user"
	"redirect_service/internal/lib/api/apierr"
	resp "redirect_service/internal/lib/api/response"
	"redirect_service/internal/middleware/cors"
	"redirect_service/internal/middleware/identity"
	rateLimit "redirect_service/internal/middleware/ratelimit"
	"redirect_service/internal/tiers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

type Accounts interface {
	RegisterNewUser(ctx context.Context, email, pass string) (int64, error)
	Login(ctx context.Context, email, password string) (uuid.UUID, error)
}

type Storage interface {
	redirects.Lister
	redirects.Saver
	redirects.Provider
	subscriptionTier.UserTierProvider
}

type Deps struct {
	Gate     identity.Identifier
	Accounts Accounts
	Storage  Storage
	Tiers    *tiers.Cache
	Checkout checkoutSessions.Starter
	Settings settings.Settings
}

// New builds the HTTP surface. Every error response, 404 and 405 included,
// goes through the same plain-text mapping and carries the CORS header.
func New(log *slog.Logger, d Deps) *chi.Mux {
	validate := resp.NewValidator()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll)
	r.Use(middleware.StripSlashes)

	// must be set before any Route call so subrouters inherit them
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp.Error(w, r, log, apierr.NotFound())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		resp.Error(w, r, log, apierr.MethodNotAllowed())
	})

	r.With(rateLimit.Signup()).Post("/users", signup.New(log, validate, d.Accounts))
	r.With(rateLimit.Login()).Post("/logins", login.New(log, validate, d.Accounts))

	r.Route("/users/{"+identity.UserParam+"}", func(r chi.Router) {
		r.Use(identity.ResolveUser(log, d.Gate))

		r.Get("/", user.New(log))
		r.Get("/subscription_tier", subscriptionTier.New(log, d.Storage, d.Tiers))

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireSelf(log))

			r.Get("/redirects", redirects.List(log, d.Storage))
			r.Post("/redirects", redirects.Create(log, validate, d.Storage))
		})

		r.With(rateLimit.Checkout()).Post("/checkout_sessions", checkoutSessions.New(log, validate, d.Checkout))
	})

	r.With(identity.Authenticate(log, d.Gate)).
		Get("/redirects/{"+redirects.IDParam+"}", redirects.Get(log, d.Storage))

	r.Get("/subscription_tiers", subscriptionTiers.New(log, d.Tiers))
	r.Get("/settings", settings.New(log, d.Settings))

	return r
}
