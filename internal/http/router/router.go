// Package router assembles the chi router for the public API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	accountctrl "github.com/fedgate/fedgate/internal/http/controllers/account"
	healthctrl "github.com/fedgate/fedgate/internal/http/controllers/health"
	httperrors "github.com/fedgate/fedgate/internal/http/errors"
	mw "github.com/fedgate/fedgate/internal/http/middlewares"
)

// Deps are the router's inputs.
type Deps struct {
	Account  *accountctrl.Controllers
	Health   *healthctrl.Controllers
	Verifier mw.TokenVerifier

	CORSAllowedOrigins []string
}

// New builds the API router with the full middleware stack.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSAllowedOrigins),
		mw.WithMetrics(),
		mw.WithLogging(),
	)

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)

	r.Route("/api/account", func(r chi.Router) {
		r.Use(
			mw.WithNoStore(),
			mw.WithAuthContext(d.Verifier),
		)
		r.Get("/externalLogins", d.Account.Providers.List)
		r.Get("/externalLogin", d.Account.Login.Login)
		r.Get("/externalLogin/callback", d.Account.Callback.Callback)
		r.Post("/registerExternal", d.Account.Register.Register)
		r.Get("/userInfo", d.Account.UserInfo.UserInfo)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "GET, POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
