package account

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fedgate/fedgate/internal/federation"
	dto "github.com/fedgate/fedgate/internal/http/dto/account"
	httperrors "github.com/fedgate/fedgate/internal/http/errors"
	"github.com/fedgate/fedgate/internal/http/helpers"
	mw "github.com/fedgate/fedgate/internal/http/middlewares"
	"github.com/fedgate/fedgate/internal/observability/logger"
)

// LoginController drives the externalLogin state machine over HTTP.
type LoginController struct {
	deps Deps
}

// Login handles GET /api/account/externalLogin.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	q := r.URL.Query()
	provider := strings.TrimSpace(q.Get("provider"))

	// A provider error short-circuits everything else: hand it to the
	// client app in the fragment so it never hits server logs twice.
	if provErr := strings.TrimSpace(q.Get("error")); provErr != "" {
		log.Warn("provider returned error",
			logger.Provider(provider),
			logger.String("error", provErr))
		mw.RecordLogin(provider, "error")
		redirectWithError(w, r, c.deps.BaseURL, provErr)
		return
	}

	outcome, err := c.deps.Orchestrator.ExternalLogin(ctx, federation.LoginInput{
		ProviderCaption: provider,
		Auth:            mw.GetAuth(ctx),
		State:           strings.TrimSpace(q.Get("state")),
	})
	if err != nil {
		mw.RecordLogin(provider, "error")
		c.writeLoginError(w, log, provider, err)
		return
	}

	c.clearScopes(w, outcome.SignOutScopes)

	if outcome.Kind == federation.OutcomeChallenge {
		mw.RecordLogin(provider, "challenge")
		log.Debug("redirecting to provider", logger.Provider(provider))
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
		return
	}

	http.SetCookie(w, helpers.BuildCookie(
		federation.SessionCookieName,
		outcome.Session.Cookie.Token,
		outcome.Session.Cookie.ExpiresAt,
		c.deps.Cookies,
	))

	if outcome.Registered {
		mw.RecordLogin(provider, "registered")
	} else {
		mw.RecordLogin(provider, "provisional")
	}

	helpers.WriteJSON(w, http.StatusOK, dto.LoginResultDTO{
		AccessTokenDTO: dto.AccessTokenDTO{
			AccessToken: outcome.Session.Bearer.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(time.Until(outcome.Session.Bearer.ExpiresAt).Seconds()),
		},
		IsRegistered:  outcome.Registered,
		LoginProvider: provider,
	})
}

func (c *LoginController) writeLoginError(w http.ResponseWriter, log *zap.Logger, provider string, err error) {
	appErr := mapLoginError(err)
	if appErr.HTTPStatus >= 500 {
		log.Error("login failed", logger.Provider(provider), logger.Err(err))
	} else {
		log.Warn("login rejected", logger.Provider(provider), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}

func (c *LoginController) clearScopes(w http.ResponseWriter, scopes []federation.AuthScope) {
	for _, s := range scopes {
		if name := federation.CookieNameForScope(s); name != "" {
			http.SetCookie(w, helpers.BuildDeletionCookie(name, c.deps.Cookies))
		}
	}
}

// redirectWithError sends the user agent back to the application root
// with the error in the URL fragment.
func redirectWithError(w http.ResponseWriter, r *http.Request, baseURL, errCode string) {
	http.Redirect(w, r,
		strings.TrimRight(baseURL, "/")+"/#error="+url.QueryEscape(errCode),
		http.StatusFound)
}

func mapLoginError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, federation.ErrUnsupportedProvider):
		return httperrors.ErrUnsupportedProvider
	case errors.Is(err, federation.ErrMissingExternalIdentity):
		return httperrors.ErrMissingExternalIdentity
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
