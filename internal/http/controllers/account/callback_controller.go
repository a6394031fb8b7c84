package account

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fedgate/fedgate/internal/federation"
	httperrors "github.com/fedgate/fedgate/internal/http/errors"
	"github.com/fedgate/fedgate/internal/http/helpers"
	"github.com/fedgate/fedgate/internal/observability/logger"
)

// CallbackController terminates the provider handshake: it exchanges
// the authorization code, wraps the resulting profile in the external
// cookie and bounces back to the login endpoint.
type CallbackController struct {
	deps Deps
}

// Callback handles GET /api/account/externalLogin/callback.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	q := r.URL.Query()
	caption := strings.TrimSpace(q.Get("provider"))
	state := strings.TrimSpace(q.Get("state"))

	// Provider-side denial. Forward the error to the login endpoint so
	// it takes the documented error path.
	if provErr := strings.TrimSpace(q.Get("error")); provErr != "" {
		log.Warn("provider denied authorization",
			logger.Provider(caption),
			logger.String("error", provErr))
		http.Redirect(w, r, c.loginURL(url.Values{"provider": {caption}, "error": {provErr}}), http.StatusFound)
		return
	}

	provider, err := federation.ParseProvider(caption)
	if err != nil {
		log.Warn("unknown provider on callback", logger.Provider(caption))
		httperrors.WriteError(w, httperrors.ErrUnsupportedProvider)
		return
	}

	code := strings.TrimSpace(q.Get("code"))
	if code == "" || state == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("code and state required"))
		return
	}

	// One state token authorizes exactly one code exchange. Add fails
	// on the second attempt, which is how a replayed callback dies.
	fresh, err := c.deps.Cache.Add(ctx, "state:"+state, "1", c.deps.StateTTL)
	if err != nil {
		log.Error("state guard unavailable", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	if !fresh {
		log.Warn("state token replayed", logger.Provider(caption))
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("state already used"))
		return
	}

	profile, err := c.deps.Clients.Exchange(ctx, provider, code)
	if err != nil {
		log.Error("code exchange failed", logger.Provider(caption), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("code exchange failed").WithCause(err))
		return
	}

	var cs federation.SessionClaimSet
	cs.Set(federation.ClaimSubject, provider.String()+":"+profile.ProviderKey)
	cs.Set(federation.ClaimProvider, provider.String())
	cs.Set(federation.ClaimProviderKey, profile.ProviderKey)
	cs.Set(federation.ClaimEmail, profile.Email)
	cs.Set(federation.ClaimName, profile.Name)
	cs.Set(federation.ClaimAvatarURL, profile.AvatarURL)
	cs.Set(federation.ClaimEmailVerified, strconv.FormatBool(profile.EmailVerified))

	ext, err := c.deps.Issuer.IssueExternal(cs, c.deps.StateTTL)
	if err != nil {
		log.Error("external identity issue failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	http.SetCookie(w, helpers.BuildCookie(
		federation.ExternalCookieName, ext.Token, ext.ExpiresAt, c.deps.Cookies))

	log.Debug("assertion established", logger.Provider(caption))
	http.Redirect(w, r, c.loginURL(url.Values{"provider": {caption}, "state": {state}}), http.StatusFound)
}

func (c *CallbackController) loginURL(q url.Values) string {
	return strings.TrimRight(c.deps.BaseURL, "/") + federation.LoginPath + "?" + q.Encode()
}
