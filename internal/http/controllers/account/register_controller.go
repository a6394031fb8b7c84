package account

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fedgate/fedgate/internal/federation"
	dto "github.com/fedgate/fedgate/internal/http/dto/account"
	httperrors "github.com/fedgate/fedgate/internal/http/errors"
	"github.com/fedgate/fedgate/internal/http/helpers"
	mw "github.com/fedgate/fedgate/internal/http/middlewares"
	"github.com/fedgate/fedgate/internal/observability/logger"
)

// RegisterController promotes provisional identities.
type RegisterController struct {
	deps Deps
}

// Register handles POST /api/account/registerExternal.
func (c *RegisterController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RegisterController.Register"))

	auth := mw.GetAuth(ctx)
	provider := ""
	if auth.Claims != nil {
		provider = auth.Claims[federation.ClaimProvider]
	}

	var req dto.RegisterExternalRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := helpers.ReadJSON(r, &req); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithCause(err))
			return
		}
	}
	if name := strings.TrimSpace(req.FullName); name != "" && auth.Authenticated {
		// Client-chosen display name wins over the provider's.
		claims := make(map[string]string, len(auth.Claims))
		for k, v := range auth.Claims {
			claims[k] = v
		}
		claims[federation.ClaimName] = name
		auth = &federation.AuthContext{
			Authenticated: auth.Authenticated,
			Scope:         auth.Scope,
			Claims:        claims,
		}
	}

	result, err := c.deps.Orchestrator.RegisterExternal(ctx, auth)
	if err != nil {
		switch {
		case errors.Is(err, federation.ErrExternalLoginNotFound):
			mw.RecordRegistration(provider, "error")
			log.Warn("registration without external assertion")
			httperrors.WriteError(w, httperrors.ErrExternalLoginNotFound)
		case errors.Is(err, federation.ErrLinkConflict):
			mw.RecordRegistration(provider, "conflict")
			log.Warn("duplicate link registration", logger.Provider(provider))
			httperrors.WriteError(w, httperrors.ErrLinkConflict)
		default:
			mw.RecordRegistration(provider, "error")
			log.Error("registration failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		}
		return
	}
	mw.RecordRegistration(provider, "created")

	// The provisional assertion is spent; the session is registered now.
	http.SetCookie(w, helpers.BuildDeletionCookie(federation.ExternalCookieName, c.deps.Cookies))
	http.SetCookie(w, helpers.BuildCookie(
		federation.SessionCookieName,
		result.Session.Cookie.Token,
		result.Session.Cookie.ExpiresAt,
		c.deps.Cookies,
	))

	helpers.WriteJSON(w, http.StatusOK, dto.RegisterResultDTO{
		User: dto.UserDTO{
			ID:            result.User.ID.String(),
			Email:         result.User.Email,
			FullName:      result.User.FullName,
			AvatarURL:     result.User.AvatarURL,
			EmailVerified: result.User.EmailVerified,
		},
		AccessTokenDTO: dto.AccessTokenDTO{
			AccessToken: result.Session.Bearer.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(time.Until(result.Session.Bearer.ExpiresAt).Seconds()),
		},
	})
}
