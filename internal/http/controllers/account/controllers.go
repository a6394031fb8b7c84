// Package account contains the controllers for the account endpoints:
// provider discovery, external login, registration and user info.
package account

import (
	"time"

	"github.com/fedgate/fedgate/internal/cache"
	"github.com/fedgate/fedgate/internal/federation"
	"github.com/fedgate/fedgate/internal/http/helpers"
	"github.com/fedgate/fedgate/internal/oauth"
)

// Deps bundles everything the account controllers need.
type Deps struct {
	Orchestrator *federation.Orchestrator
	Registry     *federation.Registry
	Issuer       *federation.IdentityIssuer
	Clients      *oauth.Clients
	Cache        cache.Client

	BaseURL  string
	Cookies  helpers.CookieSettings
	StateTTL time.Duration
}

// Controllers groups the account controllers.
type Controllers struct {
	Providers *ProvidersController
	Login     *LoginController
	Callback  *CallbackController
	Register  *RegisterController
	UserInfo  *UserInfoController
}

// NewControllers builds the account controllers aggregator.
func NewControllers(d Deps) *Controllers {
	return &Controllers{
		Providers: &ProvidersController{deps: d},
		Login:     &LoginController{deps: d},
		Callback:  &CallbackController{deps: d},
		Register:  &RegisterController{deps: d},
		UserInfo:  &UserInfoController{},
	}
}
