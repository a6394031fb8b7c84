package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedgate/fedgate/internal/cache"
	"github.com/fedgate/fedgate/internal/federation"
	accountctrl "github.com/fedgate/fedgate/internal/http/controllers/account"
	healthctrl "github.com/fedgate/fedgate/internal/http/controllers/health"
	"github.com/fedgate/fedgate/internal/http/helpers"
	"github.com/fedgate/fedgate/internal/jwt"
	"github.com/fedgate/fedgate/internal/store/memory"
)

type staticChallenge struct{}

func (staticChallenge) AuthURL(p federation.Provider, state string) (string, error) {
	return "https://idp.test/auth?provider=" + p.String() + "&state=" + state, nil
}

func newTestRouter(t *testing.T) (http.Handler, *federation.IdentityIssuer) {
	t.Helper()

	keys, err := jwt.LoadOrGenerateKey("")
	require.NoError(t, err)
	signer := jwt.NewIssuer("https://auth.test", keys)

	registry, err := federation.NewRegistry([]string{"google", "github"}, "webapp")
	require.NoError(t, err)
	issuer := federation.NewIdentityIssuer(signer, staticChallenge{}, time.Minute, time.Hour)
	st := memory.New()
	c := cache.NewMemory("e2e", time.Minute)

	account := accountctrl.NewControllers(accountctrl.Deps{
		Orchestrator: federation.NewOrchestrator(st, issuer, registry, nil),
		Registry:     registry,
		Issuer:       issuer,
		Cache:        c,
		BaseURL:      "https://auth.test",
		Cookies:      helpers.CookieSettings{SameSite: "lax"},
		StateTTL:     time.Minute,
	})
	health := &healthctrl.Controllers{Store: st, Cache: c}

	return New(Deps{Account: account, Health: health, Verifier: signer}), issuer
}

func externalAssertionToken(t *testing.T, issuer *federation.IdentityIssuer, caption, key, email string) string {
	t.Helper()
	var cs federation.SessionClaimSet
	cs.Set(federation.ClaimSubject, caption+":"+key)
	cs.Set(federation.ClaimProvider, caption)
	cs.Set(federation.ClaimProviderKey, key)
	cs.Set(federation.ClaimEmail, email)
	cs.Set(federation.ClaimName, "Flow User")
	cs.Set(federation.ClaimEmailVerified, "true")
	id, err := issuer.IssueExternal(cs, time.Minute)
	require.NoError(t, err)
	return id.Token
}

func TestRouter_Probes(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRouter_AccountRoutesAreNoStore(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/account/externalLogins", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

// Full sign-in flow over the assembled router: provisional login from an
// assertion cookie, promotion via registerExternal, then userInfo on
// the registered bearer token.
func TestRouter_SignInAndRegisterFlow(t *testing.T) {
	r, issuer := newTestRouter(t)
	assertion := externalAssertionToken(t, issuer, "google", "g-e2e", "flow@example.com")

	// Anonymous hit challenges to the provider.
	req := httptest.NewRequest(http.MethodGet, "/api/account/externalLogin?provider=google&state=st-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "https://idp.test/auth")

	// With the assertion cookie the same endpoint signs in provisionally.
	req = httptest.NewRequest(http.MethodGet, "/api/account/externalLogin?provider=google", nil)
	req.AddCookie(&http.Cookie{Name: federation.ExternalCookieName, Value: assertion})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		AccessToken  string `json:"access_token"`
		IsRegistered bool   `json:"isRegistered"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)
	require.False(t, login.IsRegistered)

	// Promote the provisional identity.
	req = httptest.NewRequest(http.MethodPost, "/api/account/registerExternal", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var reg struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.Equal(t, "flow@example.com", reg.User.Email)
	require.NotEmpty(t, reg.AccessToken)

	// The registered token reflects the linked identity.
	req = httptest.NewRequest(http.MethodGet, "/api/account/userInfo", nil)
	req.Header.Set("Authorization", "Bearer "+reg.AccessToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		Email         string `json:"email"`
		IsRegistered  bool   `json:"isRegistered"`
		LoginProvider string `json:"loginProvider"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, "flow@example.com", info.Email)
	require.True(t, info.IsRegistered)
	require.Equal(t, "google", info.LoginProvider)
}
