package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fedgate/fedgate/internal/federation"
	"github.com/fedgate/fedgate/internal/jwt"
)

func testIssuers(t *testing.T) (*jwt.Issuer, *federation.IdentityIssuer) {
	t.Helper()
	keys, err := jwt.LoadOrGenerateKey("")
	if err != nil {
		t.Fatal(err)
	}
	signer := jwt.NewIssuer("https://auth.test", keys)
	return signer, federation.NewIdentityIssuer(signer, nil, time.Minute, time.Hour)
}

func sessionPair(t *testing.T, issuer *federation.IdentityIssuer) *federation.SessionPair {
	t.Helper()
	var cs federation.SessionClaimSet
	cs.Set(federation.ClaimSubject, "user-1")
	cs.Set(federation.ClaimEmail, "u@example.com")
	pair, err := issuer.Issue(cs)
	if err != nil {
		t.Fatal(err)
	}
	return pair
}

func resolve(t *testing.T, signer *jwt.Issuer, decorate func(*http.Request)) *federation.AuthContext {
	t.Helper()
	var got *federation.AuthContext
	h := WithAuthContext(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuth(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	decorate(req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestAuthContext_BearerInHeader(t *testing.T) {
	signer, issuer := testIssuers(t)
	pair := sessionPair(t, issuer)

	auth := resolve(t, signer, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.Bearer.Token)
	})
	if !auth.Authenticated || auth.Scope != federation.ScopeBearer {
		t.Fatalf("auth = %+v", auth)
	}
	if auth.Claims[federation.ClaimEmail] != "u@example.com" {
		t.Fatalf("claims = %v", auth.Claims)
	}
	// Numeric registered claims flatten to plain integer strings.
	if exp := auth.Claims["exp"]; exp == "" || strings.ContainsAny(exp, ".e") {
		t.Fatalf("exp = %q", exp)
	}
}

func TestAuthContext_CookieTokenInHeaderRejected(t *testing.T) {
	signer, issuer := testIssuers(t)
	pair := sessionPair(t, issuer)

	// A valid cookie token must not authenticate over the header.
	auth := resolve(t, signer, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.Cookie.Token)
	})
	if auth.Authenticated {
		t.Fatal("cookie-scoped token must not authenticate as bearer")
	}
}

func TestAuthContext_BearerTokenInCookieRejected(t *testing.T) {
	signer, issuer := testIssuers(t)
	pair := sessionPair(t, issuer)

	auth := resolve(t, signer, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: federation.SessionCookieName, Value: pair.Bearer.Token})
	})
	if auth.Authenticated {
		t.Fatal("bearer-scoped token must not authenticate from the cookie")
	}
}

func TestAuthContext_SessionCookie(t *testing.T) {
	signer, issuer := testIssuers(t)
	pair := sessionPair(t, issuer)

	auth := resolve(t, signer, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: federation.SessionCookieName, Value: pair.Cookie.Token})
	})
	if !auth.Authenticated || auth.Scope != federation.ScopeApplicationCookie {
		t.Fatalf("auth = %+v", auth)
	}
}

func TestAuthContext_ExternalCookie(t *testing.T) {
	signer, issuer := testIssuers(t)

	var cs federation.SessionClaimSet
	cs.Set(federation.ClaimSubject, "google:g-1")
	cs.Set(federation.ClaimProvider, "google")
	cs.Set(federation.ClaimProviderKey, "g-1")
	ext, err := issuer.IssueExternal(cs, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	auth := resolve(t, signer, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: federation.ExternalCookieName, Value: ext.Token})
	})
	if !auth.Authenticated || auth.Scope != federation.ScopeExternalCookie {
		t.Fatalf("auth = %+v", auth)
	}
	if auth.Claims[federation.ClaimProviderKey] != "g-1" {
		t.Fatalf("claims = %v", auth.Claims)
	}
}

func TestAuthContext_HeaderWinsOverCookie(t *testing.T) {
	signer, issuer := testIssuers(t)
	pair := sessionPair(t, issuer)

	auth := resolve(t, signer, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.Bearer.Token)
		r.AddCookie(&http.Cookie{Name: federation.SessionCookieName, Value: pair.Cookie.Token})
	})
	if auth.Scope != federation.ScopeBearer {
		t.Fatalf("scope = %q", auth.Scope)
	}
}

func TestAuthContext_GarbageTokenIsAnonymous(t *testing.T) {
	signer, _ := testIssuers(t)

	auth := resolve(t, signer, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not.a.token")
	})
	if auth.Authenticated {
		t.Fatal("unverifiable token must stay anonymous")
	}
}

func TestGetAuth_NeverNil(t *testing.T) {
	auth := GetAuth(context.Background())
	if auth == nil || auth.Authenticated {
		t.Fatalf("auth = %+v", auth)
	}
}
