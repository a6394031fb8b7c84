package federation

import (
	"fmt"
	"time"
)

// AuthScope names one authentication representation. The transport
// layer tags each authenticated request with the scope that verified
// it; sign-out is expressed as a set of scopes to clear.
type AuthScope string

const (
	// ScopeBearer is the Authorization header representation.
	ScopeBearer AuthScope = "bearer"
	// ScopeApplicationCookie is the first-party session cookie.
	ScopeApplicationCookie AuthScope = "application_cookie"
	// ScopeExternalCookie carries the short-lived provider assertion
	// between the callback and the login endpoint.
	ScopeExternalCookie AuthScope = "external_cookie"
)

// Cookie names for the two cookie-backed scopes.
const (
	SessionCookieName  = "fg_sess"
	ExternalCookieName = "fg_ext"
)

// CookieNameForScope maps a cookie-backed scope to its cookie name.
// Bearer has no cookie and maps to "".
func CookieNameForScope(s AuthScope) string {
	switch s {
	case ScopeApplicationCookie:
		return SessionCookieName
	case ScopeExternalCookie:
		return ExternalCookieName
	default:
		return ""
	}
}

// Identity is one issued representation of a signed-in session.
type Identity struct {
	Scope     AuthScope
	Token     string
	ExpiresAt time.Time
}

// SessionPair is the dual-representation result of a sign-in: the same
// claim set issued once for the Authorization header and once for the
// session cookie.
type SessionPair struct {
	Bearer Identity
	Cookie Identity
}

// TokenSigner signs a claim set into a compact token. Satisfied by the
// jwt issuer.
type TokenSigner interface {
	Sign(subject string, ttl time.Duration, extra map[string]any) (string, time.Time, error)
}

// AuthURLBuilder resolves a provider challenge into the authorization
// URL the user agent must be sent to. Satisfied by the oauth client
// registry.
type AuthURLBuilder interface {
	AuthURL(provider Provider, state string) (string, error)
}

// IdentityIssuer turns mapped claim sets into signed session
// representations and builds provider challenges.
type IdentityIssuer struct {
	signer    TokenSigner
	challenge AuthURLBuilder
	bearerTTL time.Duration
	cookieTTL time.Duration
}

// NewIdentityIssuer wires the issuer. Zero TTLs fall back to an hour
// for the bearer and a day for the cookie.
func NewIdentityIssuer(signer TokenSigner, challenge AuthURLBuilder, bearerTTL, cookieTTL time.Duration) *IdentityIssuer {
	if bearerTTL <= 0 {
		bearerTTL = time.Hour
	}
	if cookieTTL <= 0 {
		cookieTTL = 24 * time.Hour
	}
	return &IdentityIssuer{
		signer:    signer,
		challenge: challenge,
		bearerTTL: bearerTTL,
		cookieTTL: cookieTTL,
	}
}

// Issue signs both representations of cs. Identity claims are identical
// across the pair; only the auth-type annotation and the expiry differ.
func (i *IdentityIssuer) Issue(cs SessionClaimSet) (*SessionPair, error) {
	sub := cs.Get(ClaimSubject)
	if sub == "" {
		return nil, fmt.Errorf("issue: claim set has no subject")
	}

	bearer, bearerExp, err := i.sign(cs, sub, ScopeBearer, i.bearerTTL)
	if err != nil {
		return nil, err
	}
	cookie, cookieExp, err := i.sign(cs, sub, ScopeApplicationCookie, i.cookieTTL)
	if err != nil {
		return nil, err
	}

	return &SessionPair{
		Bearer: Identity{Scope: ScopeBearer, Token: bearer, ExpiresAt: bearerExp},
		Cookie: Identity{Scope: ScopeApplicationCookie, Token: cookie, ExpiresAt: cookieExp},
	}, nil
}

// IssueExternal signs the assertion claim set into the external cookie
// representation used between callback and login.
func (i *IdentityIssuer) IssueExternal(cs SessionClaimSet, ttl time.Duration) (*Identity, error) {
	sub := cs.Get(ClaimSubject)
	if sub == "" {
		return nil, fmt.Errorf("issue: claim set has no subject")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	tok, exp, err := i.sign(cs, sub, ScopeExternalCookie, ttl)
	if err != nil {
		return nil, err
	}
	return &Identity{Scope: ScopeExternalCookie, Token: tok, ExpiresAt: exp}, nil
}

func (i *IdentityIssuer) sign(cs SessionClaimSet, sub string, scope AuthScope, ttl time.Duration) (string, time.Time, error) {
	extra := make(map[string]any, cs.Len()+1)
	for _, c := range cs.Claims() {
		if c.Type == ClaimSubject {
			continue
		}
		extra[c.Type] = c.Value
	}
	extra[ClaimAuthType] = string(scope)

	tok, exp, err := i.signer.Sign(sub, ttl, extra)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue %s: %w", scope, err)
	}
	return tok, exp, nil
}

// Challenge builds the redirect to the provider's authorization
// endpoint for a fresh login attempt.
func (i *IdentityIssuer) Challenge(provider Provider, state string) (string, error) {
	u, err := i.challenge.AuthURL(provider, state)
	if err != nil {
		return "", fmt.Errorf("challenge %s: %w", provider, err)
	}
	return u, nil
}
