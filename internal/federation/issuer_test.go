package federation

import (
	"fmt"
	"testing"
	"time"
)

// recordingSigner captures the extra claims of every Sign call.
type recordingSigner struct {
	calls []map[string]any
}

func (s *recordingSigner) Sign(sub string, ttl time.Duration, extra map[string]any) (string, time.Time, error) {
	cp := make(map[string]any, len(extra))
	for k, v := range extra {
		cp[k] = v
	}
	s.calls = append(s.calls, cp)
	return fmt.Sprintf("tok-%s-%v", sub, extra[ClaimAuthType]), time.Now().Add(ttl), nil
}

type staticChallenge struct{}

func (staticChallenge) AuthURL(p Provider, state string) (string, error) {
	return "https://idp.example/authorize?provider=" + p.String() + "&state=" + state, nil
}

func registeredClaimSet() SessionClaimSet {
	var cs SessionClaimSet
	cs.Set(ClaimSubject, "user-1")
	cs.Set(ClaimEmail, "a@example.com")
	cs.Set(ClaimProvider, "google")
	cs.Set(ClaimProviderKey, "g-1")
	cs.Set(ClaimRegistered, "true")
	return cs
}

func TestIdentityIssuer_Issue_BothRepresentations(t *testing.T) {
	signer := &recordingSigner{}
	iss := NewIdentityIssuer(signer, staticChallenge{}, time.Minute, time.Hour)

	pair, err := iss.Issue(registeredClaimSet())
	if err != nil {
		t.Fatal(err)
	}

	if pair.Bearer.Scope != ScopeBearer || pair.Cookie.Scope != ScopeApplicationCookie {
		t.Fatalf("scopes = %v / %v", pair.Bearer.Scope, pair.Cookie.Scope)
	}
	if pair.Bearer.Token == pair.Cookie.Token {
		t.Fatal("representations must be distinct tokens")
	}
	if len(signer.calls) != 2 {
		t.Fatalf("expected 2 sign calls, got %d", len(signer.calls))
	}

	// Identity claims must be identical across representations; only the
	// auth-type annotation may differ.
	bearer, cookie := signer.calls[0], signer.calls[1]
	if bearer[ClaimAuthType] != string(ScopeBearer) {
		t.Fatalf("bearer auth_type = %v", bearer[ClaimAuthType])
	}
	if cookie[ClaimAuthType] != string(ScopeApplicationCookie) {
		t.Fatalf("cookie auth_type = %v", cookie[ClaimAuthType])
	}
	delete(bearer, ClaimAuthType)
	delete(cookie, ClaimAuthType)
	if len(bearer) != len(cookie) {
		t.Fatalf("claim counts differ: %d vs %d", len(bearer), len(cookie))
	}
	for k, v := range bearer {
		if cookie[k] != v {
			t.Fatalf("claim %q differs: %v vs %v", k, v, cookie[k])
		}
	}
}

func TestIdentityIssuer_Issue_RequiresSubject(t *testing.T) {
	iss := NewIdentityIssuer(&recordingSigner{}, staticChallenge{}, time.Minute, time.Hour)
	var cs SessionClaimSet
	cs.Set(ClaimEmail, "a@example.com")
	if _, err := iss.Issue(cs); err == nil {
		t.Fatal("expected error for claim set without subject")
	}
}

func TestIdentityIssuer_IssueExternal(t *testing.T) {
	signer := &recordingSigner{}
	iss := NewIdentityIssuer(signer, staticChallenge{}, time.Minute, time.Hour)

	var cs SessionClaimSet
	cs.Set(ClaimSubject, "google:g-1")
	cs.Set(ClaimProvider, "google")
	cs.Set(ClaimProviderKey, "g-1")

	id, err := iss.IssueExternal(cs, 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if id.Scope != ScopeExternalCookie {
		t.Fatalf("scope = %v", id.Scope)
	}
	if signer.calls[0][ClaimAuthType] != string(ScopeExternalCookie) {
		t.Fatalf("auth_type = %v", signer.calls[0][ClaimAuthType])
	}
}

func TestCookieNameForScope(t *testing.T) {
	if CookieNameForScope(ScopeApplicationCookie) != SessionCookieName {
		t.Fatal("session cookie name mismatch")
	}
	if CookieNameForScope(ScopeExternalCookie) != ExternalCookieName {
		t.Fatal("external cookie name mismatch")
	}
	if CookieNameForScope(ScopeBearer) != "" {
		t.Fatal("bearer has no cookie")
	}
}
