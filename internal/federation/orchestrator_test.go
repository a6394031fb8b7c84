package federation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fedgate/fedgate/internal/store/core"
)

type fakeLinkStore struct {
	users     map[string]*core.User
	created   []core.NewExternalUser
	createErr error
	findCalls int
}

func (f *fakeLinkStore) FindUserByLink(ctx context.Context, provider, providerKey string) (*core.User, error) {
	f.findCalls++
	if u, ok := f.users[provider+"/"+providerKey]; ok {
		return u, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeLinkStore) CreateUserFromAssertion(ctx context.Context, nu core.NewExternalUser) (*core.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, nu)
	return &core.User{
		ID:            uuid.New(),
		Email:         nu.Email,
		FullName:      nu.FullName,
		AvatarURL:     nu.AvatarURL,
		EmailVerified: nu.EmailVerified,
	}, nil
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendVerification(ctx context.Context, email, fullName string) error {
	m.sent = append(m.sent, email)
	return m.err
}

func newTestOrchestrator(t *testing.T, store *fakeLinkStore, mailer VerificationMailer) *Orchestrator {
	t.Helper()
	registry, err := NewRegistry([]string{"google", "github"}, "client-1")
	if err != nil {
		t.Fatal(err)
	}
	issuer := NewIdentityIssuer(&recordingSigner{}, staticChallenge{}, time.Minute, time.Hour)
	return NewOrchestrator(store, issuer, registry, mailer)
}

func externalAuth(caption, key string) *AuthContext {
	return &AuthContext{
		Authenticated: true,
		Scope:         ScopeExternalCookie,
		Claims: map[string]string{
			ClaimProvider:      caption,
			ClaimProviderKey:   key,
			ClaimEmail:         "user@example.com",
			ClaimName:          "User Name",
			ClaimEmailVerified: "true",
		},
	}
}

func TestExternalLogin_UnsupportedProvider_NoStoreCall(t *testing.T) {
	store := &fakeLinkStore{}
	o := newTestOrchestrator(t, store, nil)

	_, err := o.ExternalLogin(context.Background(), LoginInput{ProviderCaption: "myspace"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("err = %v", err)
	}
	if store.findCalls != 0 {
		t.Fatal("provider validation must run before any store access")
	}
}

func TestExternalLogin_EmptyProvider(t *testing.T) {
	o := newTestOrchestrator(t, &fakeLinkStore{}, nil)
	if _, err := o.ExternalLogin(context.Background(), LoginInput{}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("err = %v", err)
	}
}

func TestExternalLogin_Anonymous_Challenges(t *testing.T) {
	o := newTestOrchestrator(t, &fakeLinkStore{}, nil)

	out, err := o.ExternalLogin(context.Background(), LoginInput{
		ProviderCaption: "google",
		State:           "st-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeChallenge {
		t.Fatalf("kind = %v", out.Kind)
	}
	if !strings.Contains(out.RedirectURL, "provider=google") || !strings.Contains(out.RedirectURL, "state=st-1") {
		t.Fatalf("redirect = %q", out.RedirectURL)
	}
	if len(out.SignOutScopes) != 0 {
		t.Fatal("anonymous challenge must not sign anything out")
	}
}

func TestExternalLogin_AuthenticatedWithoutAssertion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeLinkStore{}, nil)

	auth := &AuthContext{
		Authenticated: true,
		Scope:         ScopeApplicationCookie,
		Claims:        map[string]string{ClaimEmail: "a@example.com"},
	}
	_, err := o.ExternalLogin(context.Background(), LoginInput{ProviderCaption: "google", Auth: auth})
	if !errors.Is(err, ErrMissingExternalIdentity) {
		t.Fatalf("err = %v", err)
	}
}

func TestExternalLogin_ProviderMismatch_SignsOutAndRechallenges(t *testing.T) {
	store := &fakeLinkStore{}
	o := newTestOrchestrator(t, store, nil)

	out, err := o.ExternalLogin(context.Background(), LoginInput{
		ProviderCaption: "github",
		Auth:            externalAuth("google", "g-1"),
		State:           "st-2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeChallenge {
		t.Fatalf("kind = %v", out.Kind)
	}
	if !strings.Contains(out.RedirectURL, "provider=github") {
		t.Fatalf("must re-challenge the requested provider: %q", out.RedirectURL)
	}
	for _, want := range []AuthScope{ScopeExternalCookie, ScopeApplicationCookie, ScopeBearer} {
		found := false
		for _, s := range out.SignOutScopes {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s missing from sign-out scopes %v", want, out.SignOutScopes)
		}
	}
	if store.findCalls != 0 {
		t.Fatal("a mismatched assertion must not be resolved against the store")
	}
}

func TestExternalLogin_Linked_SignsInRegistered(t *testing.T) {
	user := &core.User{ID: uuid.New(), Email: "linked@example.com", FullName: "Linked", EmailVerified: true}
	store := &fakeLinkStore{users: map[string]*core.User{"google/g-1": user}}
	o := newTestOrchestrator(t, store, nil)

	out, err := o.ExternalLogin(context.Background(), LoginInput{
		ProviderCaption: "google",
		Auth:            externalAuth("google", "g-1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeSignedIn || !out.Registered {
		t.Fatalf("kind=%v registered=%v", out.Kind, out.Registered)
	}
	if out.Session == nil || out.Session.Bearer.Token == "" || out.Session.Cookie.Token == "" {
		t.Fatal("both representations must be issued")
	}
	if len(out.SignOutScopes) != 1 || out.SignOutScopes[0] != ScopeExternalCookie {
		t.Fatalf("only the external assertion is consumed, got %v", out.SignOutScopes)
	}
}

func TestExternalLogin_Unlinked_SignsInProvisional(t *testing.T) {
	store := &fakeLinkStore{}
	o := newTestOrchestrator(t, store, nil)

	out, err := o.ExternalLogin(context.Background(), LoginInput{
		ProviderCaption: "google",
		Auth:            externalAuth("google", "g-unknown"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeSignedIn || out.Registered {
		t.Fatalf("kind=%v registered=%v", out.Kind, out.Registered)
	}
	if out.Session == nil {
		t.Fatal("provisional identities still get a session pair")
	}
}

func TestRegisterExternal_WithoutAssertion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeLinkStore{}, nil)

	_, err := o.RegisterExternal(context.Background(), &AuthContext{Authenticated: true})
	if !errors.Is(err, ErrExternalLoginNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := o.RegisterExternal(context.Background(), nil); !errors.Is(err, ErrExternalLoginNotFound) {
		t.Fatalf("nil auth err = %v", err)
	}
}

func TestRegisterExternal_CreatesUserAndReissues(t *testing.T) {
	store := &fakeLinkStore{}
	o := newTestOrchestrator(t, store, nil)

	res, err := o.RegisterExternal(context.Background(), externalAuth("github", "gh-9"))
	if err != nil {
		t.Fatal(err)
	}
	if res.User == nil || res.User.Email != "user@example.com" {
		t.Fatalf("user = %+v", res.User)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d", len(store.created))
	}
	if store.created[0].Provider != "github" || store.created[0].ProviderKey != "gh-9" {
		t.Fatalf("link = %+v", store.created[0])
	}
	if res.Session == nil || res.Session.Bearer.Token == "" {
		t.Fatal("registration must re-issue the session")
	}
}

func TestRegisterExternal_DuplicateLink(t *testing.T) {
	store := &fakeLinkStore{createErr: core.ErrLinkExists}
	o := newTestOrchestrator(t, store, nil)

	_, err := o.RegisterExternal(context.Background(), externalAuth("google", "g-1"))
	if !errors.Is(err, ErrLinkConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterExternal_VerificationMail(t *testing.T) {
	mailer := &recordingMailer{}
	store := &fakeLinkStore{}
	o := newTestOrchestrator(t, store, mailer)

	// Verified by the provider: no mail.
	if _, err := o.RegisterExternal(context.Background(), externalAuth("google", "g-1")); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("no mail expected for a verified address, sent %v", mailer.sent)
	}

	// Unverified: one mail, and a send failure must not fail the call.
	auth := externalAuth("google", "g-2")
	auth.Claims[ClaimEmailVerified] = "false"
	mailer.err = errors.New("smtp down")
	if _, err := o.RegisterExternal(context.Background(), auth); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "user@example.com" {
		t.Fatalf("sent = %v", mailer.sent)
	}
}
