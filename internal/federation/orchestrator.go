package federation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fedgate/fedgate/internal/observability/logger"
	"github.com/fedgate/fedgate/internal/store/core"
)

// UserLinkStore is the slice of the store the orchestrator needs.
type UserLinkStore interface {
	FindUserByLink(ctx context.Context, provider, providerKey string) (*core.User, error)
	CreateUserFromAssertion(ctx context.Context, nu core.NewExternalUser) (*core.User, error)
}

// VerificationMailer sends the address-confirmation mail after a
// registration whose provider did not vouch for the email. Best
// effort: a send failure never fails the registration.
type VerificationMailer interface {
	SendVerification(ctx context.Context, email, fullName string) error
}

// OutcomeKind classifies the result of a login evaluation.
type OutcomeKind int

const (
	// OutcomeChallenge means the user agent must be redirected to the
	// provider to (re)authenticate.
	OutcomeChallenge OutcomeKind = iota
	// OutcomeSignedIn means a session pair was issued.
	OutcomeSignedIn
)

// LoginOutcome is the decision of one pass through the login state
// machine. SignOutScopes lists representations the transport layer must
// clear before acting on the outcome.
type LoginOutcome struct {
	Kind          OutcomeKind
	RedirectURL   string
	Session       *SessionPair
	Registered    bool
	SignOutScopes []AuthScope
}

// LoginInput carries one externalLogin request into the orchestrator.
type LoginInput struct {
	// ProviderCaption is the raw provider query value.
	ProviderCaption string
	// Auth is the request's authentication context, nil when anonymous.
	Auth *AuthContext
	// State is the anti-forgery token minted for this attempt.
	State string
}

// Orchestrator drives the external sign-in state machine and the
// provisional-to-registered promotion.
type Orchestrator struct {
	store    UserLinkStore
	issuer   *IdentityIssuer
	registry *Registry
	mailer   VerificationMailer
}

// NewOrchestrator wires the login state machine. mailer may be nil.
func NewOrchestrator(store UserLinkStore, issuer *IdentityIssuer, registry *Registry, mailer VerificationMailer) *Orchestrator {
	return &Orchestrator{store: store, issuer: issuer, registry: registry, mailer: mailer}
}

// ExternalLogin evaluates one login request. Provider validation comes
// first so an unsupported caption never reaches the store or the
// provider. An anonymous request challenges; an authenticated request
// with an assertion from a different provider signs out every external
// representation and re-challenges; a matching assertion resolves the
// link and signs in as registered or provisional.
func (o *Orchestrator) ExternalLogin(ctx context.Context, in LoginInput) (*LoginOutcome, error) {
	log := logger.From(ctx).With(
		logger.Layer("federation"),
		logger.Op("external_login"),
		logger.Provider(in.ProviderCaption),
	)

	provider, err := ParseProvider(in.ProviderCaption)
	if err != nil {
		return nil, err
	}
	if !o.registry.Has(provider) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, in.ProviderCaption)
	}

	if in.Auth == nil || !in.Auth.Authenticated {
		url, err := o.issuer.Challenge(provider, in.State)
		if err != nil {
			return nil, err
		}
		log.Debug("challenging anonymous request")
		return &LoginOutcome{Kind: OutcomeChallenge, RedirectURL: url}, nil
	}

	assertion := ExtractAssertion(in.Auth)
	if assertion == nil {
		return nil, ErrMissingExternalIdentity
	}

	if assertion.Provider != provider {
		// The caller switched providers mid-handshake. Drop every
		// representation, the application session included, and start
		// over with the requested one. A surviving session cookie would
		// keep authenticating requests across the restart.
		url, err := o.issuer.Challenge(provider, in.State)
		if err != nil {
			return nil, err
		}
		log.Info("provider mismatch, re-challenging",
			logger.String("asserted_provider", assertion.Provider.String()))
		return &LoginOutcome{
			Kind:          OutcomeChallenge,
			RedirectURL:   url,
			SignOutScopes: []AuthScope{ScopeExternalCookie, ScopeApplicationCookie, ScopeBearer},
		}, nil
	}

	user, err := o.store.FindUserByLink(ctx, assertion.Provider.String(), assertion.ProviderKey)
	switch {
	case err == nil:
		return o.signInRegistered(ctx, user, assertion, log)
	case errors.Is(err, core.ErrNotFound):
		return o.signInProvisional(ctx, assertion, log)
	default:
		return nil, fmt.Errorf("find link: %w", err)
	}
}

func (o *Orchestrator) signInRegistered(ctx context.Context, user *core.User, assertion *ExternalLoginAssertion, log *zap.Logger) (*LoginOutcome, error) {
	mapper := &RegisteredExternal{User: user, Login: assertion}
	cs, err := mapper.MapClaims()
	if err != nil {
		return nil, err
	}
	pair, err := o.issuer.Issue(cs)
	if err != nil {
		return nil, err
	}
	log.Info("signed in registered user", logger.UserID(user.ID.String()))
	return &LoginOutcome{
		Kind:       OutcomeSignedIn,
		Session:    pair,
		Registered: true,
		// The external assertion is consumed; only the application
		// session survives.
		SignOutScopes: []AuthScope{ScopeExternalCookie},
	}, nil
}

func (o *Orchestrator) signInProvisional(ctx context.Context, assertion *ExternalLoginAssertion, log *zap.Logger) (*LoginOutcome, error) {
	mapper := &NotRegisteredExternal{Login: assertion}
	cs, err := mapper.MapClaims()
	if err != nil {
		return nil, err
	}
	pair, err := o.issuer.Issue(cs)
	if err != nil {
		return nil, err
	}
	log.Info("signed in provisional identity")
	return &LoginOutcome{
		Kind:       OutcomeSignedIn,
		Session:    pair,
		Registered: false,
	}, nil
}

// RegisterResult is the outcome of a successful promotion.
type RegisterResult struct {
	User    *core.User
	Session *SessionPair
}

// RegisterExternal promotes the caller's provisional identity into a
// local user plus provider link, then re-issues the session as
// registered. A request without an assertion fails with
// ErrExternalLoginNotFound; a concurrent duplicate registration of the
// same link fails with ErrLinkConflict.
func (o *Orchestrator) RegisterExternal(ctx context.Context, auth *AuthContext) (*RegisterResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("federation"),
		logger.Op("register_external"),
	)

	assertion := ExtractAssertion(auth)
	if assertion == nil {
		return nil, ErrExternalLoginNotFound
	}

	nu := core.NewExternalUser{
		Provider:      assertion.Provider.String(),
		ProviderKey:   assertion.ProviderKey,
		Email:         assertion.Email(),
		FullName:      assertion.Name(),
		AvatarURL:     assertion.AvatarURL(),
		EmailVerified: assertion.RawClaims[ClaimEmailVerified] == "true",
	}

	user, err := o.store.CreateUserFromAssertion(ctx, nu)
	if err != nil {
		if errors.Is(err, core.ErrLinkExists) {
			return nil, fmt.Errorf("%w: %s/%s", ErrLinkConflict, nu.Provider, nu.ProviderKey)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if o.mailer != nil && !user.EmailVerified && user.Email != "" {
		if err := o.mailer.SendVerification(ctx, user.Email, user.FullName); err != nil {
			log.Warn("verification mail failed", logger.Email(user.Email), logger.Err(err))
		}
	}

	mapper := &RegisteredExternal{User: user, Login: assertion}
	cs, err := mapper.MapClaims()
	if err != nil {
		return nil, err
	}
	pair, err := o.issuer.Issue(cs)
	if err != nil {
		return nil, err
	}

	log.Info("registered external user",
		logger.UserID(user.ID.String()),
		logger.Provider(nu.Provider))
	return &RegisterResult{User: user, Session: pair}, nil
}
