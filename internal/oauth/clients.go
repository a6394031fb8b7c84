// Package oauth hosts the per-provider clients and the registry that
// presents them behind one provider-keyed surface.
package oauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedgate/fedgate/internal/config"
	"github.com/fedgate/fedgate/internal/federation"
	"github.com/fedgate/fedgate/internal/oauth/github"
	"github.com/fedgate/fedgate/internal/oauth/google"
)

// CallbackPath is where every provider redirects after consent. The
// provider is identified by query so one registered redirect serves
// the whole flow.
const CallbackPath = "/api/account/externalLogin/callback"

// Profile is the provider-neutral identity a client resolves from one
// authorization code.
type Profile struct {
	ProviderKey   string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// Client is one provider's handshake: build the consent redirect, then
// trade the returned code for a profile.
type Client interface {
	AuthURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Clients keys the configured provider clients by provider.
type Clients struct {
	byProvider map[federation.Provider]Client
}

// NewClients builds a client per configured provider. Captions must
// already be valid: the registry validated them at startup.
func NewClients(baseURL string, providers map[string]config.ProviderConfig) (*Clients, error) {
	redirect := redirectURL(baseURL)

	out := &Clients{byProvider: make(map[federation.Provider]Client, len(providers))}
	for caption, pc := range providers {
		p, err := federation.ParseProvider(caption)
		if err != nil {
			return nil, fmt.Errorf("oauth clients: %w", err)
		}
		switch p {
		case federation.ProviderGoogle:
			out.byProvider[p] = &googleClient{
				c: google.New(pc.ClientID, pc.ClientSecret, redirect+"?provider="+p.String(), pc.Scopes),
			}
		case federation.ProviderGitHub:
			out.byProvider[p] = &githubClient{
				c: github.New(pc.ClientID, pc.ClientSecret, redirect+"?provider="+p.String(), pc.Scopes),
			}
		default:
			return nil, fmt.Errorf("oauth clients: no client for %s", p)
		}
	}
	return out, nil
}

func redirectURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + CallbackPath
}

// Get returns the client for p.
func (c *Clients) Get(p federation.Provider) (Client, error) {
	cl, ok := c.byProvider[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", federation.ErrUnsupportedProvider, p)
	}
	return cl, nil
}

// AuthURL satisfies the issuer's challenge dependency.
func (c *Clients) AuthURL(p federation.Provider, state string) (string, error) {
	cl, err := c.Get(p)
	if err != nil {
		return "", err
	}
	return cl.AuthURL(context.Background(), state)
}

// Exchange resolves a provider callback code into a profile.
func (c *Clients) Exchange(ctx context.Context, p federation.Provider, code string) (*Profile, error) {
	cl, err := c.Get(p)
	if err != nil {
		return nil, err
	}
	return cl.Exchange(ctx, code)
}

type googleClient struct {
	c *google.Client
}

func (g *googleClient) AuthURL(ctx context.Context, state string) (string, error) {
	return g.c.AuthURL(ctx, state)
}

func (g *googleClient) Exchange(ctx context.Context, code string) (*Profile, error) {
	claims, err := g.c.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ProviderKey:   claims.Sub,
		Email:         claims.Email,
		Name:          claims.Name,
		AvatarURL:     claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}

type githubClient struct {
	c *github.Client
}

func (g *githubClient) AuthURL(ctx context.Context, state string) (string, error) {
	return g.c.AuthURL(ctx, state)
}

func (g *githubClient) Exchange(ctx context.Context, code string) (*Profile, error) {
	acct, err := g.c.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ProviderKey:   acct.ID,
		Email:         acct.Email,
		Name:          acct.Name,
		AvatarURL:     acct.AvatarURL,
		EmailVerified: acct.EmailVerified,
	}, nil
}
