package federation

import (
	"fmt"
	"net/url"
	"strings"
)

// LoginPath is the route descriptors point clients at.
const LoginPath = "/api/account/externalLogin"

// Descriptor advertises one provider to clients: the login URL with the
// anti-forgery state embedded, built per request and never persisted.
type Descriptor struct {
	Provider Provider
	URL      string
	State    string
}

// Registry enumerates the configured external providers. The set is
// fixed at startup and read-only afterwards, so no locking is needed.
type Registry struct {
	providers []Provider
	clientID  string
}

// NewRegistry parses the configured provider captions. An unknown
// caption fails construction: a registry misconfiguration must stop the
// process, not silently shrink the provider list.
func NewRegistry(captions []string, clientID string) (*Registry, error) {
	if len(captions) == 0 {
		return nil, fmt.Errorf("registry: no providers configured")
	}

	seen := make(map[Provider]bool, len(captions))
	providers := make([]Provider, 0, len(captions))
	for _, caption := range captions {
		p, err := ParseProvider(caption)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		providers = append(providers, p)
	}

	return &Registry{providers: providers, clientID: clientID}, nil
}

// Providers returns the configured provider set.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Has reports whether p is configured.
func (r *Registry) Has(p Provider) bool {
	for _, q := range r.providers {
		if q == p {
			return true
		}
	}
	return false
}

// List builds one descriptor per configured provider. With
// generateState true a single state token is generated and shared by
// every descriptor in the response: one login attempt, one token.
func (r *Registry) List(baseURL, returnURL string, generateState bool) ([]Descriptor, error) {
	redirect, err := absoluteRedirect(baseURL, returnURL)
	if err != nil {
		return nil, err
	}

	state := ""
	if generateState {
		state, err = GenerateStateToken(StateTokenBits)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Descriptor, 0, len(r.providers))
	for _, p := range r.providers {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + LoginPath)
		if err != nil {
			return nil, fmt.Errorf("registry: base url: %w", err)
		}
		q := u.Query()
		q.Set("provider", p.String())
		q.Set("response_type", "token")
		q.Set("client_id", r.clientID)
		q.Set("redirect_uri", redirect)
		if state != "" {
			q.Set("state", state)
		}
		u.RawQuery = q.Encode()

		out = append(out, Descriptor{Provider: p, URL: u.String(), State: state})
	}
	return out, nil
}

// absoluteRedirect resolves returnURL against baseURL, mirroring how
// the descriptor consumer will be redirected after sign-in.
func absoluteRedirect(baseURL, returnURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("registry: base url: %w", err)
	}
	ref, err := url.Parse(returnURL)
	if err != nil {
		return "", fmt.Errorf("registry: return url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
