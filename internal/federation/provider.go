// Package federation implements the external-identity federation
// engine: the provider registry, the anti-forgery state token, the
// assertion extractor, the claims mappers and the orchestrator that
// turns an external authentication assertion into a session identity.
package federation

import (
	"fmt"
	"strings"
)

// Provider is the closed set of supported external login providers.
// ProviderNone is the reject-by-default sentinel for unknown captions.
type Provider int

const (
	ProviderNone Provider = iota
	ProviderGoogle
	ProviderGitHub
)

var providerNames = map[Provider]string{
	ProviderNone:   "none",
	ProviderGoogle: "google",
	ProviderGitHub: "github",
}

func (p Provider) String() string {
	if s, ok := providerNames[p]; ok {
		return s
	}
	return "none"
}

// ParseProvider resolves a provider caption case-insensitively. Unknown
// captions and the none sentinel both fail: misconfiguration is a
// correctness bug, not a runtime condition to swallow.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google":
		return ProviderGoogle, nil
	case "github":
		return ProviderGitHub, nil
	default:
		return ProviderNone, fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}
