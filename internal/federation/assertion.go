package federation

// ExternalLoginAssertion is the normalized result of an external
// provider's authentication, consumed once per callback.
type ExternalLoginAssertion struct {
	Provider    Provider
	ProviderKey string
	RawClaims   map[string]string
}

// Email returns the email claim from the raw assertion, or "".
func (a *ExternalLoginAssertion) Email() string { return a.RawClaims[ClaimEmail] }

// Name returns the display-name claim from the raw assertion, or "".
func (a *ExternalLoginAssertion) Name() string { return a.RawClaims[ClaimName] }

// AvatarURL returns the avatar claim from the raw assertion, or "".
func (a *ExternalLoginAssertion) AvatarURL() string { return a.RawClaims[ClaimAvatarURL] }

// AuthContext is the authenticated state of the current request as
// established by the transport layer (bearer token or cookie).
type AuthContext struct {
	Authenticated bool
	// Scope identifies which representation authenticated the request.
	Scope AuthScope
	// Claims is the verified claim mapping from the token.
	Claims map[string]string
}

// ExtractAssertion reads the external assertion out of an authenticated
// context. It returns nil, never an error, when the minimal claim set
// (provider caption + provider-scoped subject) is absent: on the first
// hop of the handshake absence is the expected outcome.
func ExtractAssertion(auth *AuthContext) *ExternalLoginAssertion {
	if auth == nil || !auth.Authenticated || len(auth.Claims) == 0 {
		return nil
	}

	caption := auth.Claims[ClaimProvider]
	key := auth.Claims[ClaimProviderKey]
	if caption == "" || key == "" {
		return nil
	}

	provider, err := ParseProvider(caption)
	if err != nil {
		return nil
	}

	raw := make(map[string]string, len(auth.Claims))
	for k, v := range auth.Claims {
		raw[k] = v
	}

	return &ExternalLoginAssertion{
		Provider:    provider,
		ProviderKey: key,
		RawClaims:   raw,
	}
}
