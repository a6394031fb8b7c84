package federation

import "errors"

// Error taxonomy. ProviderMismatch is deliberately absent: a mismatch
// is handled internally with sign-out + re-challenge and never surfaces
// to the caller as an error.
var (
	// ErrUnsupportedProvider: unknown caption or the none sentinel.
	ErrUnsupportedProvider = errors.New("unsupported login provider")

	// ErrMissingExternalIdentity: the authenticated context carries no
	// extractable external assertion after a callback.
	ErrMissingExternalIdentity = errors.New("missing external identity")

	// ErrExternalLoginNotFound: registration attempted without a
	// provisional external assertion attached to the current identity.
	ErrExternalLoginNotFound = errors.New("external login not found")

	// ErrLinkConflict: the (provider, providerKey) pair was linked by a
	// concurrent registration.
	ErrLinkConflict = errors.New("provider link conflict")
)
