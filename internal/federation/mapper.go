package federation

import (
	"errors"
	"strconv"

	"github.com/fedgate/fedgate/internal/store/core"
)

// ClaimsMapper converts an assertion (plus, when linked, the local user
// record) into a canonical claim set. The orchestrator picks the
// variant from a single boolean: was a ProviderLink found.
type ClaimsMapper interface {
	MapClaims() (SessionClaimSet, error)
}

// RegisteredExternal maps claims for an assertion whose provider link
// resolved to a local user. Identity attributes come from the local
// record; the assertion only contributes the provider annotation.
type RegisteredExternal struct {
	User  *core.User
	Login *ExternalLoginAssertion
}

func (m *RegisteredExternal) MapClaims() (SessionClaimSet, error) {
	if m.User == nil || m.Login == nil {
		return SessionClaimSet{}, errors.New("claims: registered mapping requires user and assertion")
	}

	var cs SessionClaimSet
	cs.Set(ClaimSubject, m.User.ID.String())
	cs.Set(ClaimEmail, m.User.Email)
	cs.Set(ClaimName, m.User.FullName)
	cs.Set(ClaimAvatarURL, m.User.AvatarURL)
	cs.Set(ClaimEmailVerified, strconv.FormatBool(m.User.EmailVerified))
	cs.Set(ClaimProvider, m.Login.Provider.String())
	cs.Set(ClaimProviderKey, m.Login.ProviderKey)
	cs.Set(ClaimRegistered, "true")
	return cs, nil
}

// NotRegisteredExternal maps claims for a provisional identity: the
// assertion is the only source, no local user id exists, and the
// linkage flag is false. The identity lives only as long as the bearer
// token; expiry before registration forces a fresh challenge.
type NotRegisteredExternal struct {
	Login *ExternalLoginAssertion
}

func (m *NotRegisteredExternal) MapClaims() (SessionClaimSet, error) {
	if m.Login == nil {
		return SessionClaimSet{}, errors.New("claims: provisional mapping requires an assertion")
	}

	var cs SessionClaimSet
	cs.Set(ClaimSubject, m.Login.Provider.String()+":"+m.Login.ProviderKey)
	cs.Set(ClaimEmail, m.Login.Email())
	cs.Set(ClaimName, m.Login.Name())
	cs.Set(ClaimAvatarURL, m.Login.AvatarURL())
	cs.Set(ClaimProvider, m.Login.Provider.String())
	cs.Set(ClaimProviderKey, m.Login.ProviderKey)
	cs.Set(ClaimRegistered, "false")
	return cs, nil
}
