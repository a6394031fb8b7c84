package federation

// Claim types carried by session identities. The auth-type claim is
// representation metadata; everything else is identity and must be
// byte-identical between the bearer and cookie tokens of one sign-in.
const (
	ClaimSubject       = "sub"
	ClaimEmail         = "email"
	ClaimName          = "name"
	ClaimAvatarURL     = "picture"
	ClaimEmailVerified = "email_verified"

	// ClaimProvider is the originating external provider caption.
	ClaimProvider = "idp"
	// ClaimProviderKey is the provider-scoped subject key.
	ClaimProviderKey = "idp_sub"
	// ClaimRegistered is the linkage flag: "true" once a ProviderLink
	// backs this identity.
	ClaimRegistered = "registered"

	// ClaimAuthType distinguishes the bearer and cookie
	// representations. Not part of the identity.
	ClaimAuthType = "auth_type"
)

// Claim is one typed attribute of a session identity.
type Claim struct {
	Type  string
	Value string
}

// SessionClaimSet is an ordered claim mapping. Order is preserved so
// the two token representations serialize the same identity the same
// way.
type SessionClaimSet struct {
	claims []Claim
}

// Set appends or replaces the claim for typ.
func (cs *SessionClaimSet) Set(typ, value string) {
	for i := range cs.claims {
		if cs.claims[i].Type == typ {
			cs.claims[i].Value = value
			return
		}
	}
	cs.claims = append(cs.claims, Claim{Type: typ, Value: value})
}

// Get returns the claim value for typ, or "".
func (cs *SessionClaimSet) Get(typ string) string {
	for _, c := range cs.claims {
		if c.Type == typ {
			return c.Value
		}
	}
	return ""
}

// Has reports whether typ is present.
func (cs *SessionClaimSet) Has(typ string) bool {
	for _, c := range cs.claims {
		if c.Type == typ {
			return true
		}
	}
	return false
}

// Claims returns the claims in insertion order.
func (cs *SessionClaimSet) Claims() []Claim {
	out := make([]Claim, len(cs.claims))
	copy(out, cs.claims)
	return out
}

// Len returns the number of claims.
func (cs *SessionClaimSet) Len() int { return len(cs.claims) }
