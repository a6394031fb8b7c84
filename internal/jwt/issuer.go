// Package jwt signs and verifies the EdDSA tokens that carry session
// identities (bearer and cookie) and nothing else. Claims semantics
// live in internal/federation.
package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer signs tokens with the process key.
type Issuer struct {
	iss  string
	keys *Keypair
}

func NewIssuer(iss string, keys *Keypair) *Issuer {
	return &Issuer{iss: iss, keys: keys}
}

// Iss returns the issuer claim value.
func (i *Issuer) Iss() string { return i.iss }

// Keyfunc returns a jwt.Keyfunc that resolves the verification key by
// the token's kid header, falling back to the active key.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.keys.KID {
			return nil, errors.New("jwt: unknown kid")
		}
		return ed25519.PublicKey(i.keys.Pub), nil
	}
}

// SignRaw signs arbitrary MapClaims, setting the kid/typ headers.
func (i *Issuer) SignRaw(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.keys.KID
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.keys.Priv)
}

// Sign issues a token for sub with standard claims plus extras, valid
// for ttl from now. Returns the signed token and its expiry.
func (i *Issuer) Sign(sub string, ttl time.Duration, extra map[string]any) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"iss": i.iss,
		"sub": sub,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	signed, err := i.SignRaw(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseVerify validates a token (signature, issuer, expiry) and returns
// its claims.
func (i *Issuer) ParseVerify(tokenString string) (jwtv5.MapClaims, error) {
	tk, err := jwtv5.Parse(tokenString, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.iss),
	)
	if err != nil || !tk.Valid {
		return nil, errors.New("jwt: invalid or expired token")
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("jwt: unexpected claims type")
	}
	return claims, nil
}
