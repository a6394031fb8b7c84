package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Keypair holds the process signing key. There is no rotation here:
// bearer identities are short-lived and cookie identities are bounded
// by their own TTL, so a restart with a new ephemeral key only forces
// re-login.
type Keypair struct {
	KID  string
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
}

// LoadOrGenerateKey reads a base64 ed25519 seed from keyFile, or
// generates an ephemeral key when keyFile is empty.
func LoadOrGenerateKey(keyFile string) (*Keypair, error) {
	if keyFile == "" {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("jwt: generate key: %w", err)
		}
		return newKeypair(priv, pub), nil
	}

	b, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("jwt: read key file: %w", err)
	}
	seed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("jwt: decode key file: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwt: key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return newKeypair(priv, priv.Public().(ed25519.PublicKey)), nil
}

func newKeypair(priv ed25519.PrivateKey, pub ed25519.PublicKey) *Keypair {
	sum := sha256.Sum256(pub)
	return &Keypair{
		KID:  hex.EncodeToString(sum[:8]),
		Priv: priv,
		Pub:  pub,
	}
}
