package federation

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// StateTokenBits is the entropy of the anti-forgery state token bound
// to one login attempt.
const StateTokenBits = 256

// GenerateStateToken returns a random token with at least strengthBits
// bits of entropy, base64url-encoded without padding so it never needs
// escaping inside a query string. A failing randomness source aborts
// generation; there is no weaker fallback.
func GenerateStateToken(strengthBits uint) (string, error) {
	if strengthBits == 0 {
		strengthBits = StateTokenBits
	}
	b := make([]byte, (strengthBits+7)/8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("state token: randomness source failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
