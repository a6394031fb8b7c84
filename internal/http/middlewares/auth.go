package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/fedgate/fedgate/internal/federation"
)

// TokenVerifier validates a compact token and returns its claims.
// Satisfied by the jwt issuer.
type TokenVerifier interface {
	ParseVerify(tokenString string) (jwtv5.MapClaims, error)
}

type authCtxKey struct{}

// WithAuthContext resolves the request's identity from, in order, the
// Authorization header, the external cookie and the session cookie.
// The first verifiable token wins. A token is only honored on the
// transport matching its auth_type claim, so a cookie token pasted
// into the Authorization header does not authenticate.
func WithAuthContext(verifier TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := resolveAuth(verifier, r)
			ctx := context.WithValue(r.Context(), authCtxKey{}, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuth returns the request's auth context, never nil.
func GetAuth(ctx context.Context) *federation.AuthContext {
	if v, ok := ctx.Value(authCtxKey{}).(*federation.AuthContext); ok && v != nil {
		return v
	}
	return &federation.AuthContext{}
}

func resolveAuth(verifier TokenVerifier, r *http.Request) *federation.AuthContext {
	type candidate struct {
		token string
		scope federation.AuthScope
	}
	var candidates []candidate

	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			candidates = append(candidates, candidate{
				token: strings.TrimSpace(h[len("bearer "):]),
				scope: federation.ScopeBearer,
			})
		}
	}
	if ck, err := r.Cookie(federation.ExternalCookieName); err == nil && ck.Value != "" {
		candidates = append(candidates, candidate{token: ck.Value, scope: federation.ScopeExternalCookie})
	}
	if ck, err := r.Cookie(federation.SessionCookieName); err == nil && ck.Value != "" {
		candidates = append(candidates, candidate{token: ck.Value, scope: federation.ScopeApplicationCookie})
	}

	for _, c := range candidates {
		claims, err := verifier.ParseVerify(c.token)
		if err != nil {
			continue
		}
		if at, _ := claims[federation.ClaimAuthType].(string); at != string(c.scope) {
			continue
		}
		return &federation.AuthContext{
			Authenticated: true,
			Scope:         c.scope,
			Claims:        flattenClaims(claims),
		}
	}
	return &federation.AuthContext{}
}

func flattenClaims(claims jwtv5.MapClaims) map[string]string {
	out := make(map[string]string, len(claims))
	for k, v := range claims {
		switch t := v.(type) {
		case string:
			out[k] = t
		case bool:
			out[k] = strconv.FormatBool(t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', 0, 64)
		}
	}
	return out
}
