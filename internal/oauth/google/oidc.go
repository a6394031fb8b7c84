// Package google implements the OpenID Connect code flow against
// Google. Endpoints come from the discovery document and ID tokens are
// verified against the published JWKS, both cached in-process.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const discoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

type metadata struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type keySet struct {
	Keys []jwk `json:"keys"`
}

// Client is the Google OIDC relying-party client.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	http *http.Client

	mu     sync.RWMutex
	meta   *metadata
	metaAt time.Time
	keys   *keySet
	keysAt time.Time
	etag   string
}

// New builds the client. Default scopes request the profile claims the
// claims mapper consumes.
func New(clientID, clientSecret, redirectURL string, scopes []string) *Client {
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) discovery(ctx context.Context) (*metadata, error) {
	c.mu.RLock()
	meta := c.meta
	stale := time.Since(c.metaAt) > 24*time.Hour
	c.mu.RUnlock()
	if meta != nil && !stale {
		return meta, nil
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google discovery: %w", err)
	}
	defer resp.Body.Close()

	var m metadata
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("google discovery: %w", err)
	}

	c.mu.Lock()
	c.meta = &m
	c.metaAt = time.Now()
	c.mu.Unlock()
	return &m, nil
}

func (c *Client) jwks(ctx context.Context, uri string) (*keySet, error) {
	c.mu.RLock()
	ks := c.keys
	age := time.Since(c.keysAt)
	c.mu.RUnlock()
	if ks != nil && age < time.Hour {
		return ks, nil
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		c.mu.Lock()
		out := c.keys
		c.keysAt = time.Now()
		c.mu.Unlock()
		return out, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("google jwks: http %d", resp.StatusCode)
	}

	var fresh keySet
	if err := json.NewDecoder(resp.Body).Decode(&fresh); err != nil {
		return nil, fmt.Errorf("google jwks: %w", err)
	}

	c.mu.Lock()
	c.keys = &fresh
	c.keysAt = time.Now()
	c.etag = resp.Header.Get("ETag")
	c.mu.Unlock()
	return &fresh, nil
}

func (c *Client) rsaKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	meta, err := c.discovery(ctx)
	if err != nil {
		return nil, err
	}
	ks, err := c.jwks(ctx, meta.JWKSURI)
	if err != nil {
		return nil, err
	}
	for _, k := range ks.Keys {
		if k.Kid != kid || !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
		if e == 0 {
			e = 65537
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
	}
	return nil, fmt.Errorf("google jwks: kid %q not found", kid)
}

// AuthURL builds the authorization redirect for one login attempt.
func (c *Client) AuthURL(ctx context.Context, state string) (string, error) {
	meta, err := c.discovery(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(meta.AuthEndpoint)
	if err != nil {
		return "", fmt.Errorf("google auth endpoint: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", strings.Join(c.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// IDClaims are the verified identity claims from the ID token.
type IDClaims struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Exchange trades the authorization code for tokens and verifies the
// ID token before returning its claims.
func (c *Client) Exchange(ctx context.Context, code string) (*IDClaims, error) {
	meta, err := c.discovery(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, meta.TokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var body struct {
			Error string `json:"error"`
			Desc  string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("google token: http %d: %s %s", resp.StatusCode, body.Error, body.Desc)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("google token: %w", err)
	}
	if tr.IDToken == "" {
		return nil, errors.New("google token: no id_token in response")
	}
	return c.verifyIDToken(ctx, tr.IDToken)
}

func (c *Client) verifyIDToken(ctx context.Context, idToken string) (*IDClaims, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, errors.New("google id_token: bad format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, err
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("google id_token: unexpected alg %s", header.Alg)
	}

	key, err := c.rsaKey(ctx, header.Kid)
	if err != nil {
		return nil, err
	}
	tok, err := jwtv5.Parse(idToken,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}))
	if err != nil || !tok.Valid {
		return nil, errors.New("google id_token: invalid signature")
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("google id_token: claims type")
	}

	iss, _ := claims["iss"].(string)
	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, fmt.Errorf("google id_token: bad iss %q", iss)
	}

	audOK := false
	switch a := claims["aud"].(type) {
	case string:
		audOK = a == c.ClientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == c.ClientID {
				audOK = true
				break
			}
		}
	}
	if !audOK {
		return nil, errors.New("google id_token: bad aud")
	}

	if expf, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(time.Now().Add(-30 * time.Second)) {
			return nil, errors.New("google id_token: expired")
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("google id_token: no sub")
	}
	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return &IDClaims{
		Sub:           sub,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
		Picture:       picture,
	}, nil
}
