// Package github implements OAuth 2.0 authentication with GitHub.
// GitHub issues no ID token, so identity comes from separate calls to
// the user and email APIs after the code exchange.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	authEndpoint  = "https://github.com/login/oauth/authorize"
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
	emailEndpoint = "https://api.github.com/user/emails"
)

// Client is the GitHub OAuth 2.0 client.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	http *http.Client
}

// New builds the client. Default scopes cover profile and email reads.
func New(clientID, clientSecret, redirectURL string, scopes []string) *Client {
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL builds the authorization redirect for one login attempt.
func (c *Client) AuthURL(ctx context.Context, state string) (string, error) {
	u, err := url.Parse(authEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", strings.Join(c.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// Account is the authenticated user's identity resolved from the API.
type Account struct {
	ID            string
	Login         string
	Name          string
	Email         string
	EmailVerified bool
	AvatarURL     string
}

// Exchange trades the authorization code for an access token and
// resolves the account behind it.
func (c *Client) Exchange(ctx context.Context, code string) (*Account, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github token: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("github token: %w", err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("github token: %s - %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("github token: no access_token in response")
	}

	return c.account(ctx, tr.AccessToken)
}

type userInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (c *Client) account(ctx context.Context, accessToken string) (*Account, error) {
	var info userInfo
	if err := c.apiGet(ctx, userEndpoint, accessToken, &info); err != nil {
		return nil, err
	}

	acct := &Account{
		ID:        strconv.FormatInt(info.ID, 10),
		Login:     info.Login,
		Name:      info.Name,
		Email:     info.Email,
		AvatarURL: info.AvatarURL,
	}
	if acct.Name == "" {
		acct.Name = info.Login
	}

	// The /user email may be hidden. The emails API tells us the
	// primary address and whether GitHub verified it.
	var emails []emailInfo
	if err := c.apiGet(ctx, emailEndpoint, accessToken, &emails); err == nil {
		if best := pickEmail(emails); best != nil {
			acct.Email = best.Email
			acct.EmailVerified = best.Verified
		}
	}
	if acct.Email == "" {
		return nil, fmt.Errorf("github user: no email available")
	}
	return acct, nil
}

func pickEmail(emails []emailInfo) *emailInfo {
	for i := range emails {
		if emails[i].Primary && emails[i].Verified {
			return &emails[i]
		}
	}
	for i := range emails {
		if emails[i].Verified {
			return &emails[i]
		}
	}
	if len(emails) > 0 {
		return &emails[0]
	}
	return nil
}

func (c *Client) apiGet(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
