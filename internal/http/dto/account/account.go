// Package account defines the wire types of the account endpoints.
package account

// ExternalLoginDTO is one entry of the externalLogins listing.
type ExternalLoginDTO struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	State string `json:"state,omitempty"`
}

// AccessTokenDTO is the bearer representation handed to API clients.
type AccessTokenDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LoginResultDTO is the externalLogin success payload.
type LoginResultDTO struct {
	AccessTokenDTO
	IsRegistered  bool   `json:"isRegistered"`
	LoginProvider string `json:"loginProvider"`
}

// RegisterExternalRequest is the registerExternal body. The identity
// itself comes from the provisional token, not the body; the body only
// lets the client override the display name.
type RegisterExternalRequest struct {
	FullName string `json:"fullName,omitempty"`
}

// UserDTO is the public shape of a registered user.
type UserDTO struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// RegisterResultDTO is the registerExternal success payload.
type RegisterResultDTO struct {
	User UserDTO `json:"user"`
	AccessTokenDTO
}

// UserInfoDTO is the userInfo payload.
type UserInfoDTO struct {
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	IsRegistered  bool   `json:"isRegistered"`
	LoginProvider string `json:"loginProvider"`
}
