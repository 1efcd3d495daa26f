package sdk

import "time"

// UserCredential identifies a test user by email and password.
// The password is only used for the duration of a single token request.
type UserCredential struct {
	Email    string `json:"email" mapstructure:"email"`
	Password string `json:"password" mapstructure:"password"`
}

// Valid reports whether both email and password are set.
func (u UserCredential) Valid() bool {
	return u.Email != "" && u.Password != ""
}

// Credentials represents an access token as returned by the identity provider.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the token is past its expiry. A zero ExpiresAt never expires.
func (c *Credentials) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// AccessTokenKey is the cache key for a user's access token.
func AccessTokenKey(email string) string {
	return email
}

// UserIDKey is the cache key for a user's resolved id.
func UserIDKey(email string) string {
	return email + "_id"
}
