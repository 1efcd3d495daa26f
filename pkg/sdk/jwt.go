package sdk

import (
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// accessTokenAlgorithms lists the signature algorithms accepted when reading
// claims from an access token. The signature is never verified here.
var accessTokenAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.HS256,
}

// jwtExpiry returns the exp claim of token when token is a JWT carrying one.
// Opaque tokens report false.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	parsed, err := jwt.ParseSigned(token, accessTokenAlgorithms)
	if err != nil {
		return time.Time{}, false
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, false
	}
	if claims.Expiry == nil {
		return time.Time{}, false
	}
	return claims.Expiry.Time(), true
}

// CredentialsFor describes an access token, reading its expiry from the exp
// claim when the token is a JWT.
func CredentialsFor(token string) *Credentials {
	creds := &Credentials{AccessToken: token, TokenType: "Bearer"}
	if exp, ok := jwtExpiry(token); ok {
		creds.ExpiresAt = exp
	}
	return creds
}
