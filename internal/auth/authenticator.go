package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential has expired")
)

// Authenticator maps a client-presented credential to a stable user id.
// Invoked once per connection before register is trusted; this subsystem
// never generates user ids itself.
type Authenticator interface {
	CurrentUserID(credential string) (string, error)
}

// claims mirrors the tokens minted by the account service: an HS256 JWT
// whose `id` claim carries the user id.
type claims struct {
	jwt.RegisteredClaims
	ID string `json:"id"`
}

type jwtAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates an Authenticator that verifies HS256 tokens
// signed with the shared secret.
func NewJWTAuthenticator(secret string) Authenticator {
	return &jwtAuthenticator{secret: []byte(secret)}
}

func (a *jwtAuthenticator) CurrentUserID(credential string) (string, error) {
	token, err := jwt.ParseWithClaims(credential, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredCredential
		}
		return "", ErrInvalidCredential
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.ID == "" {
		return "", ErrInvalidCredential
	}
	return c.ID, nil
}
