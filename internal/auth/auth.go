package auth

import "github.com/golang-jwt/jwt/v5"

// Authenticator validates the bearer tokens the identity provider hands the
// UI at login. This service never issues end-user credentials itself; it
// only checks them to decide which cart tier a session belongs to.
type Authenticator interface {
	ValidateAccessToken(token string) (*jwt.Token, error)
	Subject(token *jwt.Token) (string, error)
}
