// Package identity derives the sync engine's user id from an access token.
// The token is parsed without signature verification: this code runs on the
// user's own device against the user's own token, and authorization is
// enforced by the remote store's policy layer, which does verify.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDFromToken extracts the subject claim from a JWT access token.
func UserIDFromToken(token string) (string, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse access token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read subject claim: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("access token has no subject claim")
	}
	return sub, nil
}
