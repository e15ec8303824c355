// Package auth issues and validates the tokens of covalic users, and
// hashes their passwords.
//
// A token on the wire is an HS256 JWT whose jti is the ID of a stored
// token document. Removing the document revokes the token.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/ctfer-io/covalic/pkg/model"
)

// TokenHeader is the alternative header carrying a token.
const TokenHeader = "Covalic-Token"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"userId"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs the token document.
func GenerateToken(secret string, tok *model.Token) (string, error) {
	claims := Claims{
		UserID: tok.UserID,
		Scope:  tok.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tok.ID,
			Subject:   tok.UserID,
			ExpiresAt: jwt.NewNumericDate(tok.Expires),
			IssuedAt:  jwt.NewNumericDate(tok.Created),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken checks the signature and expiration of a token, and
// returns its claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FromRequest extracts the raw token of a request, from either the
// Authorization bearer or the Covalic-Token header.
func FromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.Header.Get(TokenHeader)
}
