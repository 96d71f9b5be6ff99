// Package auth implements the access gate: it validates bearer tokens
// issued by the identity provider and resolves the staff actor identity
// stamped on custody records and audit entries.
//
// Two verification modes exist: a shared-secret HS256 mode for local and
// test deployments, and an RS256 mode that fetches the provider's JWKS,
// delegating key management entirely to the external IdP.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/server/models"
)

// Claims carries the registered claims plus the identity attributes the
// provider includes in its tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// GenerateToken issues an HS256 token for the given actor. Used by tests
// and by local tooling; production tokens come from the identity provider.
func GenerateToken(actor models.Actor, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Name:  actor.Name,
		Email: actor.Email,
		Role:  actor.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func actorFromClaims(claims *Claims) (models.Actor, error) {
	if claims.Subject == "" {
		return models.Actor{}, common.ErrInvalidToken
	}
	return models.Actor{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
