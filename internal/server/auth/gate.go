package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/server/models"
)

// Gate authenticates a caller's bearer token and resolves the actor.
type Gate interface {
	// Authenticate verifies token and returns the actor it identifies.
	// Returns common.ErrInvalidToken for malformed, expired or otherwise
	// unverifiable tokens.
	Authenticate(ctx context.Context, token string) (models.Actor, error)
}

// ActorFromAuthHeader strips the Bearer scheme from an Authorization
// header value and authenticates the remaining token through gate.
func ActorFromAuthHeader(ctx context.Context, gate Gate, header string) (models.Actor, error) {
	if header == "" {
		return models.Actor{}, common.ErrorUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.Actor{}, common.ErrorInvalidAuthHeaderFormat
	}
	return gate.Authenticate(ctx, parts[1])
}

// HMACGate verifies HS256 tokens with a shared secret.
type HMACGate struct {
	secretKey []byte
}

// NewHMACGate builds a gate for the given shared secret.
func NewHMACGate(secretKey []byte) *HMACGate {
	return &HMACGate{secretKey: secretKey}
}

// Authenticate implements Gate.
func (g *HMACGate) Authenticate(_ context.Context, tokenString string) (models.Actor, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secretKey, nil
	})
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return models.Actor{}, common.ErrInvalidToken
	}

	return actorFromClaims(claims)
}
