package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/logging"
	"github.com/dputra/mailroom/internal/server/models"
)

// JWKSGate verifies RS256 tokens against the identity provider's JWKS
// endpoint. Keys are fetched over HTTP and refreshed in the background, so
// key rotation at the provider needs no service restart.
type JWKSGate struct {
	jwks   keyfunc.Keyfunc
	leeway time.Duration
}

// JWKSGateConfig carries the JWKS endpoint settings.
type JWKSGateConfig struct {
	// URL of the provider's JWKS endpoint.
	URL string
	// RefreshInterval between background key refreshes.
	RefreshInterval time.Duration
	// ClientTimeout for JWKS HTTP requests.
	ClientTimeout time.Duration
	// Leeway tolerated when checking token time claims.
	Leeway time.Duration
}

// NewJWKSGate builds a gate backed by the given JWKS endpoint.
// NoErrorReturnFirstHTTPReq allows the service to start even when the
// provider is not reachable yet, e.g. during simultaneous deploys.
func NewJWKSGate(ctx context.Context, cfg JWKSGateConfig, logger logging.Logger) (*JWKSGate, error) {
	if cfg.ClientTimeout == 0 {
		cfg.ClientTimeout = 10 * time.Second
	}
	storage, err := jwkset.NewStorageFromHTTP(cfg.URL, jwkset.HTTPClientStorageOptions{
		Ctx:                       ctx,
		Client:                    &http.Client{Timeout: cfg.ClientTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			logger.Error(ctx, "jwks refresh failed", "error", err.Error(), "url", cfg.URL)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}

	return &JWKSGate{jwks: k, leeway: cfg.Leeway}, nil
}

// Authenticate implements Gate.
func (g *JWKSGate) Authenticate(_ context.Context, tokenString string) (models.Actor, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, g.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithLeeway(g.leeway),
	)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return models.Actor{}, common.ErrInvalidToken
	}

	return actorFromClaims(claims)
}
