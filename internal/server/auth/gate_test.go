package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/server/models"
)

var testActor = models.Actor{
	ID:    "user-1",
	Name:  "Siti",
	Email: "siti@example.com",
	Role:  "petugas",
}

func TestHMACGate_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken(testActor, secret, time.Hour)
	require.NoError(t, err)

	actor, err := NewHMACGate(secret).Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, testActor, actor)
}

func TestHMACGate_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testActor, []byte("right"), time.Hour)
	require.NoError(t, err)

	_, err = NewHMACGate([]byte("wrong")).Authenticate(context.Background(), token)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestHMACGate_ExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(testActor, secret, -time.Minute)
	require.NoError(t, err)

	_, err = NewHMACGate(secret).Authenticate(context.Background(), token)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestHMACGate_MalformedToken(t *testing.T) {
	_, err := NewHMACGate([]byte("s")).Authenticate(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestHMACGate_MissingSubject(t *testing.T) {
	secret := []byte("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "anon@example.com",
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = NewHMACGate(secret).Authenticate(context.Background(), signed)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestActorFromAuthHeader(t *testing.T) {
	secret := []byte("test-secret")
	gate := NewHMACGate(secret)
	token, err := GenerateToken(testActor, secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "valid bearer", header: "Bearer " + token, wantErr: nil},
		{name: "case-insensitive scheme", header: "bearer " + token, wantErr: nil},
		{name: "empty header", header: "", wantErr: common.ErrorUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantErr: common.ErrorInvalidAuthHeaderFormat},
		{name: "no token", header: "Bearer", wantErr: common.ErrorInvalidAuthHeaderFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actor, err := ActorFromAuthHeader(context.Background(), gate, tc.header)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testActor.ID, actor.ID)
		})
	}
}

func TestActor_Helpers(t *testing.T) {
	assert.True(t, models.Actor{Role: "admin"}.IsAdmin())
	assert.False(t, models.Actor{Role: "petugas"}.IsAdmin())

	assert.Equal(t, "Siti", testActor.DisplayName())
	assert.Equal(t, "no-name@example.com", models.Actor{Email: "no-name@example.com"}.DisplayName())
	assert.Equal(t, "siti@example.com", testActor.AuditIdentity())
	assert.Equal(t, "user-9", models.Actor{ID: "user-9"}.AuditIdentity())
}
