package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims *models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:   "coordinator-1",
		Role:     models.RoleCoordinator,
		Timezone: "Europe/Berlin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", Issuer: "identity"})

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "coordinator-1", claims.UserID)
	assert.Equal(t, "Europe/Berlin", claims.Timezone)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", Issuer: "identity"})

	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims())
	expiredClaims := validClaims()
	expiredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired := signToken(t, jwt.SigningMethodHS256, []byte("secret"), expiredClaims)
	otherIssuerClaims := validClaims()
	otherIssuerClaims.Issuer = "elsewhere"
	otherIssuer := signToken(t, jwt.SigningMethodHS256, []byte("secret"), otherIssuerClaims)
	noUserClaims := validClaims()
	noUserClaims.UserID = ""
	noUser := signToken(t, jwt.SigningMethodHS256, []byte("secret"), noUserClaims)

	for name, token := range map[string]string{"wrong key": wrongKey, "expired": expired, "issuer": otherIssuer, "no user": noUser, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}
