package service

import (
	"testing"
	"time"

	apperrors "warehouse-system/pkg/errors"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestJWT(now time.Time) *jwtService {
	s := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop()).(*jwtService)
	s.now = func() time.Time { return now }
	return s
}

func TestJWT_GenerateAndValidate(t *testing.T) {
	s := newTestJWT(time.Now())

	access, refresh, err := s.GenerateTokens(42)
	require.NoError(t, err)

	claims, err := s.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.False(t, claims.IsRefreshToken)
	assert.Equal(t, "42", claims.Subject)

	claims, err = s.ValidateToken(refresh)
	require.NoError(t, err)
	assert.True(t, claims.IsRefreshToken)
}

func TestJWT_Expired(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	s := newTestJWT(issued)
	access, _, err := s.GenerateTokens(1)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(access)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWT_WrongSecretAndGarbage(t *testing.T) {
	s := newTestJWT(time.Now())
	access, _, err := s.GenerateTokens(1)
	require.NoError(t, err)

	other := newTestJWT(time.Now())
	other.secretKey = "other"
	_, err = other.ValidateToken(access)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWT_RejectsNoneAlgorithm(t *testing.T) {
	s := newTestJWT(time.Now())
	claims := &JwtCustomClaim{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.Error(t, err)
}
