package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "findash/internal/errors"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		algorithm string
		wantErr   bool
	}{
		{name: "hs256", secret: "s", algorithm: "HS256"},
		{name: "hs512", secret: "s", algorithm: "HS512"},
		{name: "empty secret", secret: "", algorithm: "HS256", wantErr: true},
		{name: "asymmetric algorithm", secret: "s", algorithm: "RS256", wantErr: true},
		{name: "unknown algorithm", secret: "s", algorithm: "none", wantErr: true},
		{name: "lowercase algorithm", secret: "s", algorithm: "hs256", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewJWTService(tt.secret, tt.algorithm, time.Minute)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	issued, err := svc.Issue("alice", now)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, now.Add(30*time.Minute), issued.ExpiresAt)

	claims, err := svc.Validate(issued.Token, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, now, claims.IssuedAt.Time.UTC())
}

func TestJWTService_ExpiryBoundary(t *testing.T) {
	svc := newTestJWTService(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issued, err := svc.Issue("alice", now)
	require.NoError(t, err)

	_, err = svc.Validate(issued.Token, issued.ExpiresAt)
	assert.NoError(t, err, "accepted at the expiry instant")

	_, err = svc.Validate(issued.Token, issued.ExpiresAt.Add(time.Nanosecond))
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWTService_RejectsTampering(t *testing.T) {
	svc := newTestJWTService(t)
	now := time.Now()
	issued, err := svc.Issue("alice", now)
	require.NoError(t, err)

	other, err := NewJWTService("other-secret", "HS256", time.Minute)
	require.NoError(t, err)
	forged, err := other.Issue("alice", now)
	require.NoError(t, err)

	hs512, err := NewJWTService("test-secret", "HS512", time.Minute)
	require.NoError(t, err)
	wrongAlg, err := hs512.Issue("alice", now)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":         "not-a-token",
		"empty":           "",
		"truncated":       issued.Token[:len(issued.Token)-4],
		"foreign secret":  forged.Token,
		"other algorithm": wrongAlg.Token,
		"no subject":      noSubject,
		"no expiry":       noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			claims, err := svc.Validate(token, now)
			assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}
