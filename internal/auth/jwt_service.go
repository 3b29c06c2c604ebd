package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "findash/internal/errors"
)

// DefaultAccessTokenTTL is the lifetime of access tokens when none is configured.
const DefaultAccessTokenTTL = 30 * time.Minute

// TokenClaims are the claims carried by an access token.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed access token.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// JWTService handles access token generation and validation.
type JWTService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	parser *jwt.Parser
}

// NewJWTService creates a JWT service for the given secret, HMAC algorithm
// name and token lifetime.
func NewJWTService(secret, algorithm string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &JWTService{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		// Expiry is checked against the caller's clock in Validate.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the configured access token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject, valid from now until now+TTL.
func (s *JWTService) Issue(subject string, now time.Time) (*IssuedToken, error) {
	now = now.UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{Token: signed, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

// Validate verifies the signature and expiry of token at now. Every failure is
// reported as ErrInvalidToken.
func (s *JWTService) Validate(token string, now time.Time) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, apperrors.ErrInvalidToken
	}
	if now.After(claims.ExpiresAt.Time) {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
