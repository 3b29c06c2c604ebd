package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"findash/internal/auth"
	apperrors "findash/internal/errors"
	"findash/internal/metrics"
	"findash/internal/model"
	"findash/internal/repository"
)

// AuthService handles authentication operations.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*auth.IssuedToken, *model.User, error)
	ResolveCurrentUser(ctx context.Context, token string) (*model.User, *auth.TokenClaims, error)
	Logout(ctx context.Context, claims *auth.TokenClaims) error
}

// AuthOption customizes an AuthService.
type AuthOption func(*authService)

// WithClock replaces time.Now for token issue and validation.
func WithClock(now func() time.Time) AuthOption {
	return func(s *authService) { s.now = now }
}

type authService struct {
	users      repository.UserRepository
	hasher     auth.Hasher
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	log        *logrus.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	hasher auth.Hasher,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	log *logrus.Logger,
	opts ...AuthOption,
) AuthService {
	s := &authService{
		users:      users,
		hasher:     hasher,
		jwtService: jwtService,
		tokenStore: tokenStore,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate returns the user whose password matches. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials after a full hash check.
func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash := s.dummy()
	if user != nil {
		hash = user.PasswordHash
	}
	if !s.hasher.Verify(password, hash) || user == nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token for an active user.
func (s *authService) Login(ctx context.Context, username, password string) (*auth.IssuedToken, *model.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			metrics.RecordLogin("invalid")
		}
		return nil, nil, err
	}
	if !user.IsActive {
		metrics.RecordLogin("inactive")
		return nil, nil, apperrors.ErrInactiveUser
	}

	token, err := s.jwtService.Issue(user.Username, s.now())
	if err != nil {
		return nil, nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.RecordLogin("ok")
	s.log.WithField("username", user.Username).Info("access token issued")
	return token, user, nil
}

// ResolveCurrentUser validates token and loads its subject. The user is read
// on every call so deletions take effect before the token expires.
func (s *authService) ResolveCurrentUser(ctx context.Context, token string) (*model.User, *auth.TokenClaims, error) {
	claims, err := s.jwtService.Validate(token, s.now())
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}

	revoked, err := s.tokenStore.IsAccessTokenBlacklisted(ctx, claims.ID)
	if err != nil || revoked {
		return nil, nil, apperrors.ErrInvalidToken
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	return user, claims, nil
}

// Logout revokes the token until its natural expiry.
func (s *authService) Logout(ctx context.Context, claims *auth.TokenClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return apperrors.ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.tokenStore.BlacklistAccessToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.log.WithField("username", claims.Subject).Info("access token revoked")
	return nil
}

// dummy returns a hash of a random-looking password so that lookups of
// unknown users cost one verification too.
func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("findash-timing-equalizer")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
