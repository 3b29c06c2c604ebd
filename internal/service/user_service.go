package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"findash/internal/auth"
	apperrors "findash/internal/errors"
	"findash/internal/model"
	"findash/internal/repository"
)

// NewUser is the input of a registration.
type NewUser struct {
	Username    string
	Email       string
	Password    string
	IsSuperuser bool
}

// UserService exposes domain operations.
type UserService interface {
	Register(ctx context.Context, in NewUser) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	Update(ctx context.Context, user *model.User, upd model.UserUpdate) (*model.User, error)
	UpdatePassword(ctx context.Context, user *model.User, newPassword string) (*model.User, error)
	ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error
	Delete(ctx context.Context, id uint) (*model.User, error)
}

type userService struct {
	repo   repository.UserRepository
	hasher auth.Hasher
	log    *logrus.Logger
}

// NewUserService builds a UserService over repo.
func NewUserService(repo repository.UserRepository, hasher auth.Hasher, log *logrus.Logger) UserService {
	return &userService{repo: repo, hasher: hasher, log: log}
}

// Register creates an active user. The email and username pre-checks give
// friendly conflicts; the unique indexes are the real guard.
func (s *userService) Register(ctx context.Context, in NewUser) (*model.User, error) {
	if err := s.ensureFree(ctx, "email", in.Email, 0); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, "username", in.Username, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  in.IsSuperuser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.raceConflict(ctx, in.Username, in.Email, 0, true)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return s.find(s.repo.FindByID(ctx, id))
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.find(s.repo.FindByUsername(ctx, username))
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.find(s.repo.FindByEmail(ctx, email))
}

func (s *userService) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	users, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update applies the fields present in upd. A username or email already used
// by another account is a conflict.
func (s *userService) Update(ctx context.Context, user *model.User, upd model.UserUpdate) (*model.User, error) {
	fields := map[string]interface{}{}

	if upd.Username.Present() && upd.Username.Value != user.Username {
		if err := s.ensureFree(ctx, "username", upd.Username.Value, user.ID); err != nil {
			return nil, err
		}
		fields["username"] = upd.Username.Value
	}
	if upd.Email.Present() && upd.Email.Value != user.Email {
		if err := s.ensureFree(ctx, "email", upd.Email.Value, user.ID); err != nil {
			return nil, err
		}
		fields["email"] = upd.Email.Value
	}
	if upd.IsActive.Present() {
		fields["is_active"] = upd.IsActive.Value
	}
	if upd.IsSuperuser.Present() {
		fields["is_superuser"] = upd.IsSuperuser.Value
	}

	if err := s.repo.Update(ctx, user, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.raceConflict(ctx, upd.Username.Value, upd.Email.Value, user.ID, false)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) UpdatePassword(ctx context.Context, user *model.User, newPassword string) (*model.User, error) {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user, map[string]interface{}{"hashed_password": hash}); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *userService) ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error {
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return apperrors.ErrIncorrectPassword
	}
	if oldPassword == newPassword {
		return apperrors.ErrSamePassword
	}
	if _, err := s.UpdatePassword(ctx, user, newPassword); err != nil {
		return err
	}
	s.log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

// Delete hard-deletes a user and returns the removed record.
func (s *userService) Delete(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user deleted")
	return user, nil
}

func (s *userService) find(user *model.User, err error) (*model.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// ensureFree fails with a ConflictError when value is used by a user other
// than owner. Registration names the value in the message; updates do not.
func (s *userService) ensureFree(ctx context.Context, field, value string, owner uint) error {
	var (
		existing *model.User
		err      error
	)
	if field == "email" {
		existing, err = s.repo.FindByEmail(ctx, value)
	} else {
		existing, err = s.repo.FindByUsername(ctx, value)
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check %s: %w", field, err)
	case existing.ID == owner:
		return nil
	case owner == 0:
		return &apperrors.ConflictError{Field: field, Value: value}
	default:
		return &apperrors.ConflictError{Field: field}
	}
}

// raceConflict names the field behind a unique index violation that slipped
// past the pre-checks.
func (s *userService) raceConflict(ctx context.Context, username, email string, owner uint, named bool) error {
	pick := func(field, value string) *apperrors.ConflictError {
		if named {
			return &apperrors.ConflictError{Field: field, Value: value}
		}
		return &apperrors.ConflictError{Field: field}
	}
	if email != "" {
		if u, err := s.repo.FindByEmail(ctx, email); err == nil && u.ID != owner {
			return pick("email", email)
		}
	}
	if username != "" {
		if u, err := s.repo.FindByUsername(ctx, username); err == nil && u.ID != owner {
			return pick("username", username)
		}
	}
	return &apperrors.ConflictError{}
}
