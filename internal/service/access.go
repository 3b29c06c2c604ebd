package service

import (
	apperrors "findash/internal/errors"
	"findash/internal/model"
)

// RequireActive rejects deactivated accounts.
func RequireActive(user *model.User) (*model.User, error) {
	if user == nil {
		return nil, apperrors.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, apperrors.ErrInactiveUser
	}
	return user, nil
}

// RequireSuperuser rejects active users without the superuser flag.
func RequireSuperuser(user *model.User) (*model.User, error) {
	user, err := RequireActive(user)
	if err != nil {
		return nil, err
	}
	if !user.IsSuperuser {
		return nil, apperrors.ErrNotSuperuser
	}
	return user, nil
}

// CanAccessUser allows superusers and the account owner.
func CanAccessUser(actor *model.User, id uint) error {
	if actor.IsSuperuser || actor.ID == id {
		return nil
	}
	return apperrors.ErrForbidden
}

// CanApplyUpdate rejects flag changes by non-superusers.
func CanApplyUpdate(actor *model.User, id uint, upd model.UserUpdate) error {
	if err := CanAccessUser(actor, id); err != nil {
		return err
	}
	if upd.ChangesFlags() && !actor.IsSuperuser {
		return apperrors.ErrForbidden
	}
	return nil
}
