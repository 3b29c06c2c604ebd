package model

import "time"

// User represents an authenticated user of the dashboard API.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"column:hashed_password;size:255;not null"` // Never expose in JSON
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	IsSuperuser  bool      `json:"is_superuser" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserUpdate is a partial profile update. Only fields present in the
// request payload are applied; the password is never part of it.
type UserUpdate struct {
	Email       Optional[string] `json:"email"`
	Username    Optional[string] `json:"username"`
	IsActive    Optional[bool]   `json:"is_active"`
	IsSuperuser Optional[bool]   `json:"is_superuser"`
}

// Empty reports whether no field was supplied.
func (u UserUpdate) Empty() bool {
	return !u.Email.Set && !u.Username.Set && !u.IsActive.Set && !u.IsSuperuser.Set
}

// ChangesFlags reports whether the update touches the account flags.
func (u UserUpdate) ChangesFlags() bool {
	return u.IsActive.Set || u.IsSuperuser.Set
}
