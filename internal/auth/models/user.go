package models

import (
	"time"

	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

// User is an account on the marketplace. Every account starts as a
// buyer; vendor and admin roles are granted by the onboarding workflow
// and by operators respectively.
type User struct {
	ID            domain.UserID
	Email         string
	EmailVerified bool
	Phone         *string
	PhoneVerified bool
	Role          domain.Role
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewUser(userID domain.UserID, email, passwordHash string, now time.Time) (*User, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	return &User{
		ID:           userID,
		Email:        email,
		Role:         domain.RoleBuyer,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

func (u *User) IsVendor() bool {
	return u.Role == domain.RoleVendor
}

// CanChangeRole validates a role transition. Admin accounts are managed
// out of band and never change role through the application workflow.
func (u *User) CanChangeRole(target domain.Role) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	if u.Role == domain.RoleAdmin {
		return dErrors.New(dErrors.CodeInvariantViolation, "admin role cannot be changed")
	}
	if target == domain.RoleAdmin {
		return dErrors.New(dErrors.CodeForbidden, "cannot grant admin role")
	}
	return nil
}

func (u *User) ApplyRoleChange(target domain.Role, now time.Time) {
	u.Role = target
	u.UpdatedAt = now
}
