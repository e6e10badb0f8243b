package models

import (
	"time"
)

// User is a registered account owned by the credential store.
type User struct {
	ID                      string
	Email                   string // unique
	PasswordHash            string
	Name                    string
	Role                    Role
	EmailVerified           bool
	VerificationToken       *string    // present only while unverified and pending
	VerificationTokenExpiry *time.Time // expiry of the outstanding token
	CreatedAt               time.Time
	UpdatedAt               time.Time
	LastLoginAt             *time.Time
	LastLoginIP             *string
	FailedLoginAttempts     int
	LockoutEnd              *time.Time // nil or past = not locked
}

// LockedUntil returns the lockout end if the account is currently locked.
func (u *User) LockedUntil(now time.Time) (time.Time, bool) {
	if u.LockoutEnd != nil && u.LockoutEnd.After(now) {
		return *u.LockoutEnd, true
	}
	return time.Time{}, false
}
