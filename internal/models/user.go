package models

import (
	"time"

	"spendify/internal/money"
)

// User is an account holder and their wallet. Balance is only ever changed by
// the ledger's atomic increment statements.
type User struct {
	Base
	Name                string      `gorm:"size:50;not null" json:"name"`
	Email               string      `gorm:"uniqueIndex;not null" json:"email"`
	Password            string      `gorm:"not null" json:"-"`
	Balance             money.Cents `gorm:"type:bigint;not null;default:0" json:"balance"`
	FailedLoginAttempts int         `gorm:"not null;default:0" json:"-"`
	LockUntil           *time.Time  `json:"-"`
	LastLoginAt         *time.Time  `json:"lastLoginAt,omitempty"`
}

// IsLocked reports whether the account is in lockout cooldown at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}
