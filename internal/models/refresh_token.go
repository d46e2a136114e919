package models

import "time"

// RefreshToken is a server-side record of an issued refresh token. Only the
// SHA-256 of the token is stored.
type RefreshToken struct {
	Base
	UserID      string     `gorm:"type:uuid;not null;index" json:"-"`
	TokenHash   string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Fingerprint string     `gorm:"size:64;not null" json:"-"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"-"`
	RevokedAt   *time.Time `json:"-"`
}
