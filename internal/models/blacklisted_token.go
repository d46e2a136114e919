package models

import "time"

// BlacklistedToken denies an access token until its own expiry.
type BlacklistedToken struct {
	Base
	TokenHash string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"-"`
}
