package models

import "time"

// AuthToken is the single login token issued to a user.
// It is created on first login and reused until the user logs out.
type AuthToken struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TokenID   string    `gorm:"size:64;uniqueIndex;not null" json:"-"` // jti claim
	Token     string    `gorm:"not null" json:"-"`
}
