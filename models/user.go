package models

import (
	"time"
)

// User is an account that can list items and exchange messages
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        *string   `gorm:"uniqueIndex" json:"-"`
	PasswordHash string    `gorm:"not null;default:''" json:"-"`
	Subject      string    `gorm:"uniqueIndex;not null" json:"-"` // token "sub": local|<uuid> or the Auth0 user ID
	Profile      *Profile  `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// HasPassword reports whether the user can log in with a local password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
