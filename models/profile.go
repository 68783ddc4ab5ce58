package models

import (
	"fmt"
	"time"
)

// Profile is the 1:1 auxiliary record of a User
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Bio       string    `gorm:"type:text;not null;default:''" json:"bio"`
	Location  string    `gorm:"size:100;not null;default:''" json:"location"`
	AvatarKey *string   `json:"-"`                             // storage key of the uploaded avatar
	AvatarURL string    `gorm:"-" json:"avatar_url,omitempty"` // computed for display
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// DisplayName renders the profile as "<username>'s Profile"
func (p Profile) DisplayName(username string) string {
	return fmt.Sprintf("%s's Profile", username)
}
