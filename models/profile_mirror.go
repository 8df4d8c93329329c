// models/profile_mirror.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// ProfileMirror mirrors profile data from the profile service.
// Table name: profile_mirror
type ProfileMirror struct {
	ID            string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID        string `gorm:"not null;uniqueIndex" json:"user_id"` // External user ID — primary lookup key
	DisplayName   string `gorm:"type:varchar(128)" json:"display_name"`
	WalletAddress string `gorm:"type:varchar(128);index" json:"wallet_address"`

	BadgeCount  int64 `gorm:"not null;default:0" json:"badge_count"`
	TotalPoints int64 `gorm:"not null;default:0" json:"total_points"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (ProfileMirror) TableName() string {
	return "profile_mirror"
}
