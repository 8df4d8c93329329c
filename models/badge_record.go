package models

import (
	"time"
)

// BadgeRecord is one earned badge. SubmissionID carries a unique index —
// the schema itself enforces at most one badge per submission, on top of
// the conditional status update in the approval workflow.
type BadgeRecord struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID       string `gorm:"not null;index" json:"user_id"`
	SubmissionID string `gorm:"type:uuid;not null;uniqueIndex" json:"submission_id"`
	ChallengeID  string `gorm:"type:uuid;not null;index" json:"challenge_id"`

	MintAddress string `gorm:"type:varchar(128);not null" json:"mint_address"`
	MetadataURI string `gorm:"type:text;not null" json:"metadata_uri"`
	TxSignature string `gorm:"type:varchar(128);not null" json:"tx_signature"`

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`
	Attributes  string `gorm:"type:jsonb" json:"attributes"` // JSON array of {trait_type, value}

	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`
}
