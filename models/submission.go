package models

import (
	"time"

	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionFlagged  SubmissionStatus = "flagged"
)

// Submission is a user's proof of completing a challenge. Status moves
// pending -> approved|rejected exactly once; the mint linkage fields are
// set only when an approval produced a badge (real or simulated).
type Submission struct {
	ID          string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID string           `gorm:"type:uuid;not null;index" json:"challenge_id"`
	AuthorID    string           `gorm:"not null;index" json:"author_id"` // profile ID, or a raw wallet address for wallet-only users
	MediaURL    string           `gorm:"type:text;not null" json:"media_url"`
	Status      SubmissionStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	RejectionReason *string `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Mint linkage — populated iff status=approved and a mint (real or
	// simulated) succeeded.
	MintAddress *string    `gorm:"type:varchar(128)" json:"mint_address,omitempty"`
	MetadataURI *string    `gorm:"type:text" json:"metadata_uri,omitempty"`
	TxSignature *string    `gorm:"type:varchar(128);index" json:"tx_signature,omitempty"`
	MintedAt    *time.Time `json:"minted_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
