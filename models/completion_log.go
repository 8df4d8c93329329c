package models

import (
	"time"
)

// CompletionLog records a user-reported on-ledger completion memo. The
// transaction is checked on-chain before logging, but a failed check is
// non-fatal: very recent transactions may not be visible yet.
type CompletionLog struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID string `gorm:"type:uuid;not null;index" json:"challenge_id"`
	UserID      string `gorm:"not null;index" json:"user_id"`
	TxSignature string `gorm:"type:varchar(128);not null;index" json:"tx_signature"`

	MemoData        string `gorm:"type:jsonb" json:"memo_data"` // raw memo payload as submitted
	VerifiedOnChain bool   `gorm:"not null;default:false" json:"verified_on_chain"`

	LoggedAt time.Time `gorm:"autoCreateTime" json:"logged_at"`
}
