package models

// Challenge mirrors the fields of a challenge the pipeline needs: badge
// display template, reward points and the completion counter it bumps
// once per approved submission. Challenge authoring lives elsewhere.
type Challenge struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title      string `gorm:"not null" json:"title"`
	Category   string `gorm:"type:varchar(64)" json:"category"`
	Difficulty string `gorm:"type:varchar(16);default:'medium'" json:"difficulty"` // easy, medium, hard, expert

	RewardPoints    int64 `gorm:"default:0" json:"reward_points"`
	CompletionCount int64 `gorm:"default:0" json:"completion_count"`

	BadgeImageURL string `gorm:"type:text" json:"badge_image_url"`

	Timestamps
}
