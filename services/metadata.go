// services/metadata.go
package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"provelt-badge-service/models"
	"provelt-badge-service/utils"
)

const (
	badgeNamePrefix = "PROVELT: "
	badgeSymbol     = "PRVLT"
)

// MetadataService builds and validates badge metadata documents.
// Validation is the pre-flight gate: nothing invalid may reach a
// fee-bearing mint call.
type MetadataService struct {
	PlatformCreator string // creator address stamped on every badge
	BaseExternalURL string
}

func NewMetadataService() *MetadataService {
	return &MetadataService{
		PlatformCreator: os.Getenv("PLATFORM_CREATOR_ADDRESS"),
		BaseExternalURL: os.Getenv("PUBLIC_BASE_URL"),
	}
}

// BadgeMetadataParams are the challenge/submission facts a badge
// document is derived from.
type BadgeMetadataParams struct {
	ChallengeID     string
	ChallengeTitle  string
	Category        string
	Difficulty      string
	Points          int64
	UserDisplayName string
	MediaURL        string
	BadgeImageURL   string
	CompletedAt     time.Time
	CreatorAddress  string // overrides the platform creator when set
}

// GenerateBadgeMetadata derives a MetadataDocument from challenge and
// submission facts. The name is the challenge title under a fixed
// prefix, truncated with an ellipsis to fit the on-chain length limit.
func (s *MetadataService) GenerateBadgeMetadata(p BadgeMetadataParams) models.MetadataDocument {
	displayName := p.UserDisplayName
	if displayName == "" {
		displayName = "A ProveLT user"
	}

	creator := p.CreatorAddress
	if creator == "" {
		creator = s.PlatformCreator
	}

	doc := models.MetadataDocument{
		Name:   badgeName(p.ChallengeTitle),
		Symbol: badgeSymbol,
		Description: fmt.Sprintf("%s completed the %q challenge on %s.",
			displayName, p.ChallengeTitle, p.CompletedAt.Format("January 2, 2006")),
		Image:       p.BadgeImageURL,
		ExternalURL: s.challengeURL(p.ChallengeID),
		Attributes: []models.Attribute{
			{TraitType: "Category", Value: p.Category},
			{TraitType: "Difficulty", Value: p.Difficulty},
			{TraitType: "Points", Value: strconv.FormatInt(p.Points, 10)},
			{TraitType: "Challenge ID", Value: p.ChallengeID},
			{TraitType: "Completed At", Value: p.CompletedAt.UTC().Format(time.RFC3339)},
			{TraitType: "Submission Media", Value: p.MediaURL},
		},
		Properties: models.Properties{
			Files:    []models.FileRef{{URI: p.BadgeImageURL, Type: utils.MediaContentType(p.BadgeImageURL)}},
			Category: "image",
		},
		Creators: []models.Creator{{Address: creator, Share: 100}},
	}

	if p.MediaURL != "" {
		doc.Properties.Files = append(doc.Properties.Files,
			models.FileRef{URI: p.MediaURL, Type: utils.MediaContentType(p.MediaURL)})
		if utils.IsAnimationMedia(p.MediaURL) {
			doc.AnimationURL = p.MediaURL
			doc.Properties.Category = "video"
		}
	}

	return doc
}

func badgeName(title string) string {
	name := badgeNamePrefix + title
	if utf8.RuneCountInString(name) <= models.MaxBadgeNameLength {
		return name
	}
	runes := []rune(name)
	return string(runes[:models.MaxBadgeNameLength-1]) + "…"
}

func (s *MetadataService) challengeURL(challengeID string) string {
	if s.BaseExternalURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/challenges/%s", strings.TrimRight(s.BaseExternalURL, "/"), challengeID)
}

// Validate checks the structural constraints a badge document must meet
// before any spend. All violations are reported, not just the first.
func (s *MetadataService) Validate(doc models.MetadataDocument) models.MetadataValidation {
	var errs []string

	if doc.Name == "" {
		errs = append(errs, "name is required")
	} else if utf8.RuneCountInString(doc.Name) > models.MaxBadgeNameLength {
		errs = append(errs, fmt.Sprintf("name exceeds %d characters", models.MaxBadgeNameLength))
	}

	if doc.Symbol == "" {
		errs = append(errs, "symbol is required")
	} else if utf8.RuneCountInString(doc.Symbol) > models.MaxBadgeSymbolLength {
		errs = append(errs, fmt.Sprintf("symbol exceeds %d characters", models.MaxBadgeSymbolLength))
	}

	if doc.Description == "" {
		errs = append(errs, "description is required")
	}
	if doc.Image == "" {
		errs = append(errs, "image is required")
	}
	if len(doc.Attributes) == 0 {
		errs = append(errs, "at least one attribute is required")
	}

	if len(doc.Creators) == 0 {
		errs = append(errs, "at least one creator is required")
	} else {
		total := 0
		for _, c := range doc.Creators {
			total += c.Share
		}
		if total != 100 {
			errs = append(errs, fmt.Sprintf("creator shares must sum to 100, got %d", total))
		}
	}

	return models.MetadataValidation{Valid: len(errs) == 0, Errors: errs}
}
