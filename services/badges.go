// services/badges.go
package services

import (
	"errors"
	"log"

	"provelt-badge-service/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BadgeService is the read surface for earned badges.
type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// HandleUserBadges lists the authenticated user's badges, newest first.
func (s *BadgeService) HandleUserBadges(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var badges []models.BadgeRecord
	if err := s.DB.Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&badges).Error; err != nil {
		log.Printf("❌ [BADGES] Failed to fetch badges for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch badges"})
	}

	return c.JSON(fiber.Map{"badges": badges, "count": len(badges)})
}

// HandleChallengeBadges lists badges earned for one challenge.
func (s *BadgeService) HandleChallengeBadges(c *fiber.Ctx) error {
	challengeID := c.Params("id")

	var badges []models.BadgeRecord
	if err := s.DB.Where("challenge_id = ?", challengeID).
		Order("earned_at DESC").
		Limit(100).
		Find(&badges).Error; err != nil {
		log.Printf("❌ [BADGES] Failed to fetch badges for challenge %s: %v", challengeID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch badges"})
	}

	return c.JSON(fiber.Map{"badges": badges, "count": len(badges)})
}

// HandleBadgeByID fetches one badge record.
func (s *BadgeService) HandleBadgeByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var badge models.BadgeRecord
	if err := s.DB.First(&badge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Badge not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(badge)
}
