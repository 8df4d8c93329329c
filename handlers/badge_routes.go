// handlers/badge_routes.go
package handlers

import (
	"time"

	"provelt-badge-service/middleware"
	"provelt-badge-service/services"

	"github.com/gofiber/fiber/v2"
)

// Mint-triggering endpoints get a stricter window than general traffic.
const (
	mintWindow      = time.Minute
	mintMaxRequests = 5
)

func SetupBadgeRoutes(app *fiber.App, approvalService *services.ApprovalService,
	mintService *services.MintService, badgeService *services.BadgeService,
	limiter *services.RateLimiter) {

	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/mint/status", mintService.HandleMintStatus)
	app.Get("/challenges/:id/badges", badgeService.HandleChallengeBadges)
	app.Get("/badges/:id", badgeService.HandleBadgeByID)

	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/badges", badgeService.HandleUserBadges)
	secured.Post("/mint",
		middleware.RateLimitMiddleware(limiter, mintWindow, mintMaxRequests),
		mintService.HandleMintRequest)
	secured.Post("/completions/log", mintService.HandleCompletionLog)

	// ✅ Approver routes — decision gate for submissions
	secured.Post("/submissions/decision",
		middleware.RequireRole("approver"),
		approvalService.HandleDecision)
}
