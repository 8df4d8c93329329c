// services/minting.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"provelt-badge-service/models"
	"provelt-badge-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MintService owns the user-initiated mint path: wallet-authenticated
// users minting badges for their own already-approved submissions (for
// example after a degraded approval), plus the mint-status and
// completion-log surfaces.
type MintService struct {
	DB       *gorm.DB
	Cfg      *LedgerConfig
	Minter   LedgerMinter
	Registry *EndpointRegistry
	Verifier *LogVerifier
	Metadata *MetadataService

	uploadMetadata func(ctx context.Context, doc models.MetadataDocument, key string) (string, error)
}

func NewMintService(db *gorm.DB, cfg *LedgerConfig, minter LedgerMinter, registry *EndpointRegistry,
	verifier *LogVerifier, metadata *MetadataService) *MintService {
	return &MintService{
		DB:       db,
		Cfg:      cfg,
		Minter:   minter,
		Registry: registry,
		Verifier: verifier,
		Metadata: metadata,
		uploadMetadata: func(ctx context.Context, doc models.MetadataDocument, key string) (string, error) {
			return utils.UploadJSONToR2(ctx, doc, key)
		},
	}
}

// HandleMintStatus reports whether real minting is configured, without
// leaking full addresses.
// GET /mint/status
func (s *MintService) HandleMintStatus(c *fiber.Ctx) error {
	resp := fiber.Map{
		"configured": s.Minter.Configured(),
		"network":    s.Minter.Network(),
		"endpoints":  s.Registry.Health(),
	}
	if s.Cfg.TreeAddress != "" {
		resp["merkleTree"] = utils.RedactAddress(s.Cfg.TreeAddress)
	}
	if s.Cfg.CollectionAddress != "" {
		resp["collection"] = utils.RedactAddress(s.Cfg.CollectionAddress)
	}
	return c.JSON(resp)
}

// HandleMintRequest mints a badge for the caller's own approved
// submission to the wallet they present.
// POST /mint {challengeId, submissionId, walletAddress}
func (s *MintService) HandleMintRequest(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var req struct {
		ChallengeID   string `json:"challengeId"`
		SubmissionID  string `json:"submissionId"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !utils.IsValidAddress(req.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed wallet address"})
	}

	var submission models.Submission
	err := s.DB.Where("id = ? AND challenge_id = ? AND author_id = ?",
		req.SubmissionID, req.ChallengeID, userID).First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if submission.Status != models.SubmissionApproved {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "submission is not approved yet"})
	}
	if submission.MintAddress != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "badge already minted for this submission"})
	}
	if !s.Minter.Configured() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "minting is not configured"})
	}

	var challenge models.Challenge
	if err := s.DB.First(&challenge, "id = ?", submission.ChallengeID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load challenge"})
	}

	displayName := ""
	var profile models.ProfileMirror
	if err := s.DB.Where("user_id = ?", userID).First(&profile).Error; err == nil {
		displayName = profile.DisplayName
	}

	doc := s.Metadata.GenerateBadgeMetadata(BadgeMetadataParams{
		ChallengeID:     challenge.ID,
		ChallengeTitle:  challenge.Title,
		Category:        challenge.Category,
		Difficulty:      challenge.Difficulty,
		Points:          challenge.RewardPoints,
		UserDisplayName: displayName,
		MediaURL:        submission.MediaURL,
		BadgeImageURL:   challenge.BadgeImageURL,
		CompletedAt:     time.Now(),
	})
	if validation := s.Metadata.Validate(doc); !validation.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid badge metadata", "details": validation.Errors})
	}

	key := fmt.Sprintf("metadata/%s-%s.json", slug.Make(challenge.Title), submission.ID)
	metadataURI, err := s.uploadMetadata(c.Context(), doc, key)
	if err != nil {
		log.Printf("❌ [MINT] Metadata upload failed for submission %s: %v", submission.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store metadata"})
	}

	mint := s.Minter.Mint(c.Context(), MintParams{
		Recipient:    req.WalletAddress,
		MetadataURI:  metadataURI,
		Name:         doc.Name,
		Symbol:       doc.Symbol,
		Creators:     doc.Creators,
		SubmissionID: submission.ID,
	})
	if !mint.Success {
		if errors.Is(mint.Error, ErrLedgerNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "minting is not configured"})
		}
		log.Printf("❌ [MINT] User mint failed for submission %s: %v", submission.ID, mint.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mint failed"})
	}

	// Conditional linkage write: a concurrent mint of the same
	// submission loses here and is only logged.
	now := time.Now()
	res := s.DB.Model(&models.Submission{}).
		Where("id = ? AND mint_address IS NULL", submission.ID).
		Updates(map[string]interface{}{
			"mint_address": mint.AssetID,
			"metadata_uri": metadataURI,
			"tx_signature": mint.Signature,
			"minted_at":    now,
		})
	if res.Error != nil || res.RowsAffected == 0 {
		log.Printf("⚠️  [MINT] Linkage write lost for submission %s (err=%v, rows=%d)", submission.ID, res.Error, res.RowsAffected)
	}

	attrs, _ := json.Marshal(doc.Attributes)
	badge := models.BadgeRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		SubmissionID: submission.ID,
		ChallengeID:  challenge.ID,
		MintAddress:  mint.AssetID,
		MetadataURI:  metadataURI,
		TxSignature:  mint.Signature,
		Name:         doc.Name,
		Description:  doc.Description,
		ImageURL:     doc.Image,
		Attributes:   string(attrs),
		EarnedAt:     now,
	}
	if err := s.DB.Create(&badge).Error; err != nil {
		log.Printf("⚠️  [MINT] Badge record insert failed for submission %s: %v", submission.ID, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"signature":   mint.Signature,
		"assetId":     mint.AssetID,
		"explorerUrl": ExplorerURL(s.Minter.Network(), mint.Signature),
		"badge":       badge,
	})
}

// HandleCompletionLog records a completion memo after independently
// checking the transaction on-chain. The check is non-fatal: a very
// recent transaction may not be visible yet, so we log anyway.
// POST /completions/log {challengeId, userId, signature, memoData?}
func (s *MintService) HandleCompletionLog(c *fiber.Ctx) error {
	var req struct {
		ChallengeID string          `json:"challengeId"`
		UserID      string          `json:"userId"`
		Signature   string          `json:"signature"`
		MemoData    json.RawMessage `json:"memoData"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ChallengeID == "" || req.UserID == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "challengeId, userId and signature are required"})
	}

	verify := s.Verifier.Verify(c.Context(), req.Signature)
	if !verify.Verified && verify.Error != "" {
		log.Printf("⚠️  [COMPLETION] On-chain check inconclusive for %s: %s", req.Signature, verify.Error)
	}

	memo := string(req.MemoData)
	if memo == "" && verify.Data != nil {
		memo = string(verify.Data)
	}

	entry := models.CompletionLog{
		ID:              uuid.NewString(),
		ChallengeID:     req.ChallengeID,
		UserID:          req.UserID,
		TxSignature:     req.Signature,
		MemoData:        memo,
		VerifiedOnChain: verify.Verified,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		log.Printf("❌ [COMPLETION] Failed to store completion log: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store completion log"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"verified": verify.Verified,
		"logId":    entry.ID,
	})
}

// ExplorerURL builds the public explorer link for a transaction.
func ExplorerURL(network, signature string) string {
	if network == "mainnet" {
		return fmt.Sprintf("https://explorer.provelt.network/tx/%s", signature)
	}
	return fmt.Sprintf("https://explorer.provelt.network/tx/%s?cluster=%s", signature, network)
}
