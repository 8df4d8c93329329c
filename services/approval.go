// services/approval.go
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

var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrAlreadyProcessed     = errors.New("submission already processed")
	ErrMissingWalletAddress = errors.New("no wallet address on file for submission author")
	ErrInvalidAction        = errors.New("action must be \"approve\" or \"reject\"")
	ErrInvalidMetadata      = errors.New("badge metadata failed validation")
)

const defaultRejectionReason = "Submission did not meet the challenge requirements."

type DecisionOutcome string

const (
	// OutcomeFull: the decision and all bookkeeping landed.
	OutcomeFull DecisionOutcome = "full"
	// OutcomeDegraded: the decision landed but one or more best-effort
	// steps failed; Degraded names them.
	OutcomeDegraded DecisionOutcome = "degraded"
)

// DecisionResult is the terminal outcome of one approve/reject decision.
type DecisionResult struct {
	Status        models.SubmissionStatus `json:"status"`
	Outcome       DecisionOutcome         `json:"outcome"`
	MintAddress   string                  `json:"mint_address,omitempty"`
	TxSignature   string                  `json:"tx_signature,omitempty"`
	MetadataURI   string                  `json:"metadata_uri,omitempty"`
	PointsAwarded int64                   `json:"points_awarded"`
	Degraded      []string                `json:"degraded,omitempty"`
}

// ApprovalService is the single state-transition gate for submissions.
// The conditional "status must still be pending" update inside Decide is
// the sole at-most-once enforcement point; concurrent duplicates race on
// it and exactly one wins.
type ApprovalService struct {
	DB       *gorm.DB
	Metadata *MetadataService
	Minter   LedgerMinter

	// uploadMetadata resolves a document to a stable URI; swapped in
	// tests to avoid the object store.
	uploadMetadata func(ctx context.Context, doc models.MetadataDocument, key string) (string, error)
	now            func() time.Time
}

func NewApprovalService(db *gorm.DB, metadata *MetadataService, minter LedgerMinter) *ApprovalService {
	return &ApprovalService{
		DB:       db,
		Metadata: metadata,
		Minter:   minter,
		uploadMetadata: func(ctx context.Context, doc models.MetadataDocument, key string) (string, error) {
			return utils.UploadJSONToR2(ctx, doc, key)
		},
		now: time.Now,
	}
}

// Decide consumes an approve/reject decision for a submission and drives
// it to a terminal, persisted state. Ledger failure degrades an approval
// (approved without badge) rather than failing it.
func (s *ApprovalService) Decide(ctx context.Context, submissionID, action, rejectionReason string) (*DecisionResult, error) {
	if action != "approve" && action != "reject" {
		return nil, ErrInvalidAction
	}

	var submission models.Submission
	if err := s.DB.First(&submission, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	// Cheap early exit; the conditional update below is the real gate.
	if submission.Status != models.SubmissionPending {
		return nil, ErrAlreadyProcessed
	}

	if action == "reject" {
		return s.reject(&submission, rejectionReason)
	}
	return s.approve(ctx, &submission)
}

func (s *ApprovalService) reject(submission *models.Submission, reason string) (*DecisionResult, error) {
	if reason == "" {
		reason = defaultRejectionReason
	}

	res := s.DB.Model(&models.Submission{}).
		Where("id = ? AND status = ?", submission.ID, models.SubmissionPending).
		Updates(map[string]interface{}{
			"status":           models.SubmissionRejected,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reject submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyProcessed
	}

	log.Printf("🚫 [APPROVAL] Submission %s rejected: %s", submission.ID, reason)
	return &DecisionResult{Status: models.SubmissionRejected, Outcome: OutcomeFull}, nil
}

func (s *ApprovalService) approve(ctx context.Context, submission *models.Submission) (*DecisionResult, error) {
	var challenge models.Challenge
	if err := s.DB.First(&challenge, "id = ?", submission.ChallengeID).Error; err != nil {
		return nil, fmt.Errorf("failed to load challenge %s: %w", submission.ChallengeID, err)
	}

	profile, recipient, err := s.resolveRecipient(submission)
	if err != nil {
		return nil, err
	}

	displayName := ""
	if profile != nil {
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
		CompletedAt:     s.now(),
	})

	if validation := s.Metadata.Validate(doc); !validation.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, validation.Errors)
	}

	key := fmt.Sprintf("metadata/%s-%s.json", slug.Make(challenge.Title), submission.ID)
	metadataURI, err := s.uploadMetadata(ctx, doc, key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve metadata URI: %w", err)
	}

	result := &DecisionResult{
		Status:        models.SubmissionApproved,
		Outcome:       OutcomeFull,
		MetadataURI:   metadataURI,
		PointsAwarded: challenge.RewardPoints,
	}

	mint := s.Minter.Mint(ctx, MintParams{
		Recipient:    recipient,
		MetadataURI:  metadataURI,
		Name:         doc.Name,
		Symbol:       doc.Symbol,
		Creators:     doc.Creators,
		SubmissionID: submission.ID,
	})
	if mint.Success {
		result.MintAddress = mint.AssetID
		result.TxSignature = mint.Signature
	} else {
		// The user-facing contract is "the submission is approved", not
		// "a badge exists"; the missing linkage fields mark the gap.
		log.Printf("⚠️  [APPROVAL] Mint failed for submission %s, approving without badge: %v", submission.ID, mint.Error)
		result.Outcome = OutcomeDegraded
		result.Degraded = append(result.Degraded, "mint")
	}

	// Terminal state transition — the one atomic gate.
	updates := map[string]interface{}{"status": models.SubmissionApproved}
	mintedAt := s.now()
	if mint.Success {
		updates["mint_address"] = mint.AssetID
		updates["metadata_uri"] = metadataURI
		updates["tx_signature"] = mint.Signature
		updates["minted_at"] = mintedAt
	}
	res := s.DB.Model(&models.Submission{}).
		Where("id = ? AND status = ?", submission.ID, models.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to approve submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyProcessed
	}

	// Everything after the status flip is best-effort bookkeeping.
	if mint.Success {
		if err := s.createBadgeRecord(submission, &challenge, doc, mint, metadataURI, mintedAt); err != nil {
			log.Printf("⚠️  [APPROVAL] Badge record insert failed for submission %s: %v", submission.ID, err)
			result.Outcome = OutcomeDegraded
			result.Degraded = append(result.Degraded, "badge_record")
		}
	}

	if err := s.DB.Model(&models.Challenge{}).
		Where("id = ?", challenge.ID).
		UpdateColumn("completion_count", gorm.Expr("completion_count + 1")).Error; err != nil {
		log.Printf("⚠️  [APPROVAL] Completion counter update failed for challenge %s: %v", challenge.ID, err)
		result.Outcome = OutcomeDegraded
		result.Degraded = append(result.Degraded, "completion_counter")
	}

	if profile != nil {
		if err := s.DB.Model(&models.ProfileMirror{}).
			Where("user_id = ?", profile.UserID).
			Updates(map[string]interface{}{
				"badge_count":  gorm.Expr("badge_count + 1"),
				"total_points": gorm.Expr("total_points + ?", challenge.RewardPoints),
			}).Error; err != nil {
			log.Printf("⚠️  [APPROVAL] Profile counters update failed for user %s: %v", profile.UserID, err)
			result.Outcome = OutcomeDegraded
			result.Degraded = append(result.Degraded, "profile_counters")
		}
	}

	log.Printf("✅ [APPROVAL] Submission %s approved (outcome=%s)", submission.ID, result.Outcome)
	return result, nil
}

// resolveRecipient finds the on-chain address a badge goes to: the
// author's profile wallet, or — compatibility heuristic — the author
// identifier itself when it is address-shaped rather than a profile ID.
func (s *ApprovalService) resolveRecipient(submission *models.Submission) (*models.ProfileMirror, string, error) {
	var profile models.ProfileMirror
	err := s.DB.Where("user_id = ?", submission.AuthorID).First(&profile).Error
	switch {
	case err == nil:
		if profile.WalletAddress != "" {
			return &profile, profile.WalletAddress, nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", fmt.Errorf("failed to look up profile for %s: %w", submission.AuthorID, err)
	}

	if utils.LooksLikeWalletAddress(submission.AuthorID) && utils.IsValidAddress(submission.AuthorID) {
		return nil, submission.AuthorID, nil
	}

	return nil, "", ErrMissingWalletAddress
}

func (s *ApprovalService) createBadgeRecord(submission *models.Submission, challenge *models.Challenge,
	doc models.MetadataDocument, mint MintResult, metadataURI string, earnedAt time.Time) error {

	attrs, err := json.Marshal(doc.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	record := models.BadgeRecord{
		ID:           uuid.NewString(),
		UserID:       submission.AuthorID,
		SubmissionID: submission.ID,
		ChallengeID:  challenge.ID,
		MintAddress:  mint.AssetID,
		MetadataURI:  metadataURI,
		TxSignature:  mint.Signature,
		Name:         doc.Name,
		Description:  doc.Description,
		ImageURL:     doc.Image,
		Attributes:   string(attrs),
		EarnedAt:     earnedAt,
	}
	return s.DB.Create(&record).Error
}

// --- HTTP handler ---

// HandleDecision is the approve/reject endpoint.
// POST body: {submissionId, action: "approve"|"reject", rejectionReason?}
func (s *ApprovalService) HandleDecision(c *fiber.Ctx) error {
	var req struct {
		SubmissionID    string `json:"submissionId"`
		Action          string `json:"action"`
		RejectionReason string `json:"rejectionReason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.SubmissionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "submissionId is required"})
	}

	result, err := s.Decide(c.Context(), req.SubmissionID, req.Action, req.RejectionReason)
	if err != nil {
		switch {
		case errors.Is(err, ErrSubmissionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrAlreadyProcessed),
			errors.Is(err, ErrInvalidAction),
			errors.Is(err, ErrMissingWalletAddress),
			errors.Is(err, ErrInvalidMetadata):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("❌ [APPROVAL] Unexpected error deciding %s: %v", req.SubmissionID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process decision"})
		}
	}

	message := "Submission rejected"
	if result.Status == models.SubmissionApproved {
		message = "Submission approved"
		if result.Outcome == OutcomeDegraded {
			message = "Submission approved (badge issuance incomplete)"
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data": fiber.Map{
			"mintAddress":   result.MintAddress,
			"txSignature":   result.TxSignature,
			"metadataUri":   result.MetadataURI,
			"pointsAwarded": result.PointsAwarded,
		},
	})
}
