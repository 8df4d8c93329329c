package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"provelt-badge-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubMinter reports as configured and mints deterministically.
type stubMinter struct{}

func (stubMinter) Mint(ctx context.Context, p MintParams) MintResult {
	return MintResult{Success: true, Signature: "5tubSig" + p.SubmissionID[:8], AssetID: testAddress(42)}
}
func (stubMinter) Configured() bool { return true }
func (stubMinter) Network() string  { return "devnet" }

func newMintTestApp(t *testing.T, db *gorm.DB, minter LedgerMinter, verifier *LogVerifier, userID string) *fiber.App {
	t.Helper()
	cfg := &LedgerConfig{Network: "devnet", TreeAddress: testAddress(1), CollectionAddress: testAddress(2)}
	r := testRegistry([]string{"https://a"}, map[string]bool{"https://a": true})
	s := NewMintService(db, cfg, minter, r, verifier, &MetadataService{})
	s.uploadMetadata = func(ctx context.Context, doc models.MetadataDocument, key string) (string, error) {
		return "https://cdn.test/" + key, nil
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	})
	app.Get("/mint/status", s.HandleMintStatus)
	app.Post("/mint", s.HandleMintRequest)
	app.Post("/completions/log", s.HandleCompletionLog)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	}
	return resp.StatusCode, payload
}

func seedApprovedSubmission(t *testing.T, db *gorm.DB, challengeID, authorID string) *models.Submission {
	t.Helper()
	sub := seedSubmission(t, db, challengeID, authorID)
	require.NoError(t, db.Model(sub).Update("status", models.SubmissionApproved).Error)
	sub.Status = models.SubmissionApproved
	return sub
}

func TestHandleMintStatusRedactsAddresses(t *testing.T) {
	db := setupApprovalDB(t)
	app := newMintTestApp(t, db, NewSimulatedMinter("devnet"), nil, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/mint/status", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, false, payload["configured"])
	assert.Equal(t, "devnet", payload["network"])

	tree, _ := payload["merkleTree"].(string)
	require.NotEmpty(t, tree)
	assert.Contains(t, tree, "...")
	assert.NotEqual(t, testAddress(1), tree, "full address never leaves the service")
}

func TestHandleMintRequestRequiresAuth(t *testing.T) {
	db := setupApprovalDB(t)
	app := newMintTestApp(t, db, stubMinter{}, nil, "")

	status, _ := postJSON(t, app, "/mint", `{"challengeId":"c","submissionId":"s","walletAddress":"w"}`)
	assert.Equal(t, 401, status)
}

func TestHandleMintRequestRejectsMalformedWallet(t *testing.T) {
	db := setupApprovalDB(t)
	app := newMintTestApp(t, db, stubMinter{}, nil, uuid.NewString())

	status, _ := postJSON(t, app, "/mint", `{"challengeId":"c","submissionId":"s","walletAddress":"not-an-address"}`)
	assert.Equal(t, 400, status)
}

func TestHandleMintRequestOwnershipAndState(t *testing.T) {
	db := setupApprovalDB(t)
	ch := seedChallenge(t, db)
	owner := uuid.NewString()
	app := newMintTestApp(t, db, stubMinter{}, nil, owner)

	body := func(subID string) string {
		return fmt.Sprintf(`{"challengeId":%q,"submissionId":%q,"walletAddress":%q}`, ch.ID, subID, testAddress(3))
	}

	// Someone else's submission is invisible to the caller.
	other := seedApprovedSubmission(t, db, ch.ID, uuid.NewString())
	status, _ := postJSON(t, app, "/mint", body(other.ID))
	assert.Equal(t, 404, status)

	// Pending submissions cannot be minted.
	pending := seedSubmission(t, db, ch.ID, owner)
	status, _ = postJSON(t, app, "/mint", body(pending.ID))
	assert.Equal(t, 400, status)

	// Already-minted submissions conflict.
	minted := seedApprovedSubmission(t, db, ch.ID, owner)
	require.NoError(t, db.Model(minted).Update("mint_address", testAddress(4)).Error)
	status, _ = postJSON(t, app, "/mint", body(minted.ID))
	assert.Equal(t, 409, status)
}

func TestHandleMintRequestUnconfiguredMinter(t *testing.T) {
	db := setupApprovalDB(t)
	ch := seedChallenge(t, db)
	owner := uuid.NewString()
	app := newMintTestApp(t, db, NewSimulatedMinter("devnet"), nil, owner)

	sub := seedApprovedSubmission(t, db, ch.ID, owner)
	status, _ := postJSON(t, app, "/mint",
		fmt.Sprintf(`{"challengeId":%q,"submissionId":%q,"walletAddress":%q}`, ch.ID, sub.ID, testAddress(3)))
	assert.Equal(t, 503, status)
}

func TestHandleMintRequestSuccess(t *testing.T) {
	db := setupApprovalDB(t)
	ch := seedChallenge(t, db)
	owner := uuid.NewString()
	seedProfile(t, db, owner)
	app := newMintTestApp(t, db, stubMinter{}, nil, owner)

	sub := seedApprovedSubmission(t, db, ch.ID, owner)
	status, payload := postJSON(t, app, "/mint",
		fmt.Sprintf(`{"challengeId":%q,"submissionId":%q,"walletAddress":%q}`, ch.ID, sub.ID, testAddress(3)))
	require.Equal(t, 200, status)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, testAddress(42), payload["assetId"])
	explorer, _ := payload["explorerUrl"].(string)
	assert.Contains(t, explorer, "cluster=devnet")

	var got models.Submission
	require.NoError(t, db.First(&got, "id = ?", sub.ID).Error)
	require.NotNil(t, got.MintAddress)
	assert.Equal(t, testAddress(42), *got.MintAddress)
	require.NotNil(t, got.TxSignature)
	require.NotNil(t, got.MintedAt)

	var badge models.BadgeRecord
	require.NoError(t, db.First(&badge, "submission_id = ?", sub.ID).Error)
	assert.Equal(t, owner, badge.UserID)
	assert.Equal(t, testAddress(42), badge.MintAddress)
}

func TestHandleCompletionLogVerified(t *testing.T) {
	db := setupApprovalDB(t)
	verifier := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return txResult(1780000000, []string{
				`Program log: PROVELT_MEMO:{"type":"completion","score":10}`,
			}), nil
		},
	})
	app := newMintTestApp(t, db, NewSimulatedMinter("devnet"), verifier, "")

	status, payload := postJSON(t, app, "/completions/log",
		fmt.Sprintf(`{"challengeId":%q,"userId":%q,"signature":"sig-abc"}`, uuid.NewString(), uuid.NewString()))
	require.Equal(t, 201, status)
	assert.Equal(t, true, payload["verified"])

	var entry models.CompletionLog
	require.NoError(t, db.First(&entry, "tx_signature = ?", "sig-abc").Error)
	assert.True(t, entry.VerifiedOnChain)
	assert.JSONEq(t, `{"type":"completion","score":10}`, entry.MemoData, "memo backfilled from the chain")
}

func TestHandleCompletionLogUnverifiedStillLogged(t *testing.T) {
	db := setupApprovalDB(t)
	verifier := verifierOver(t, map[string]func([]interface{}) (interface{}, *rpcError){
		"getTransaction": func(params []interface{}) (interface{}, *rpcError) {
			return nil, nil // not visible on chain yet
		},
	})
	app := newMintTestApp(t, db, NewSimulatedMinter("devnet"), verifier, "")

	status, payload := postJSON(t, app, "/completions/log",
		fmt.Sprintf(`{"challengeId":%q,"userId":%q,"signature":"sig-fresh","memoData":{"score":5}}`,
			uuid.NewString(), uuid.NewString()))
	require.Equal(t, 201, status)
	assert.Equal(t, false, payload["verified"])

	var entry models.CompletionLog
	require.NoError(t, db.First(&entry, "tx_signature = ?", "sig-fresh").Error)
	assert.False(t, entry.VerifiedOnChain)
	assert.JSONEq(t, `{"score":5}`, entry.MemoData)
}

func TestHandleCompletionLogRequiresFields(t *testing.T) {
	db := setupApprovalDB(t)
	app := newMintTestApp(t, db, NewSimulatedMinter("devnet"), nil, "")

	status, _ := postJSON(t, app, "/completions/log", `{"challengeId":"c"}`)
	assert.Equal(t, 400, status)
}
