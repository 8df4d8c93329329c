package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"provelt-badge-service/models"
	"provelt-badge-service/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileSyncClient mirrors profile data (display names, wallet
// addresses) from the profile service so the approval path can resolve
// mint recipients without an inline remote call.
type ProfileSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewProfileSyncClient(db *gorm.DB) *ProfileSyncClient {
	baseURL := os.Getenv("PROFILE_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("BADGE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("BADGE_SERVICE_TOKEN environment variable is required for profile sync")
	}

	return &ProfileSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *ProfileSyncClient) GetChangedProfiles(ctx context.Context, since time.Time) ([]models.ProfileMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/profiles", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Profiles []models.ProfileMirror `json:"profiles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}

	return response.Profiles, nil
}

// PollProfiles upserts changed profiles on an interval. Badge counters
// are owned locally and deliberately excluded from the upsert column
// set so a sync never clobbers them.
func PollProfiles(ctx context.Context, client *ProfileSyncClient, pollInterval time.Duration) {
	log.Println("Starting profile polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Profile polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			profiles, err := client.GetChangedProfiles(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling profiles: %v", err)
				continue
			}

			count := len(profiles)
			if count == 0 {
				continue
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"display_name",
						"wallet_address",
						"is_active",
						"updated_at",
					}),
				},
			).Create(&profiles).Error; err != nil {
				log.Printf("❌ Failed to upsert %d profile(s) into profile_mirror: %v", count, err)
				// Do NOT update lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = logTime
			log.Printf("✅ Upserted %d profile(s) into profile_mirror table.", count)
		}
	}
}
