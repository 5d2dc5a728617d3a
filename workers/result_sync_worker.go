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

	"prediction-league-system/models"
	"prediction-league-system/services"
	"prediction-league-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultSyncClient polls an external results feed for finished matches and
// writes their outcomes, triggering the same per-match recalculation an
// admin edit would. Optional: only started when RESULTS_FEED_URL is set.
type ResultSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	Scores     *services.ScoreService
}

func NewResultSyncClient(db *gorm.DB, scores *services.ScoreService) (*ResultSyncClient, error) {
	baseURL := os.Getenv("RESULTS_FEED_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("RESULTS_FEED_URL not set")
	}

	return &ResultSyncClient{
		BaseURL:    baseURL,
		Token:      os.Getenv("RESULTS_FEED_TOKEN"),
		HTTPClient: utils.HTTPClient,
		DB:         db,
		Scores:     scores,
	}, nil
}

// feedResult is the feed's wire format for one finished match.
type feedResult struct {
	MatchID         int  `json:"match_id"`
	HomeScore       int  `json:"home_score"`
	AwayScore       int  `json:"away_score"`
	TimeOfFirstGoal int  `json:"time_of_first_goal"`
	HomePenalties   *int `json:"home_penalties,omitempty"`
	AwayPenalties   *int `json:"away_penalties,omitempty"`
	Duration        *int `json:"duration,omitempty"`
}

// GetFinishedResults fetches results that changed since the given time.
func (c *ResultSyncClient) GetFinishedResults(ctx context.Context, since time.Time) ([]feedResult, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/results", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("X-Service-Token", c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call results feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("results feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Results []feedResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode results feed response: %w", err)
	}
	return response.Results, nil
}

// ApplyResult upserts one outcome and recomputes that match's points. The
// feed may report matches we don't track (friendlies); those are skipped.
func (c *ResultSyncClient) ApplyResult(r feedResult) error {
	var match models.Match
	if err := c.DB.First(&match, "id = ?", r.MatchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("[ResultSync] skipping unknown match %d", r.MatchID)
			return nil
		}
		return err
	}

	outcome := models.MatchOutcome{
		MatchID:         r.MatchID,
		HomeScore:       r.HomeScore,
		AwayScore:       r.AwayScore,
		TimeOfFirstGoal: r.TimeOfFirstGoal,
		HomePenalties:   r.HomePenalties,
		AwayPenalties:   r.AwayPenalties,
		Duration:        r.Duration,
	}
	err := c.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"home_score",
			"away_score",
			"time_of_first_goal",
			"home_penalties",
			"away_penalties",
			"duration",
			"updated_at",
		}),
	}).Create(&outcome).Error
	if err != nil {
		return fmt.Errorf("failed to upsert outcome for match %d: %w", r.MatchID, err)
	}

	return c.Scores.RecalculateMatch(r.MatchID)
}

// PollResults runs the sync loop until the context is cancelled.
func PollResults(ctx context.Context, client *ResultSyncClient, pollInterval time.Duration) {
	log.Println("Starting results feed polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Results feed polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			results, err := client.GetFinishedResults(ctx, lastSyncTime)
			if err != nil {
				log.Printf("[ResultSync] poll failed: %v", err)
				continue
			}
			if len(results) == 0 {
				continue
			}
			log.Printf("[ResultSync] received %d result(s) from feed", len(results))

			failed := false
			for _, r := range results {
				if err := client.ApplyResult(r); err != nil {
					log.Printf("[ResultSync] failed to apply result for match %d: %v", r.MatchID, err)
					failed = true
				}
			}
			if failed {
				// Retry the same window next tick rather than losing a
				// result.
				continue
			}
			lastSyncTime = tickTime
		}
	}
}
