package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"match-analyzer/internal/storage"
)

const (
	defaultBaseURL = "https://feeds.matchlog.dev/v2"

	// Rate limits for a standard feed token (conservative values)
	requestsPerSecond = 8
	requestsPerMinute = 300
)

// Client is a rate-limited client for the upstream stats feed. The feed
// serves the same normalized shapes the file exports use, paged.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Rate limiting
	mu          sync.Mutex
	shortWindow []time.Time // Requests in last second
	longWindow  []time.Time // Requests in last minute
}

// NewClient creates a new feed client from the environment.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("FEED_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FEED_API_KEY environment variable not set")
	}

	baseURL := os.Getenv("FEED_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		shortWindow: make([]time.Time, 0),
		longWindow:  make([]time.Time, 0),
	}, nil
}

// waitForRateLimit blocks until we can make another request
func (c *Client) waitForRateLimit() {
	for {
		c.mu.Lock()

		now := time.Now()
		oneSecondAgo := now.Add(-1 * time.Second)
		oneMinuteAgo := now.Add(-1 * time.Minute)

		// Drop entries that left the windows
		newShort := make([]time.Time, 0, len(c.shortWindow))
		for _, t := range c.shortWindow {
			if t.After(oneSecondAgo) {
				newShort = append(newShort, t)
			}
		}
		c.shortWindow = newShort

		newLong := make([]time.Time, 0, len(c.longWindow))
		for _, t := range c.longWindow {
			if t.After(oneMinuteAgo) {
				newLong = append(newLong, t)
			}
		}
		c.longWindow = newLong

		if len(c.shortWindow) >= requestsPerSecond {
			waitTime := c.shortWindow[0].Add(time.Second).Sub(now) + 100*time.Millisecond
			c.mu.Unlock()
			fmt.Printf("      [Rate limit] %d req/sec, waiting %.1fs...\n", len(c.shortWindow), waitTime.Seconds())
			time.Sleep(waitTime)
			continue
		}

		if len(c.longWindow) >= requestsPerMinute {
			waitTime := c.longWindow[0].Add(time.Minute).Sub(now) + 100*time.Millisecond
			c.mu.Unlock()
			fmt.Printf("      [Rate limit] %d req/min, waiting %.1fs...\n", len(c.longWindow), waitTime.Seconds())
			time.Sleep(waitTime)
			continue
		}

		c.shortWindow = append(c.shortWindow, time.Now())
		c.longWindow = append(c.longWindow, time.Now())
		c.mu.Unlock()
		return
	}
}

// doRequest makes a rate-limited request
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	c.waitForRateLimit()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		// Rate limited - wait and retry
		retryAfter := resp.Header.Get("Retry-After")
		waitTime := 10 // Default 10 seconds
		if retryAfter != "" {
			fmt.Sscanf(retryAfter, "%d", &waitTime)
		}
		fmt.Printf("      [429 Rate Limited] Waiting %d seconds...\n", waitTime)
		time.Sleep(time.Duration(waitTime) * time.Second)
		return c.doRequest(ctx, url, result)
	}

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("feed returned status %d - check if your API key is valid", resp.StatusCode)
	}

	if resp.StatusCode == 404 {
		return fmt.Errorf("feed returned 404 Not Found - competition/match may not exist")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// page wraps a paged feed response.
type page[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"hasMore"`
}

// GetPlayers fetches one page of player reference rows.
func (c *Client) GetPlayers(ctx context.Context, pageNum int) ([]storage.PlayerRecord, bool, error) {
	url := fmt.Sprintf("%s/players?page=%d", c.baseURL, pageNum)

	var p page[storage.PlayerRecord]
	err := c.doRequest(ctx, url, &p)
	return p.Items, p.HasMore, err
}

// GetMatches fetches one page of match rosters for a competition.
func (c *Client) GetMatches(ctx context.Context, competition string, pageNum int) ([]storage.MatchRecord, bool, error) {
	url := fmt.Sprintf("%s/competitions/%s/matches?page=%d", c.baseURL, competition, pageNum)

	var p page[storage.MatchRecord]
	err := c.doRequest(ctx, url, &p)
	return p.Items, p.HasMore, err
}

// GetEvents fetches the full event log of one match.
func (c *Client) GetEvents(ctx context.Context, matchID int) ([]storage.EventRecord, error) {
	url := fmt.Sprintf("%s/matches/%d/events", c.baseURL, matchID)

	var events []storage.EventRecord
	err := c.doRequest(ctx, url, &events)
	return events, err
}
