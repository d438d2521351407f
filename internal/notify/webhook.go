package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed   = 15158332 // 0xE74C3C - for integrity violations
	colorGreen = 5763719  // 0x57F287 - for completed batches

	// Default timeout for webhook requests
	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// NewBatchCompletePayload creates a payload summarizing a finished reduce run
func NewBatchCompletePayload(matches, intervals, skipped int, runtime time.Duration) WebhookPayload {
	return WebhookPayload{
		Embeds: []Embed{
			{
				Title: "✅ Batch Complete",
				Color: colorGreen,
				Fields: []EmbedField{
					{
						Name:   "Matches Processed",
						Value:  formatNumber(matches),
						Inline: true,
					},
					{
						Name:   "Playing Intervals",
						Value:  formatNumber(intervals),
						Inline: true,
					},
					{
						Name:   "Excluded (no duration)",
						Value:  formatNumber(skipped),
						Inline: true,
					},
					{
						Name:   "Runtime",
						Value:  formatDuration(runtime),
						Inline: true,
					},
				},
				Footer: &EmbedFooter{
					Text: "Derived tables exported and pushed",
				},
			},
		},
	}
}

// NewIntegrityAlertPayload creates a payload for a failed batch with roster
// integrity violations. Only a sample of records is embedded; the full list
// goes to the logs.
func NewIntegrityAlertPayload(total int, sample []string) WebhookPayload {
	value := strings.Join(sample, "\n")
	if total > len(sample) {
		value += fmt.Sprintf("\n… and %d more", total-len(sample))
	}
	return WebhookPayload{
		Content: "@here Batch failed!",
		Embeds: []Embed{
			{
				Title: "🚫 Roster Integrity Violations",
				Color: colorRed,
				Fields: []EmbedField{
					{
						Name:   "Violations",
						Value:  formatNumber(total),
						Inline: true,
					},
					{
						Name:  "Records",
						Value: value,
					},
				},
				Footer: &EmbedFooter{
					Text: "No output was produced; fix the source data and rerun",
				},
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// SendBatchComplete sends a finished-batch summary
func (c *WebhookClient) SendBatchComplete(ctx context.Context, matches, intervals, skipped int, runtime time.Duration) error {
	payload := NewBatchCompletePayload(matches, intervals, skipped, runtime)
	return c.sendPayload(ctx, payload)
}

// SendIntegrityAlert sends a failed-batch alert
func (c *WebhookClient) SendIntegrityAlert(ctx context.Context, total int, sample []string) error {
	payload := NewIntegrityAlertPayload(total, sample)
	return c.sendPayload(ctx, payload)
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Success - Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		// Rate limited - wait and retry
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			waitDuration := time.Second // Default wait
			if retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					waitDuration = time.Duration(seconds) * time.Second
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		// Other error
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}

	// Simple comma formatting
	s := strconv.Itoa(n)
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// formatDuration formats a duration as "Xh Ym" (e.g., 18h 32m)
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
