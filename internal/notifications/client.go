package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"platemap_metadata/internal/metadata"
	"platemap_metadata/internal/retry"

	"github.com/rs/zerolog/log"
)

// Client posts plain-text messages to an ntfy topic.
type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	policy     retry.Config
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

// RunInfo is what a run-complete notification reports.
type RunInfo struct {
	RunID    string
	Source   string
	Summary  metadata.Summary
	Duration time.Duration
	Err      error
}

func NewClient(baseURL, topic string, enabled bool, priority string, policy retry.Config) *Client {
	policy.Retryable = isRetryable
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
		policy:   policy,
	}
}

func isRetryable(err error) bool {
	var notifErr *NotificationError
	if errors.As(err, &notifErr) {
		return notifErr.IsRetryable()
	}
	return true
}

// SendNotification posts one message, retrying transient failures.
func (c *Client) SendNotification(ctx context.Context, title, message string, tags ...string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	_, err := retry.WithRetry(ctx, c.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.send(ctx, title, message, tags)
	})
	if err != nil {
		log.Warn().Err(err).Str("topic", c.topic).Msg("Notification not delivered")
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, title, message string, tags []string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("title", title).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Msg("Notification sent successfully")
	return nil
}

// NotifyRunComplete reports the outcome of a metadata run.
func (c *Client) NotifyRunComplete(ctx context.Context, run RunInfo) error {
	if run.Err != nil {
		return c.SendNotification(ctx, "Plate metadata run failed", formatFailure(run), "x")
	}
	tag := "white_check_mark"
	if len(run.Summary.QCNotes) > 0 {
		tag = "warning"
	}
	return c.SendNotification(ctx, "Plate metadata generated", formatSummary(run), tag)
}

func formatSummary(run RunInfo) string {
	s := run.Summary
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d samples from %d plates", s.Samples, s.PlatesKept)
	if run.Source != "" {
		fmt.Fprintf(&sb, " (%s)", run.Source)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Subjects: %d, blanks: %d, do-not-use: %d\n", s.Subjects, s.Blanks, s.DoNotUse)
	if s.PlatesEmpty > 0 {
		fmt.Fprintf(&sb, "Empty plates dropped: %d\n", s.PlatesEmpty)
	}
	for _, reason := range s.QCReasons() {
		fmt.Fprintf(&sb, "QC %s: %d\n", reason, s.QCNotes[reason])
	}
	if run.RunID != "" {
		fmt.Fprintf(&sb, "Run %s in %s\n", run.RunID, run.Duration.Round(time.Millisecond))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatFailure(run RunInfo) string {
	msg := run.Err.Error()
	if run.Source != "" {
		msg = run.Source + ": " + msg
	}
	return msg
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}
