package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
)

// Digest is a summary of the notable events of a date range.
type Digest struct {
	Start     string
	End       string
	MinImpact calendar.Impact
	Events    []calendar.Event
	// Missing lists days that could not be loaded.
	Missing []string
}

// BuildDigest keeps the events at or above minImpact, in their given order.
func BuildDigest(start, end string, events []calendar.Event, minImpact calendar.Impact) Digest {
	d := Digest{Start: start, End: end, MinImpact: minImpact, Events: []calendar.Event{}}
	for _, ev := range events {
		if ev.Impact.Rank() >= minImpact.Rank() {
			d.Events = append(d.Events, ev)
		}
	}
	return d
}

// Notifier delivers digests.
type Notifier interface {
	Notify(ctx context.Context, digest Digest) error
}

// TelegramNotifier posts digests through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "digest_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered digest.
func (n *TelegramNotifier) Notify(ctx context.Context, digest Digest) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderDigest(digest),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false: %s", result.Description)
		}
	}

	n.logger.Info().
		Str("start", digest.Start).
		Str("end", digest.End).
		Int("events", len(digest.Events)).
		Msg("digest sent (telegram)")
	return nil
}

// WriterNotifier prints digests, for runs without a configured bot.
type WriterNotifier struct {
	Out io.Writer
}

func (w WriterNotifier) Notify(_ context.Context, digest Digest) error {
	_, err := io.WriteString(w.Out, RenderDigest(digest))
	return err
}

// RenderDigest formats a digest as plain text grouped by day.
func RenderDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Economic Calendar] %s to %s\n", d.Start, d.End)
	fmt.Fprintf(&b, "Impact >= %s: %d event(s)\n", d.MinImpact, len(d.Events))

	day := ""
	for _, ev := range d.Events {
		if ev.Date != day {
			day = ev.Date
			fmt.Fprintf(&b, "\n%s\n", day)
		}
		fmt.Fprintf(&b, "  %s %s [%s] %s", ev.Time, ev.Currency, ev.Impact, ev.Name)
		fmt.Fprintf(&b, " | A %s F %s P %s", calendar.Display(ev.Actual), calendar.Display(ev.Forecast), calendar.Display(ev.Previous))
		if surprise, ok := ev.Surprise(); ok {
			fmt.Fprintf(&b, " | surprise %s", surprise.String())
		}
		b.WriteString("\n")
	}

	if len(d.Missing) > 0 {
		fmt.Fprintf(&b, "\nUnavailable: %s\n", strings.Join(d.Missing, ", "))
	}
	return b.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = WriterNotifier{}
)
