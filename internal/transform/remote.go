package transform

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

type remoteRequest struct {
	Events []calendar.Event `json:"events"`
}

type remoteResponse struct {
	Success      bool             `json:"success"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Events       []calendar.Event `json:"events"`
}

// Remote delegates rewriting to an HTTP text-generation service.
type Remote struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewRemote builds a client for the service at endpoint.
func NewRemote(endpoint string, timeout time.Duration, logger zerolog.Logger) (*Remote, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("remote transformer url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "remote_transformer").Logger(),
	}, nil
}

// Transform posts the events and returns the rewritten batch.
func (r *Remote) Transform(ctx context.Context, events []calendar.Event) ([]calendar.Event, error) {
	payload, err := json.Marshal(remoteRequest{Events: events})
	if err != nil {
		return nil, fmt.Errorf("failed to encode events: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call transformer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transformer returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode transformer response: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("transformer failed: %s", decoded.ErrorMessage)
	}

	r.logger.Debug().
		Int("events", len(events)).
		Dur("took", time.Since(start)).
		Msg("remote transform complete")
	return decoded.Events, nil
}

var _ Transformer = (*Remote)(nil)
