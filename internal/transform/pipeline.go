package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/config"
)

// ErrDegraded reports that the derived representation could not be produced.
// Callers fall back to the original events.
var ErrDegraded = errors.New("transform degraded")

// Transformer rewrites the display text of a day's events.
type Transformer interface {
	Transform(ctx context.Context, events []calendar.Event) ([]calendar.Event, error)
}

// Identity returns its input unchanged.
type Identity struct{}

func (Identity) Transform(_ context.Context, events []calendar.Event) ([]calendar.Event, error) {
	return events, nil
}

// Pipeline runs a Transformer under a deadline and rejects output that does
// not map one-to-one onto its input.
type Pipeline struct {
	transformer Transformer
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewPipeline wraps t.
func NewPipeline(t Transformer, timeout time.Duration, logger zerolog.Logger) *Pipeline {
	if t == nil {
		t = Identity{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Pipeline{
		transformer: t,
		timeout:     timeout,
		logger:      logger.With().Str("component", "transform").Logger(),
	}
}

// Transform returns the derived events of one day. The input is never
// mutated. Any failure is reported as ErrDegraded.
func (p *Pipeline) Transform(ctx context.Context, events []calendar.Event) ([]calendar.Event, error) {
	if len(events) == 0 {
		return []calendar.Event{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.transformer.Transform(ctx, calendar.CloneEvents(events))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegraded, err)
	}
	if err := verify(events, out); err != nil {
		p.logger.Warn().Err(err).Str("date", events[0].Date).Msg("rejecting transformer output")
		return nil, fmt.Errorf("%w: %w", ErrDegraded, err)
	}
	return out, nil
}

func verify(in, out []calendar.Event) error {
	if len(in) != len(out) {
		return fmt.Errorf("event count changed from %d to %d", len(in), len(out))
	}
	for i := range in {
		a, b := in[i], out[i]
		if a.ID != b.ID || a.Date != b.Date || a.Time != b.Time || a.Currency != b.Currency || a.Impact != b.Impact {
			return fmt.Errorf("event %d identity changed (%s -> %s)", i, a.ID, b.ID)
		}
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("event %d lost its name", i)
		}
	}
	return nil
}

// New builds the pipeline selected by cfg.Driver.
func New(cfg config.TransformConfig, logger zerolog.Logger) (*Pipeline, error) {
	var t Transformer
	switch cfg.Driver {
	case "dictionary", "":
		t = Dictionary{}
	case "none":
		t = Identity{}
	case "remote":
		remote, err := NewRemote(cfg.RemoteURL, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		t = remote
	default:
		return nil, fmt.Errorf("unsupported transform driver %q", cfg.Driver)
	}
	return NewPipeline(t, cfg.Timeout, logger), nil
}
