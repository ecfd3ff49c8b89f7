package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"calendar-cache/internal/alerting"
	"calendar-cache/internal/calendar"
	"calendar-cache/internal/config"
	"calendar-cache/internal/scrape"
	"calendar-cache/internal/service"
	"calendar-cache/internal/storage"
	"calendar-cache/internal/transform"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newScraper() (scrape.Scraper, error) {
	sc := a.Config.Scraper
	switch sc.Driver {
	case "http", "":
		return scrape.NewHTTPScraper(scrape.HTTPOptions{
			BaseURL:   sc.BaseURL,
			UserAgent: sc.UserAgent,
			Timeout:   sc.AttemptTimeout,
		}, a.Logger), nil
	case "browser":
		return scrape.NewBrowserScraper(scrape.BrowserOptions{
			BaseURL:      sc.BaseURL,
			UserAgent:    sc.UserAgent,
			ExecPath:     sc.Browser.ExecPath,
			Headless:     sc.Browser.Headless,
			WaitSelector: sc.Browser.WaitSelector,
			Width:        sc.Browser.Width,
			Height:       sc.Browser.Height,
		}, a.Logger), nil
	case "fixture":
		return scrape.LoadFixture(sc.FixturePath)
	default:
		return nil, fmt.Errorf("unsupported scraper driver %q", sc.Driver)
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return alerting.WriterNotifier{Out: a.Out}
}

// openService wires store, scraper, transformer and service together. The
// returned closer releases the store.
func (a *App) openService(ctx context.Context) (*service.Service, func(), error) {
	kv, err := storage.Open(ctx, a.Config.Store, a.Logger)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := kv.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close store")
		}
	}

	scraper, err := a.newScraper()
	if err != nil {
		closer()
		return nil, nil, err
	}
	sc := a.Config.Scraper
	gateway := scrape.NewGateway(scraper, scrape.GatewayOptions{
		AttemptTimeout: sc.AttemptTimeout,
		MaxRetries:     sc.MaxRetries,
		BackoffBase:    sc.BackoffBase,
		BackoffMax:     sc.BackoffMax,
	}, a.Logger)

	pipeline, err := transform.New(a.Config.Transform, a.Logger)
	if err != nil {
		closer()
		return nil, nil, err
	}

	adapter := storage.NewAdapter(kv, a.Config.Store.KeyPrefix, a.Logger)
	svcCfg := a.Config.Service
	svc := service.New(adapter, gateway, pipeline, service.Options{
		RequestTimeout: svcCfg.RequestTimeout,
		FetchTimeout:   svcCfg.FetchTimeout,
		MaxConcurrency: svcCfg.MaxConcurrency,
		Limits:         calendar.Limits{MaxSpanDays: svcCfg.MaxRangeDays, HorizonDays: svcCfg.HorizonDays},
	}, a.Logger)
	return svc, closer, nil
}

// RangeOptions select a date range and representation.
type RangeOptions struct {
	From     time.Time
	To       time.Time
	Original bool
}

func (o RangeOptions) representation() calendar.Representation {
	if o.Original {
		return calendar.Original
	}
	return calendar.Derived
}

// QueryOptions configure the query command.
type QueryOptions struct {
	RangeOptions
	JSON bool
}

// WarmOptions configure the warm command.
type WarmOptions struct {
	From           time.Time
	To             time.Time
	Representation calendar.Representation
}

// ExportOptions hold parameters for exporting cached events.
type ExportOptions struct {
	RangeOptions
	PNGPath string
	CSVPath string
}

// DigestOptions configure the digest command.
type DigestOptions struct {
	RangeOptions
	MinImpact string
}
