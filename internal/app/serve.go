package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"calendar-cache/internal/httpapi"
	"calendar-cache/internal/version"
)

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	server := httpapi.New(a.Config.Server, svc, version.Version, a.Logger)

	a.Logger.Info().
		Str("store", a.Config.Store.Driver).
		Str("scraper", a.Config.Scraper.Driver).
		Str("transform", a.Config.Transform.Driver).
		Msg("starting calendar cache api")
	err = server.ListenAndServe(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("api terminated with error")
		return err
	}

	a.Logger.Info().Msg("calendar cache api stopped")
	return nil
}
