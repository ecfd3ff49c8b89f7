package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Delete removes cached days in [from, to].
func (a *App) Delete(ctx context.Context, from, to time.Time) error {
	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	deleted, err := svc.DeleteRange(ctx, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "deleted %d key(s)\n", deleted)
	return nil
}

// Stats prints cache statistics as JSON.
func (a *App) Stats(ctx context.Context) error {
	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	health := svc.Healthy(ctx)

	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"store":  a.Config.Store.Driver,
		"stats":  stats,
		"health": health,
	})
}
