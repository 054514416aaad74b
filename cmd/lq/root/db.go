package root

import (
	"context"
	"log/slog"
	"os"

	"lifequest/internal/config"
	"lifequest/internal/engine"
	"lifequest/internal/storage"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openService loads config, opens the store and returns an initialized
// engine service plus a cleanup func.
func openService(ctx context.Context) (*engine.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	path := cfg.DBPath
	if path == "" {
		path, err = storage.ResolveDBPath()
		if err != nil {
			return nil, nil, err
		}
	}

	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
	}

	svc := engine.NewService(db, cfg.Engine, newLogger())
	if err := svc.Init(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
