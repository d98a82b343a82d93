package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/example/tablesched/internal/config"
	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/session"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// env is the shared wiring for client commands: config, the local state
// store, the backend client, and the rehydrated session.
type env struct {
	cfg     config.Config
	store   *session.Store
	client  *resto.Client
	session *session.Session
	logger  *slog.Logger
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	store, err := session.OpenStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	client := resto.New(cfg.APIBase, "")
	sess := session.Rehydrate(ctx, store, client, logger)

	return &env{cfg: cfg, store: store, client: client, session: sess, logger: logger}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing state store failed", "err", err)
	}
}
