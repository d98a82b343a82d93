package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/auth"
	"github.com/example/tablesched/internal/clock"
	"github.com/example/tablesched/internal/db"
	"github.com/example/tablesched/internal/migrate"
	"github.com/example/tablesched/internal/notify"
	"github.com/example/tablesched/internal/scheduler"
	"github.com/example/tablesched/internal/watch"
	"github.com/example/tablesched/internal/web"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI + watch scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			hashKey, blockKey, err := e.cfg.CookieKeys()
			if err != nil {
				return err
			}

			d, err := db.Open(ctx, e.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.Ping(ctx); err != nil {
				return errors.Wrap(err, "db ping")
			}
			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			authStore := auth.NewStore(d, hashKey, blockKey)
			watchRepo := watch.NewRepo(d)
			notifier := notify.New(e.cfg.SendgridAPIKey, e.cfg.NotifyFrom, e.cfg.NotifyFromName, e.logger)

			sched := &scheduler.Scheduler{
				Store:    watchRepo,
				Client:   e.client,
				Notifier: notifier,
				Interval: e.cfg.SchedInterval(),
				Clock:    clock.RealClock{},
				Logger:   e.logger,
			}
			go func() { _ = sched.Run(ctx) }()

			// nightly housekeeping: retire watches whose window has passed
			c := cron.New()
			if _, err := c.AddFunc("15 3 * * *", func() {
				if err := watchRepo.ExpireEnded(context.Background(), time.Now()); err != nil {
					e.logger.Warn("expiring ended watches failed", "err", err)
				}
			}); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()

			ws := &web.Server{
				Auth:    authStore,
				Watches: watchRepo,
				Client:  e.client,
				Session: e.session,
				Clock:   clock.RealClock{},
				Logger:  e.logger,
			}
			e.logger.Info("listening", "addr", e.cfg.ListenAddr)
			return web.Start(ctx, e.cfg.ListenAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}
