package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/config"
	"github.com/example/tablesched/internal/db"
	"github.com/example/tablesched/internal/migrate"
	"github.com/example/tablesched/internal/timeslot"
	"github.com/example/tablesched/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage table watches (book automatically when tables free up)",
	}
	cmd.AddCommand(newWatchCreateCmd())
	cmd.AddCommand(newWatchListCmd())
	return cmd
}

func newWatchCreateCmd() *cobra.Command {
	var (
		userID      int64
		date        string
		slot        string
		people      int
		tableCount  int
		preferred   string
		guestName   string
		guestPhone  string
		notifyEmail string
		intervalSec int
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a watch that books as soon as enough tables are free",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := timeslot.ByLabel(slot)
			if !ok {
				return errors.Newf("unknown time slot %q (see the slots command)", slot)
			}
			start, err := timeslot.StartAt(date, s)
			if err != nil {
				return err
			}
			now := time.Now()
			if !start.After(now) {
				return errors.New("that slot has already started; nothing to watch for")
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			d, err := db.Open(ctx, e.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			w := watch.Watch{
				UserID:      userID,
				Date:        date,
				SlotLabel:   slot,
				People:      people,
				TableCount:  tableCount,
				Preferred:   parsePreferredFlag(preferred),
				Member:      e.session.Member(),
				GuestName:   guestName,
				GuestPhone:  guestPhone,
				NotifyEmail: notifyEmail,

				// attempts run from now until the slot opens
				WindowStartAt: now,
				WindowEndAt:   start,
				IntervalSec:   intervalSec,
			}
			if err := w.Validate(); err != nil {
				return err
			}

			id, err := watch.NewRepo(d).Create(ctx, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created watch id=%d window=%s..%s\n",
				id, now.Format(time.RFC3339), start.Format(time.RFC3339))
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "operator account id that owns the watch")
	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	c.Flags().StringVar(&slot, "slot", "", `time slot label, e.g. "18:00 - 19:00"`)
	c.Flags().IntVar(&people, "people", 0, "party size")
	c.Flags().IntVar(&tableCount, "table-count", 1, "how many tables to book")
	c.Flags().StringVar(&preferred, "preferred", "", "preferred table numbers, comma-separated")
	c.Flags().StringVar(&guestName, "name", "", "guest name (guest watches)")
	c.Flags().StringVar(&guestPhone, "phone", "", "guest phone (guest watches)")
	c.Flags().StringVar(&notifyEmail, "notify-email", "", "send a confirmation here when booked")
	c.Flags().IntVar(&intervalSec, "interval-seconds", 10, "seconds between attempts")
	_ = c.MarkFlagRequired("user-id")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("slot")
	_ = c.MarkFlagRequired("people")
	return c
}

func newWatchListCmd() *cobra.Command {
	var userID int64

	c := &cobra.Command{
		Use:   "list",
		Short: "List watches for an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			ws, err := watch.NewRepo(d).ListByUser(ctx, userID)
			if err != nil {
				return err
			}
			for _, w := range ws {
				lastErr := ""
				if w.LastError != nil {
					lastErr = " error=" + *w.LastError
				}
				fmt.Fprintf(os.Stdout, "id=%d date=%s slot=%q people=%d tables=%d status=%s%s\n",
					w.ID, w.Date, w.SlotLabel, w.People, w.TableCount, w.Status, lastErr)
			}
			return nil
		},
	}
	c.Flags().Int64Var(&userID, "user-id", 0, "operator account id")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func parsePreferredFlag(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
