package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/availability"
	"github.com/example/tablesched/internal/tables"
	"github.com/example/tablesched/internal/timeslot"
)

func newTablesCmd() *cobra.Command {
	var (
		date   string
		slot   string
		follow bool
	)

	c := &cobra.Command{
		Use:   "tables",
		Short: "Show table availability for a date and time slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := timeslot.ByLabel(slot)
			if !ok {
				return errors.Newf("unknown time slot %q (see the slots command)", slot)
			}
			start, err := timeslot.StartAt(date, s)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if !follow {
				snap, err := e.client.TableStatuses(cmd.Context(), start, e.session.Member())
				if err != nil {
					return err
				}
				printFloor(snap)
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			poller := &availability.Poller{
				Fetch:    e.client,
				Member:   e.session.Member(),
				Interval: e.cfg.PollInterval(),
				Logger:   e.logger,
			}
			handle := poller.Start(ctx, start)
			defer handle.Stop()

			return followFloor(ctx, poller, e.cfg.PollInterval())
		},
	}

	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	c.Flags().StringVar(&slot, "slot", "", `time slot label, e.g. "18:00 - 19:00"`)
	c.Flags().BoolVar(&follow, "follow", false, "keep polling and re-rendering until interrupted")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("slot")
	return c
}

func followFloor(ctx context.Context, poller *availability.Poller, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fmt.Fprint(os.Stdout, "\033[H\033[2J")
			printFloor(poller.Snapshot())
		}
	}
}

func printFloor(snap tables.Snapshot) {
	for _, row := range tables.Layout {
		var b strings.Builder
		for _, n := range row {
			if n == 0 {
				b.WriteString("    ")
				continue
			}
			b.WriteString(fmt.Sprintf("%2d%s ", n, statusMark(snap.StatusOf(n))))
		}
		fmt.Fprintln(os.Stdout, b.String())
	}
	fmt.Fprintln(os.Stdout, "\n. free  x reserved/occupied  ? unknown")
}

func statusMark(st tables.Status) string {
	switch st {
	case tables.StatusAvailable:
		return "."
	case tables.StatusReserved, tables.StatusOccupied:
		return "x"
	default:
		return "?"
	}
}
