package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/booking"
	"github.com/example/tablesched/internal/tables"
	"github.com/example/tablesched/internal/timeslot"
)

func newBookCmd() *cobra.Command {
	var (
		date      string
		slot      string
		people    int
		tableNums string
		name      string
		phone     string
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Book tables for a date and time slot",
		Long: `Book tables in one shot: fetches current availability for the chosen
slot, validates the draft, and submits it. Members (after auth login) book on
their credential; everyone else books as a guest with --name and --phone.`,
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

			member := e.session.Member()
			if !member {
				if name == "" || phone == "" {
					if n, p, err := e.store.GuestContact(); err == nil {
						if name == "" {
							name = n
						}
						if phone == "" {
							phone = p
						}
					}
				}
			}

			snap, err := e.client.TableStatuses(cmd.Context(), start, member)
			if err != nil {
				return err
			}

			sel := &tables.Selection{}
			for _, ns := range strings.Split(tableNums, ",") {
				ns = strings.TrimSpace(ns)
				if ns == "" {
					continue
				}
				n, err := strconv.Atoi(ns)
				if err != nil {
					return errors.Newf("bad table number %q", ns)
				}
				st := snap.StatusOf(n)
				if !st.Selectable() {
					return errors.Newf("table %d is %s for that slot", n, st)
				}
				sel.Toggle(n, st)
			}

			req, err := booking.Build(booking.Draft{
				Date:   date,
				Slot:   slot,
				People: people,
				Name:   name,
				Phone:  phone,
			}, sel, snap, member, time.Now())
			if err != nil {
				return err
			}

			res, err := booking.Submit(cmd.Context(), e.client, req)
			if err != nil {
				return errors.Newf("%s", booking.UserMessage(err))
			}

			if !member {
				// remember the contact pair for guest-check later
				if err := e.store.SetGuestContact(name, phone); err != nil {
					e.logger.Warn("saving guest contact failed", "err", err)
				}
			}

			fmt.Fprintf(os.Stdout, "booked: reservation %d, %s %s, %d people, tables %s\n",
				res.Key(), date, slot, people, tableNums)
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	c.Flags().StringVar(&slot, "slot", "", `time slot label, e.g. "18:00 - 19:00"`)
	c.Flags().IntVar(&people, "people", 0, "party size")
	c.Flags().StringVar(&tableNums, "tables", "", "comma-separated table numbers, e.g. 5,7")
	c.Flags().StringVar(&name, "name", "", "guest name (guests only)")
	c.Flags().StringVar(&phone, "phone", "", "guest phone (guests only)")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("slot")
	_ = c.MarkFlagRequired("people")
	_ = c.MarkFlagRequired("tables")
	return c
}
