package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/timeslot"
)

func newReservationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "List and cancel reservations",
	}
	cmd.AddCommand(newReservationsListCmd())
	cmd.AddCommand(newReservationsCancelCmd())
	return cmd
}

func newReservationsListCmd() *cobra.Command {
	var (
		date  string
		name  string
		phone string
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations (members by date, guests by name/phone)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			var rs []resto.Reservation
			if e.session.Member() {
				rs, err = e.client.MemberReservations(cmd.Context(), listDate(date, time.Now()))
			} else {
				if name == "" || phone == "" {
					if n, p, cerr := e.store.GuestContact(); cerr == nil {
						if name == "" {
							name = n
						}
						if phone == "" {
							phone = p
						}
					}
				}
				if name == "" || phone == "" {
					return errors.New("guest lookups need --name and --phone (or a prior guest booking)")
				}
				rs, err = e.client.GuestCheck(cmd.Context(), name, phone)
			}
			if err != nil {
				return err
			}

			printed := 0
			for _, r := range rs {
				if r.Status == resto.StatusCancelled {
					continue
				}
				fmt.Fprintf(os.Stdout, "id=%d start=%s people=%d status=%s\n",
					r.Key(), r.StartTime, r.People, r.Status)
				printed++
			}
			if printed == 0 {
				fmt.Fprintln(os.Stdout, "no reservations")
			}
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (members only; default today)")
	c.Flags().StringVar(&name, "name", "", "guest name used at booking")
	c.Flags().StringVar(&phone, "phone", "", "guest phone used at booking")
	return c
}

// listDate defaults member listings to today in the restaurant's zone.
func listDate(date string, now time.Time) string {
	if date != "" {
		return date
	}
	return now.In(timeslot.Zone()).Format(timeslot.DateFormat)
}

func newReservationsCancelCmd() *cobra.Command {
	var id int64

	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a reservation by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if e.session.Member() {
				err = e.client.CancelMember(cmd.Context(), id)
			} else {
				err = e.client.CancelGuest(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "reservation %d cancelled\n", id)
			return nil
		},
	}

	c.Flags().Int64Var(&id, "id", 0, "reservation id")
	_ = c.MarkFlagRequired("id")
	return c
}
