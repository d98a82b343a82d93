package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/timeslot"
)

func newSlotsCmd() *cobra.Command {
	var date string

	c := &cobra.Command{
		Use:   "slots",
		Short: "List the time slots still bookable for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().In(timeslot.Zone()).Format(timeslot.DateFormat)
			}
			slots, err := timeslot.Available(date, time.Now())
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintf(os.Stdout, "no bookable slots for %s\n", date)
				return nil
			}
			for _, s := range slots {
				fmt.Fprintln(os.Stdout, s.Label)
			}
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	return c
}
