// Package notify sends booking confirmations for watches that booked in the
// background, where nobody is looking at a screen.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Booking struct {
	Email  string
	Name   string
	Date   string
	Slot   string
	People int
	Tables []int
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, b Booking) error
}

// New returns the SendGrid notifier when configured, otherwise a
// log-only fallback.
func New(apiKey, fromEmail, fromName string, logger *slog.Logger) Notifier {
	if apiKey == "" || fromEmail == "" {
		return &LogNotifier{Logger: logger}
	}
	return &EmailNotifier{apiKey: apiKey, fromEmail: fromEmail, fromName: fromName}
}

type EmailNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func (n *EmailNotifier) BookingConfirmed(ctx context.Context, b Booking) error {
	if b.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Table reserved for %s, %s", b.Date, b.Slot)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour table watch booked a reservation.\n\n"+
			"Date: %s\nTime: %s\nParty size: %d\nTables: %s\n\n"+
			"See you there.\n",
		b.Name, b.Date, b.Slot, b.People, joinTables(b.Tables),
	)

	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(b.Name, b.Email)
	msg := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(n.apiKey)
	res, err := client.Send(msg)
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return errors.Newf("sendgrid send failed (status=%d): %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogNotifier is the console provider used when no email sender is
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) BookingConfirmed(_ context.Context, b Booking) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("watch booked a table",
		"date", b.Date, "slot", b.Slot, "people", b.People, "tables", joinTables(b.Tables))
	return nil
}

func joinTables(nums []int) string {
	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ", ")
}
