package mailer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sl "redirect_service/internal/lib/logger/sl"
	"redirect_service/internal/models"

	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(to, subject, body string) error
}

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (m *Mailer) Send(to, subject, body string) error {
	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(m.message(to, subject, body))
}

func (m *Mailer) message(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.Username)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", body)

	return msg
}

// OrphanAlert renders the operator notice for a checkout whose provider
// session is not linked to its local row.
func OrphanAlert(e models.CheckoutEvent) (subject, body string) {
	subject = fmt.Sprintf("Orphaned checkout session #%d", e.CheckoutSessionID)

	var b strings.Builder
	fmt.Fprintf(&b, "Checkout session %d for user %d (tier %d) was left incomplete.\n\n",
		e.CheckoutSessionID, e.UserID, e.TierID)
	fmt.Fprintf(&b, "Failed step: %s\n", e.Stage)
	if e.StripeID != "" {
		fmt.Fprintf(&b, "Stripe session: %s\n", e.StripeID)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", e.Error)
	}
	fmt.Fprintf(&b, "Occurred at: %s\n", e.OccurredAt.UTC().Format("2006-01-02 15:04:05 MST"))

	return subject, b.String()
}

// AlertHandler mails recipient about every orphaned checkout event. Messages
// that cannot be decoded are dropped; a failed send is returned so the
// delivery is retried.
func AlertHandler(log *slog.Logger, sender Sender, recipient string) func(msg []byte) error {
	const op = "mailer.AlertHandler"

	log = log.With(slog.String("op", op))

	return func(msg []byte) error {
		var event models.CheckoutEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			log.Error("failed to unmarshal message", sl.Err(err))
			return nil
		}

		if event.Type != models.CheckoutIntentOrphaned {
			log.Debug("skipping checkout event", slog.String("type", string(event.Type)))
			return nil
		}

		subject, body := OrphanAlert(event)

		if err := sender.Send(recipient, subject, body); err != nil {
			log.Error("failed to send alert", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Info("orphaned checkout alert sent",
			slog.Int64("checkout_session_id", event.CheckoutSessionID),
		)

		return nil
	}
}
