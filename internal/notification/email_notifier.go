package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/config"
	"github.com/rs/zerolog"
)

// EmailNotifier delivers notifications to the recipient's own address when
// the email channel is enabled for the (recipient, type) pair.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   zerolog.Logger
	send     func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(cfg config.EmailConfig, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailNotifier{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		logger:   logger.With().Str("notifier", "email").Logger(),
		send:     smtp.SendMail,
	}, nil
}

func (n *EmailNotifier) Channel() string {
	return "email"
}

func (n *EmailNotifier) Notify(_ context.Context, delivery Delivery) error {
	if !delivery.Preference.Email {
		return nil
	}
	recipient := strings.TrimSpace(delivery.Recipient.Email)
	if recipient == "" {
		return nil
	}

	notif := delivery.Notification
	subject := fmt.Sprintf("[FixPoint] %s", strings.TrimSpace(notif.Title))

	body := strings.Builder{}
	body.WriteString(strings.TrimSpace(notif.Message))
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Type: %s\n", notif.TypeName))
	body.WriteString(fmt.Sprintf("Priority: %s\n", notif.Priority))
	if len(notif.Payload) > 0 {
		body.WriteString(fmt.Sprintf("Details: %s\n", string(notif.Payload)))
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		n.from, recipient, subject)
	message := []byte(headers + body.String())
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := n.send(addr, auth, n.from, []string{recipient}, message); err != nil {
		return err
	}
	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("recipient", recipient).
		Msg("email notification sent")
	return nil
}
