// Package email implements a notifier.Notifier that delivers per-recipient
// messages over SMTP. It carries the request lifecycle mails: consultant
// alerts on new requests and client updates on status changes.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/sparkier-io/sparkier/internal/port/notifier"
)

const providerName = "email"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		port := 587
		if p := config["port"]; p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("email: invalid port %q: %w", p, err)
			}
			port = n
		}
		return NewNotifier(SMTPConfig{
			Host:     config["host"],
			Port:     port,
			From:     config["from"],
			Password: config["password"],
		}), nil
	})
}

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// Notifier sends email notifications via SMTP.
type Notifier struct {
	cfg SMTPConfig
}

var _ notifier.Notifier = (*Notifier)(nil)

// NewNotifier creates a new email notifier.
func NewNotifier(cfg SMTPConfig) *Notifier {
	return &Notifier{cfg: cfg}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		PerRecipient:   true,
	}
}

// Send delivers the notification to notification.To as an HTML mail.
func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		return notifier.ErrNotConfigured
	}
	if notification.To == "" {
		return fmt.Errorf("email: notification has no recipient")
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	body := renderHTML(notification)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		n.cfg.From, notification.To, notification.Title, body)

	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{notification.To}, []byte(msg)); err != nil {
		return fmt.Errorf("email send to %s: %w", notification.To, err)
	}
	return nil
}

func renderHTML(notification notifier.Notification) string {
	body := fmt.Sprintf(`<h2 style="color:%s;">%s</h2>
<p>%s</p>`,
		levelColor(notification.Level), notification.Title, notification.Message)

	if notification.Source != "" {
		body += fmt.Sprintf("\n<p style=\"color:#888;font-size:12px;\">%s</p>", notification.Source)
	}
	return body
}

// levelColor returns heading colors for notification levels.
func levelColor(level string) string {
	switch level {
	case "success":
		return "#2ECC71"
	case "error":
		return "#E74C3C"
	case "warning":
		return "#F39C12"
	default:
		return "#3498DB"
	}
}
