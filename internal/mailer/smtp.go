// Package mailer delivers outbound email over SMTP with bounded
// retries.
package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/workpal/workpal/internal/config"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
// Configuration problems are permanent; the sender never retries them.
var ErrNotConfigured = errors.New("smtp transport not configured")

// Transport delivers one message. Implementations report transient
// failures as plain errors.
type Transport interface {
	Deliver(to, subject, body string) error
}

// SMTPTransport sends mail over an implicit-TLS SMTP connection
// (SMTPS, typically port 465).
type SMTPTransport struct {
	cfg config.SMTPConfig
}

// NewSMTPTransport creates an SMTP transport from config.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Deliver connects, authenticates and sends a single message.
func (t *SMTPTransport) Deliver(to, subject, body string) error {
	if t.cfg.Host == "" || t.cfg.Username == "" || t.cfg.Password == "" {
		return fmt.Errorf("%w: host, username and password are required", ErrNotConfigured)
	}

	from := t.cfg.From
	if from == "" {
		from = t.cfg.Username
	}
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: t.cfg.Host})
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(from, to, subject, body))); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

// buildMessage assembles a minimal RFC 5322 message with CRLF line
// endings.
func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}
