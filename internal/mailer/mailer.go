// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTP sends mail through a single SMTP relay using PLAIN auth.
type SMTP struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTP builds a sender for the given relay. An empty host yields a
// sender that only logs, so local development works without a mail
// account.
func NewSMTP(host string, port int, username, password, from string) Sender {
	if host == "" {
		return &logOnly{}
	}
	if from == "" {
		from = username
	}
	return &SMTP{host: host, port: port, username: username, password: password, from: from}
}

// Send builds an RFC 5322 message and hands it to the relay.
func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	return smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String()))
}

// logOnly records what would have been sent. Used when SMTP is not configured.
type logOnly struct{}

func (l *logOnly) Send(_ context.Context, to, subject, _ string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("smtp not configured, mail not sent")
	return nil
}
