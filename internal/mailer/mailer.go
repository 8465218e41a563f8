// Package mailer delivers outbound email.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jobfinder/apiserver/config"
	"gopkg.in/gomail.v2"
)

// Message is a rendered HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when a host is configured and a log sender
// otherwise.
func New(cfg config.SMTPConfig, logger *slog.Logger) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg)
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail recipient is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	return s.dialer.DialAndSend(m)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail recipient is required")
	}
	s.logger.InfoContext(ctx, "mail.send", "to", msg.To, "subject", msg.Subject)
	s.logger.DebugContext(ctx, "mail.body", "to", msg.To, "html", msg.HTML)
	return nil
}
