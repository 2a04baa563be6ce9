package mailer

import (
	"context"
	"errors"

	"github.com/campusmarket/marketplace/messaging-service/internal/config"
	"github.com/campusmarket/marketplace/pkg/log"
)

var ErrNoRecipient = errors.New("mail has no recipient")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// New returns an SMTP sender when a host is configured, otherwise a sender
// that only logs.
func New(cfg config.MailConfig) Sender {
	if cfg.Host == "" {
		l := log.L()
		l.Warn().Msg("smtp host not configured, emails will only be logged")
		return NewLogSender(cfg.From)
	}
	return NewSMTPSender(cfg)
}
