package mailer

import (
	"context"

	"github.com/campusmarket/marketplace/pkg/log"
)

// LogSender writes emails to the context logger instead of sending them.
type LogSender struct {
	from string
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(from string) *LogSender {
	return &LogSender{from: from}
}

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	l := log.Ctx(ctx)
	l.Info().
		Str("from", s.from).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_len", len(msg.Body)).
		Msg("email not sent, smtp disabled")
	return nil
}
