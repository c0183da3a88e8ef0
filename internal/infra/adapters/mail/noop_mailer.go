package mail

import (
	"context"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain/ports/adapter"
)

// NoopMailer implements adapter.Mailer for local/dev runs.
// It logs messages instead of sending them.
type NoopMailer struct {
	log zerolog.Logger
}

func NewNoopMailer(logger *zerolog.Logger) *NoopMailer {
	return &NoopMailer{log: logger.With().Str("component", "noop_mailer").Logger()}
}

func (n *NoopMailer) Send(ctx context.Context, m *adapter.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("attachments", len(m.Attachments)).
		Msg("mail not sent (mail.disabled)")
	return nil
}

// Ensure interface compliance
var _ adapter.Mailer = (*NoopMailer)(nil)
