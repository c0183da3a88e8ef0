package mail

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"appointment-booking/internal/config"
	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends through one SMTP relay, dialing per message.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (s *SMTPMailer) Send(ctx context.Context, m *adapter.Mail) error {
	msg, err := buildMessage(s.from, s.fromName, m)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMessage renders m as a multipart message: text with an HTML
// alternative, plus in-memory attachments.
func buildMessage(from, fromName string, m *adapter.Mail) (*gomail.Message, error) {
	if m == nil || m.To == "" || m.Subject == "" || (m.HTML == "" && m.Text == "") {
		return nil, domain.ErrInvalidArgument
	}
	msg := gomail.NewMessage()
	if fromName != "" {
		msg.SetHeader("From", msg.FormatAddress(from, fromName))
	} else {
		msg.SetHeader("From", from)
	}
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)

	switch {
	case m.Text != "" && m.HTML != "":
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	default:
		msg.SetBody("text/plain", m.Text)
	}

	for _, a := range m.Attachments {
		content := a.Content
		msg.Attach(a.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		)
	}
	return msg, nil
}
