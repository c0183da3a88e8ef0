package adapter

import "context"

// Attachment is a file carried by a Mail.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Mail is a provider-agnostic outgoing message. HTML is the primary body and
// Text the plain alternative.
type Mail struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Mailer is the hex port for outgoing email.
type Mailer interface {
	Send(ctx context.Context, m *Mail) error
}
