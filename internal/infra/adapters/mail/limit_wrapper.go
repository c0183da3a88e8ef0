package mail

import (
	"context"

	"appointment-booking/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Mailer = (*limitedMailer)(nil)

// limitedMailer caps concurrent SMTP sessions.
type limitedMailer struct {
	inner adapter.Mailer
	sem   chan struct{}
}

func NewLimitedMailer(inner adapter.Mailer, maxConcurrent int) adapter.Mailer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedMailer{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedMailer) Send(ctx context.Context, m *adapter.Mail) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Send(ctx, m)
}
