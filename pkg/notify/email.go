package notify

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"
	"github.com/wneessen/go-mail"

	"github.com/umputun/tenderscope/pkg/digest"
)

// EmailSender delivers digests as multipart (text + html) mail over SMTP.
type EmailSender struct {
	cfg EmailConfig
}

// EmailConfig holds SMTP and addressing parameters.
type EmailConfig struct {
	To       string
	From     string
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

// NewEmailSender creates an SMTP-backed digest sender.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send delivers the digest to the configured recipient. Any failure is
// returned to the caller, a run with undelivered digest is a failed run.
func (s *EmailSender) Send(ctx context.Context, d digest.Digest) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(s.cfg.To); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(d.Subject)
	msg.SetBodyString(mail.TypeTextPlain, d.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, d.HTML)

	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send digest to %s: %w", s.cfg.To, err)
	}

	lgr.Printf("[INFO] digest emailed to %s", s.cfg.To)
	return nil
}
