package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
)

// EmailSender delivers plaintext UTF-8 notifications over SMTP. Port 465
// means implicit TLS, any other port negotiates STARTTLS.
type EmailSender struct {
	cfg    config.EmailConfig
	logger *observability.Logger
}

func NewEmailSender(cfg config.EmailConfig, logger *observability.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, logger: logger}
}

func (s *EmailSender) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.Sender); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(s.cfg.Receiver); err != nil {
		return fmt.Errorf("invalid receiver address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Sender),
		mail.WithPassword(s.cfg.Password),
	}
	if s.cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Notification sent", "receiver", s.cfg.Receiver, "subject", subject)
	return nil
}
