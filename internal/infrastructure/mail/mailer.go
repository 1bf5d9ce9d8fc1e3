package mail

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-credential-api/internal/config"
	"github.com/wneessen/go-mail"
)

// Sender delivers the three transactional emails the service sends.
type Sender interface {
	SendRegistrationLink(to, link string) error
	SendPasswordResetLink(to, link string) error
	SendPasswordChanged(to string) error
}

type smtpSender struct {
	client *mail.Client
	from   string
}

// NewSender creates an SMTP-backed Sender.
func NewSender(cfg *config.Config) (Sender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	if cfg.SMTPTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		// Local dev relays (MailHog etc.) speak plain SMTP.
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &smtpSender{client: client, from: cfg.SMTPFrom}, nil
}

func (s *smtpSender) SendRegistrationLink(to, link string) error {
	return s.send(to, "Verification Link",
		"Complete your registration using the link: "+link)
}

func (s *smtpSender) SendPasswordResetLink(to, link string) error {
	return s.send(to, "Password Reset Link",
		"You have requested a password reset. Use the following link to reset your password: "+link)
}

func (s *smtpSender) SendPasswordChanged(to string) error {
	return s.send(to, "Password Changed Successfully",
		"Your password has been changed successfully.")
}

func (s *smtpSender) send(to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	if err := s.client.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
