// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package welcome sends a confirmation mail after a successful
// registration. The service is optional; without SMTP configuration the
// server runs without it.
package welcome

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/registro/internal/config"
	"codeberg.org/oliverandrich/registro/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends welcome mails via SMTP.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a welcome mail service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &Service{cfg: cfg}, nil
}

// SendWelcome sends the localized welcome mail to a new registrant.
func (s *Service) SendWelcome(ctx context.Context, name, email string) error {
	subject := i18n.T(ctx, "welcome_subject")
	body := i18n.TData(ctx, "welcome_body", map[string]any{
		"Name": name,
	})
	return s.send(email, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS everywhere else
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return nil
}
