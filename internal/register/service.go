// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package register implements the server-side registration flow:
// normalize, re-validate, check uniqueness, insert. Client-side
// validation is never trusted; every rule runs again here.
package register

import (
	"context"
	"errors"
	"log/slog"

	"codeberg.org/oliverandrich/registro/internal/challenge"
	"codeberg.org/oliverandrich/registro/internal/i18n"
	"codeberg.org/oliverandrich/registro/internal/metrics"
	"codeberg.org/oliverandrich/registro/internal/models"
	"codeberg.org/oliverandrich/registro/internal/store"
	"codeberg.org/oliverandrich/registro/internal/validate"
)

// Notifier sends a post-registration notification. Failures must not
// fail the registration; the service only logs them.
type Notifier interface {
	SendWelcome(ctx context.Context, name, email string) error
}

// Service runs registrations against the store.
type Service struct {
	store      *store.Store
	challenges *challenge.Generator
	metrics    *metrics.Metrics
	notifier   Notifier
}

// NewService creates a registration service. metrics and notifier may be nil.
func NewService(st *store.Store, challenges *challenge.Generator, m *metrics.Metrics, notifier Notifier) *Service {
	return &Service{
		store:      st,
		challenges: challenges,
		metrics:    m,
		notifier:   notifier,
	}
}

// Register evaluates one candidate exactly once. It returns the created
// row on success, a non-empty field-error mapping for user-correctable
// failures, or an error for internal failures. Exactly one of the three
// is meaningful.
func (s *Service) Register(ctx context.Context, c *validate.Candidate) (*models.Registration, validate.Errors, error) {
	c.Normalize()

	errs := validate.CandidateErrors(ctx, c)

	basic := hasBasicErrors(errs)

	// A signed server challenge supersedes the legacy echo comparison.
	if c.ChallengeToken != "" {
		delete(errs, validate.FieldCaptcha)
		if err := s.verifyChallenge(c); err != nil {
			errs[validate.FieldCaptcha] = i18n.T(ctx, "challenge_failed")
			slog.Warn("challenge verification failed", "reason", err)
		}
	} else if _, failed := errs[validate.FieldCaptcha]; failed {
		slog.Warn("legacy challenge mismatch",
			"answer", floatOrNil(c.Captcha),
			"expected", floatOrNil(c.CaptchaExpected),
		)
	}

	if _, failed := errs[validate.FieldWebsite]; failed {
		slog.Warn("honeypot tripped", "value", c.Website)
	}

	// Uniqueness pre-checks name the colliding field. Only run for
	// syntactically valid values; the insert below remains the final
	// arbiter when two requests race past these.
	if _, failed := errs[validate.FieldEmail]; !failed {
		exists, err := s.store.EmailExists(ctx, c.Email)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			errs[validate.FieldEmail] = i18n.T(ctx, "email_taken")
			slog.Warn("duplicate email rejected", "email", c.Email)
		}
	}
	if _, failed := errs[validate.FieldTelefono]; !failed {
		exists, err := s.store.PhoneExists(ctx, c.Telefono)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			errs[validate.FieldTelefono] = i18n.T(ctx, "phone_taken")
			slog.Warn("duplicate phone rejected", "phone", c.Telefono)
		}
	}

	if len(errs) > 0 {
		if basic {
			slog.Warn("request bypassed client-side validation", "fields", fieldNames(errs))
		}
		s.observeRejection(errs)
		return nil, errs, nil
	}

	reg, err := s.store.Insert(ctx, c.Nombre, c.Email, c.Telefono)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		errs[validate.FieldEmail] = i18n.T(ctx, "email_taken")
		slog.Warn("duplicate email rejected on insert", "email", c.Email)
		s.observeRejection(errs)
		return nil, errs, nil
	case errors.Is(err, store.ErrPhoneTaken):
		errs[validate.FieldTelefono] = i18n.T(ctx, "phone_taken")
		slog.Warn("duplicate phone rejected on insert", "phone", c.Telefono)
		s.observeRejection(errs)
		return nil, errs, nil
	case err != nil:
		s.metrics.ObserveOutcome("error")
		return nil, nil, err
	}

	slog.Info("registration accepted", "id", reg.ID, "email", reg.Email)
	s.metrics.ObserveOutcome("accepted")

	if s.notifier != nil {
		if err := s.notifier.SendWelcome(ctx, reg.Name, reg.Email); err != nil {
			slog.Warn("welcome notification failed", "email", reg.Email, "error", err)
		}
	}

	return reg, nil, nil
}

// verifyChallenge checks the signed token against the submitted answer.
func (s *Service) verifyChallenge(c *validate.Candidate) error {
	if s.challenges == nil {
		return challenge.ErrInvalid
	}
	if c.Captcha == nil {
		return challenge.ErrWrongAnswer
	}
	return s.challenges.Verify(c.ChallengeToken, *c.Captcha)
}

func (s *Service) observeRejection(errs validate.Errors) {
	s.metrics.ObserveOutcome("rejected")
	for field := range errs {
		s.metrics.ObserveRejection(field)
	}
}

// hasBasicErrors reports whether any failing field is one the browser
// form validates itself; such an error means the request skipped the
// front-end. Phone, honeypot and challenge errors are not counted.
func hasBasicErrors(errs validate.Errors) bool {
	for field := range errs {
		switch field {
		case validate.FieldTelefono, validate.FieldWebsite, validate.FieldCaptcha:
		default:
			return true
		}
	}
	return false
}

func fieldNames(errs validate.Errors) []string {
	names := make([]string, 0, len(errs))
	for field := range errs {
		names = append(names, field)
	}
	return names
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
