// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validate holds the registration rule set. It is the server
// copy of the rules the browser form also applies; the browser run is
// pure UX and this copy is the one that counts.
package validate

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"codeberg.org/oliverandrich/registro/internal/i18n"
)

// Field names as they appear in the request body and the error mapping.
const (
	FieldNombre    = "nombre"
	FieldEmail     = "email"
	FieldTelefono  = "telefono"
	FieldPassword  = "password"
	FieldPassword2 = "password2"
	FieldTerminos  = "terminos"
	FieldWebsite   = "website"
	FieldCaptcha   = "captcha"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[0-9]{10}$`)

	// Password strength sub-checks. Go's regexp has no lookahead, so the
	// single pattern from the form is split into one check per requirement.
	passLowerRe  = regexp.MustCompile(`[a-z]`)
	passUpperRe  = regexp.MustCompile(`[A-Z]`)
	passDigitRe  = regexp.MustCompile(`[0-9]`)
	passSymbolRe = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// Errors maps a field name to a human-readable validation message.
// An empty map means the candidate is acceptable.
type Errors map[string]string

// Candidate is a registration submission after decoding, before any
// normalization. Captcha values are pointers so that absent or
// non-numeric JSON values are distinguishable from zero.
type Candidate struct { //nolint:govet // fieldalignment: readability over optimization
	Nombre          string
	Email           string
	Telefono        string
	Password        string
	Password2       string
	Terminos        bool
	Website         string
	Captcha         *float64
	CaptchaExpected *float64

	// ChallengeToken carries the server-issued signed challenge when the
	// client opted into it. Empty for legacy submissions.
	ChallengeToken string
}

// Normalize trims and lowercases fields the way the server treats them
// before validation: email trimmed and lowercased, phone and name
// trimmed, honeypot trimmed.
func (c *Candidate) Normalize() {
	c.Nombre = strings.TrimSpace(c.Nombre)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Telefono = strings.TrimSpace(c.Telefono)
	c.Website = strings.TrimSpace(c.Website)
}

// Candidate applies the format, required, coherence and anti-bot rules
// and returns one message per failing field. Rules are independent;
// only the password confirmation check requires another field to be
// non-empty. Uniqueness is not checked here, that needs the store.
//
// The captcha rule compares the submitted answer against the
// client-declared expected value, as the original form does. A client
// that sets both identically always passes; callers holding a signed
// server challenge should verify it and overwrite this field.
func CandidateErrors(ctx context.Context, c *Candidate) Errors {
	errs := Errors{}

	// Required fields
	if utf8.RuneCountInString(c.Nombre) < 3 {
		errs[FieldNombre] = i18n.T(ctx, "name_required")
	}
	if c.Email == "" {
		errs[FieldEmail] = i18n.T(ctx, "email_required")
	}
	if c.Telefono == "" {
		errs[FieldTelefono] = i18n.T(ctx, "phone_required")
	}
	if c.Password == "" {
		errs[FieldPassword] = i18n.T(ctx, "password_required")
	}
	if c.Password2 == "" {
		errs[FieldPassword2] = i18n.T(ctx, "password2_required")
	}
	if !c.Terminos {
		errs[FieldTerminos] = i18n.T(ctx, "terms_required")
	}

	// Format
	if c.Email != "" && !emailRe.MatchString(c.Email) {
		errs[FieldEmail] = i18n.T(ctx, "email_invalid")
	}
	if c.Telefono != "" && !phoneRe.MatchString(c.Telefono) {
		errs[FieldTelefono] = i18n.T(ctx, "phone_invalid")
	}
	if c.Password != "" && !StrongPassword(c.Password) {
		errs[FieldPassword] = i18n.T(ctx, "password_weak")
	}

	// Coherence: only when both password fields are present
	if c.Password != "" && c.Password2 != "" && c.Password != c.Password2 {
		errs[FieldPassword2] = i18n.T(ctx, "password2_mismatch")
	}

	// Honeypot: any value means an automated submission
	if c.Website != "" {
		errs[FieldWebsite] = i18n.T(ctx, "honeypot_tripped")
	}

	// Challenge-response: both values must be numbers and equal
	if c.Captcha == nil || c.CaptchaExpected == nil || *c.Captcha != *c.CaptchaExpected {
		errs[FieldCaptcha] = i18n.T(ctx, "challenge_failed")
	}

	return errs
}

// StrongPassword reports whether the password satisfies all five
// strength requirements: length 8+, lowercase, uppercase, digit, symbol.
func StrongPassword(password string) bool {
	return utf8.RuneCountInString(password) >= 8 &&
		passLowerRe.MatchString(password) &&
		passUpperRe.MatchString(password) &&
		passDigitRe.MatchString(password) &&
		passSymbolRe.MatchString(password)
}

// ValidEmail reports whether the email matches the form's pattern.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidPhone reports whether the phone is exactly ten decimal digits.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}
