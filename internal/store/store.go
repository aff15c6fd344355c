// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package store provides access to the registrations table. The table
// carries unique indexes on email and phone; Insert maps constraint
// violations back to per-field errors so the table remains the final
// arbiter of uniqueness even when a pre-check raced another request.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/registro/internal/models"
)

// ErrNotFound is returned when a registration does not exist.
var ErrNotFound = errors.New("registration not found")

// ErrEmailTaken is returned by Insert when the email unique index rejects the row.
var ErrEmailTaken = errors.New("email already registered")

// ErrPhoneTaken is returned by Insert when the phone unique index rejects the row.
var ErrPhoneTaken = errors.New("phone already registered")

// Store wraps the database for registration operations.
type Store struct {
	db *sqlx.DB
}

// New creates a new Store instance.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Insert creates a new registration. A unique-constraint violation is
// translated to ErrEmailTaken or ErrPhoneTaken so callers can report
// the colliding field.
func (s *Store) Insert(ctx context.Context, name, email, phone string) (*models.Registration, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations (name, email, phone) VALUES (?, ?, ?)`,
		name, email, phone)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var reg models.Registration
	if err := s.db.GetContext(ctx, &reg, `SELECT * FROM registrations WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetByEmail retrieves a registration by its normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.GetContext(ctx, &reg, `SELECT * FROM registrations WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// EmailExists reports whether a registration with the given email exists.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM registrations WHERE email = ?`, email); err != nil {
		return false, err
	}
	return count > 0, nil
}

// PhoneExists reports whether a registration with the given phone exists.
func (s *Store) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM registrations WHERE phone = ?`, phone); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the total number of registrations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM registrations`); err != nil {
		return 0, err
	}
	return count, nil
}

// mapConstraintError inspects a SQLite error and returns the per-field
// sentinel for unique-index violations, or nil if the error is not one.
// modernc.org/sqlite reports these as "UNIQUE constraint failed: <table>.<column>".
func mapConstraintError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "registrations.email"):
		return ErrEmailTaken
	case strings.Contains(msg, "registrations.phone"):
		return ErrPhoneTaken
	}
	return nil
}
