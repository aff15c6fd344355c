// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/registro/internal/database"
	"codeberg.org/oliverandrich/registro/internal/models"
	"codeberg.org/oliverandrich/registro/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the store for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *store.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, store.New(db)
}

// NewRegistration inserts a registration fixture.
func NewRegistration(t *testing.T, st *store.Store, name, email, phone string) *models.Registration {
	t.Helper()
	reg, err := st.Insert(context.Background(), name, email, phone)
	require.NoError(t, err)
	return reg
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
