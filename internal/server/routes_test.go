// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/registro/internal/challenge"
	"codeberg.org/oliverandrich/registro/internal/i18n"
	"codeberg.org/oliverandrich/registro/internal/register"
	"codeberg.org/oliverandrich/registro/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	require.NoError(t, i18n.Init())

	_, st := testutil.NewTestDB(t)
	challenges := challenge.NewGenerator([]byte("test-signing-key"), time.Minute)
	svc := register.NewService(st, challenges, nil, nil)

	e := echo.New()
	setupRoutes(e, svc, challenges)
	return e
}

func TestRoutes_Index(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="formRegistro"`)
}

func TestRoutes_UnmatchedPathServesIndex(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/no-such-page", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="formRegistro"`)
}

func TestRoutes_StaticAssets(t *testing.T) {
	e := newTestEcho(t)

	for _, path := range []string{"/static/js/app.js", "/static/css/styles.css"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Body.String(), path)
	}
}

func TestRoutes_Health(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutes_Metrics(t *testing.T) {
	e := newTestEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
