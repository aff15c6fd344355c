// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/registro/internal/challenge"
	"codeberg.org/oliverandrich/registro/internal/register"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	svc        *register.Service
	challenges *challenge.Generator
}

// New creates a new Handlers instance.
func New(svc *register.Service, challenges *challenge.Generator) *Handlers {
	return &Handlers{svc: svc, challenges: challenges}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Challenge issues a fresh signed arithmetic challenge.
func (h *Handlers) Challenge(c echo.Context) error {
	ch, err := h.challenges.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to issue challenge",
		})
	}
	return c.JSON(http.StatusOK, ch)
}
