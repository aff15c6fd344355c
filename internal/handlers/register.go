// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/registro/internal/i18n"
	"codeberg.org/oliverandrich/registro/internal/validate"
	"github.com/labstack/echo/v4"
)

// registerRequest is the POST /api/register body. Field names match the
// original form. The captcha values are raw so a non-numeric value
// becomes a field error instead of failing the whole decode.
type registerRequest struct {
	Nombre          string          `json:"nombre"`
	Email           string          `json:"email"`
	Telefono        string          `json:"telefono"`
	Password        string          `json:"password"`
	Password2       string          `json:"password2"`
	Terminos        bool            `json:"terminos"`
	Website         string          `json:"website"`
	Captcha         json.RawMessage `json:"captcha"`
	CaptchaExpected json.RawMessage `json:"captchaExpected"`
	ChallengeToken  string          `json:"challengeToken"`
}

type successResponse struct {
	Message string `json:"message"`
}

type failureResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Register evaluates one registration submission. 201 on success, 400
// with a field-error mapping on validation failure, 500 on a store
// failure that no field can be blamed for.
func (h *Handlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, failureResponse{
			Message: i18n.T(ctx, "register_failed"),
			Errors:  map[string]string{},
		})
	}

	cand := &validate.Candidate{
		Nombre:          req.Nombre,
		Email:           req.Email,
		Telefono:        req.Telefono,
		Password:        req.Password,
		Password2:       req.Password2,
		Terminos:        req.Terminos,
		Website:         req.Website,
		Captcha:         numberOrNil(req.Captcha),
		CaptchaExpected: numberOrNil(req.CaptchaExpected),
		ChallengeToken:  req.ChallengeToken,
	}

	_, errs, err := h.svc.Register(ctx, cand)
	if err != nil {
		slog.Error("registration failed", "error", err)
		return c.JSON(http.StatusInternalServerError, failureResponse{
			Message: i18n.T(ctx, "internal_error"),
			Errors:  map[string]string{},
		})
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, failureResponse{
			Message: i18n.T(ctx, "register_failed"),
			Errors:  errs,
		})
	}

	return c.JSON(http.StatusCreated, successResponse{
		Message: i18n.T(ctx, "register_success"),
	})
}

// numberOrNil parses a raw JSON value as a number, nil for anything else.
func numberOrNil(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return &n
}
