package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/taldoflemis/trattoria/cucina"
)

// validationIssues flattens validator field errors into the issue list
// carried by the 422 body.
func validationIssues(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	issues := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, fe.Field()+" failed on the '"+fe.Tag()+"' rule")
	}
	return issues
}

func invalidBody(c echo.Context, err error) error {
	slog.ErrorContext(c.Request().Context(), "failed to bind request", slog.String("error", err.Error()))
	return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "invalid request"})
}

func invalidFields(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Detail: "Validation failed",
		Issues: validationIssues(err),
	})
}

// Login godoc
//
// @Summary Log a customer in and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login Request"
// @Success 200 {object} cucina.User
// @Failure 401 {object} ErrorResponse
// @Router /v1/auth/login [post]
func (h *MainHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	creds, err := h.kitchen.Login(ctx, cucina.LoginRequest(req))
	if err != nil {
		return h.kitchenError(c, err)
	}

	session := h.sessions.Begin(creds.User, creds.AccessToken)
	h.setSessionCookie(c, session.ID)

	slog.InfoContext(ctx, "customer logged in", slog.String("user_id", creds.User.ID))
	return c.JSON(http.StatusOK, creds.User)
}

// Register godoc
//
// @Summary Register a customer and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body RegisterRequest true "Register Request"
// @Success 201 {object} cucina.User
// @Failure 422 {object} ErrorResponse
// @Router /v1/auth/register [post]
func (h *MainHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	creds, err := h.kitchen.Register(ctx, cucina.RegisterRequest(req))
	if err != nil {
		return h.kitchenError(c, err)
	}

	session := h.sessions.Begin(creds.User, creds.AccessToken)
	h.setSessionCookie(c, session.ID)

	slog.InfoContext(ctx, "customer registered", slog.String("user_id", creds.User.ID))
	return c.JSON(http.StatusCreated, creds.User)
}

// Logout godoc
//
// @Summary End the session and clear the cart
// @Tags auth
// @Success 204
// @Router /v1/auth/logout [post]
func (h *MainHandler) Logout(c echo.Context) error {
	session := currentSession(c)
	h.sessions.End(session.ID)
	h.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me godoc
//
// @Summary Get the logged-in customer, refreshed from the kitchen
// @Tags auth
// @Produce json
// @Success 200 {object} cucina.User
// @Failure 401 {object} ErrorResponse
// @Router /v1/auth/me [get]
func (h *MainHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	session := currentSession(c)

	user, err := h.kitchen.Me(ctx, session.Token)
	if err != nil {
		return h.kitchenError(c, err)
	}

	return c.JSON(http.StatusOK, user)
}
