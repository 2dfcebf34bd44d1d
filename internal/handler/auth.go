package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/book-network/internal/middleware"
	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/service"
)

// AuthAPI is the part of service.AuthService used over HTTP.
type AuthAPI interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (service.AuthResult, error)
	Activate(ctx context.Context, code string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth AuthAPI
}

func NewAuthHandler(auth AuthAPI) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type meResp struct {
	ID       uint64   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

// Register creates a disabled account and mails an activation code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Auth.Register(ctx, req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "registration accepted, check your email for the activation code",
	})
}

// Authenticate exchanges credentials for an access token.
func (h *AuthHandler) Authenticate(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tokenResp{Token: res.Token, Expires: res.ExpiresAt})
}

// Activate consumes the code passed as ?token=.
func (h *AuthHandler) Activate(c echo.Context) error {
	code := strings.TrimSpace(c.QueryParam("token"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.Activate(ctx, code); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account activated"})
}

// Me echoes the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, meResp{ID: id.UserID, Email: id.Email, FullName: id.FullName, Roles: id.Roles()})
}

// actor returns the identity stored by the bearer middleware.
func actor(c echo.Context) (service.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	return id, nil
}

func badBody() error {
	return &service.ValidationError{Fields: map[string]string{"body": "malformed request body"}}
}
