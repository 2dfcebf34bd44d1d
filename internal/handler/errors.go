package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/book-network/internal/service"
)

// Business codes returned in the "code" field. Authentication failures
// share HTTP 401 and are told apart by these values.
const (
	codeAccountLocked      = 302
	codeAccountDisabled    = 303
	codeInvalidCredentials = 304
	codeInvalidToken       = 305
	codeExpiredToken       = 306
)

type errorResp struct {
	Error            string            `json:"error"`
	Code             int               `json:"code"`
	Message          string            `json:"message"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// classify maps an error to its HTTP status and response body. Internal
// details never reach the body.
func classify(err error) (int, errorResp) {
	var verr *service.ValidationError
	var expired *service.ExpiredActivationError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResp{"validation_failed", http.StatusBadRequest, "invalid input", verr.Fields}
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, errorResp{Error: "validation_failed", Code: http.StatusBadRequest, Message: "invalid input"}
	case errors.Is(err, service.ErrNotPermitted):
		msg := strings.TrimPrefix(err.Error(), service.ErrNotPermitted.Error()+": ")
		return http.StatusForbidden, errorResp{Error: "not_permitted", Code: http.StatusForbidden, Message: msg}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, errorResp{Error: "not_found", Code: http.StatusNotFound, Message: "resource not found"}
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, errorResp{Error: "email_taken", Code: http.StatusConflict, Message: "email already registered"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResp{Error: "invalid_credentials", Code: codeInvalidCredentials, Message: "login and / or password is incorrect"}
	case errors.Is(err, service.ErrAccountLocked):
		return http.StatusUnauthorized, errorResp{Error: "account_locked", Code: codeAccountLocked, Message: "user account is locked"}
	case errors.Is(err, service.ErrAccountDisabled):
		return http.StatusUnauthorized, errorResp{Error: "account_disabled", Code: codeAccountDisabled, Message: "user account is disabled"}
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, errorResp{Error: "invalid_token", Code: codeInvalidToken, Message: "invalid token"}
	case errors.As(err, &expired):
		return http.StatusUnauthorized, errorResp{Error: "expired_token", Code: codeExpiredToken,
			Message: "activation code has expired, a new code has been sent to your email"}
	case errors.Is(err, service.ErrExpiredToken):
		return http.StatusUnauthorized, errorResp{Error: "expired_token", Code: codeExpiredToken, Message: "token has expired"}
	case errors.As(err, &he):
		kind := strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		return he.Code, errorResp{Error: kind, Code: he.Code, Message: fmt.Sprint(he.Message)}
	default:
		return http.StatusInternalServerError, errorResp{Error: "internal", Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}

// writeError renders err as JSON.
func writeError(c echo.Context, err error) error {
	status, body := classify(err)
	return c.JSON(status, body)
}

// ErrorHandler is installed as echo's HTTPErrorHandler so that errors
// returned by middleware render like handler errors.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
