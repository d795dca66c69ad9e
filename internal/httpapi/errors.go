// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/gotours/gotours/internal/auth"
	"github.com/gotours/gotours/pkg/errutil"
)

// writeError maps a domain error to an HTTP response. Expected failures keep
// their message; anything unmapped is a 500 with a generic message so
// internals never leak to clients.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "something went wrong"

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "incorrect email or password"
	case errors.Is(err, auth.ErrNoToken):
		status, message = http.StatusUnauthorized, "you are not logged in"
	case errors.Is(err, auth.ErrExpiredToken):
		status, message = http.StatusUnauthorized, "your session has expired, please log in again"
	case errors.Is(err, auth.ErrInvalidToken):
		status, message = http.StatusUnauthorized, "invalid session token"
	case errors.Is(err, auth.ErrAccountGone):
		status, message = http.StatusUnauthorized, "the account belonging to this token no longer exists"
	case errors.Is(err, auth.ErrStaleToken):
		status, message = http.StatusUnauthorized, "password was changed recently, please log in again"
	case errors.Is(err, auth.ErrForbidden):
		status, message = http.StatusForbidden, "you do not have permission to perform this action"
	case errors.Is(err, auth.ErrDuplicateEmail):
		status, message = http.StatusConflict, "email is already registered"
	case errors.Is(err, auth.ErrAccountNotFound):
		status, message = http.StatusNotFound, "no account with that email address"
	case errors.Is(err, auth.ErrResetTokenNotFound):
		status, message = http.StatusBadRequest, "reset token is invalid"
	case errors.Is(err, auth.ErrResetTokenExpired):
		status, message = http.StatusBadRequest, "reset token has expired"
	default:
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == "AUTH_VALIDATION" {
			status, message = http.StatusBadRequest, oopsErr.Error()
			break
		}
		errutil.LogError(s.logger, "request failed", err)
	}

	c.JSON(status, gin.H{
		"status":  statusWord(status),
		"message": message,
	})
}

// statusWord follows the convention of "fail" for client errors and "error"
// for server errors.
func statusWord(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}
