// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/gotours/gotours/internal/auth"
)

// requireAuth authenticates the bearer token and attaches the account to the
// request context. Unauthenticated requests are rejected before the handler
// runs.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := s.guard.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithAccount(c.Request.Context(), account))
		c.Next()
	}
}

// requireRoles rejects authenticated accounts whose role is not in the list.
// Must run after requireAuth.
func (s *Server) requireRoles(roles ...auth.Role) gin.HandlerFunc {
	policy := auth.RestrictTo(roles...)
	return func(c *gin.Context) {
		account, ok := auth.AccountFrom(c.Request.Context())
		if !ok {
			s.writeError(c, auth.ErrNoToken)
			c.Abort()
			return
		}
		if err := policy(account); err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
