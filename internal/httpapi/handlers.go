// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gotours/gotours/internal/auth"
)

// accountDTO is the client-facing view of an account. Password fields never
// appear here.
type accountDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAccountDTO(a *auth.Account) accountDTO {
	return accountDTO{
		ID:        a.ID.String(),
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt,
	}
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, "invalid request body")
		return
	}

	account, token, err := s.svc.Signup(c.Request.Context(), req.Name, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.SignupsTotal.Inc()
	}
	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"account": toAccountDTO(account)},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeBadRequest(c, "please provide email and password")
		return
	}

	account, token, err := s.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if s.metrics != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				s.metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			} else {
				s.metrics.LoginsTotal.WithLabelValues("error").Inc()
			}
		}
		s.writeError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"account": toAccountDTO(account)},
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, "invalid request body")
		return
	}

	if err := s.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if s.metrics != nil {
			s.metrics.PasswordResetsTotal.WithLabelValues("request", "failed").Inc()
		}
		s.writeError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues("request", "sent").Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "reset token sent to email",
	})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, "invalid request body")
		return
	}

	rawToken := c.Param("resetToken")
	account, token, err := s.svc.ResetPassword(c.Request.Context(), rawToken, req.Password, req.PasswordConfirm)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PasswordResetsTotal.WithLabelValues("consume", "failed").Inc()
		}
		s.writeError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues("consume", "success").Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"account": toAccountDTO(account)},
	})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (s *Server) handleUpdatePassword(c *gin.Context) {
	account, ok := auth.AccountFrom(c.Request.Context())
	if !ok {
		s.writeError(c, auth.ErrNoToken)
		return
	}

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBadRequest(c, "invalid request body")
		return
	}

	token, err := s.svc.UpdatePassword(c.Request.Context(), account, req.CurrentPassword, req.Password, req.PasswordConfirm)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"account": toAccountDTO(account)},
	})
}

func (s *Server) handleMe(c *gin.Context) {
	account, ok := auth.AccountFrom(c.Request.Context())
	if !ok {
		s.writeError(c, auth.ErrNoToken)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"account": toAccountDTO(account)},
	})
}

func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.svc.ListAccounts(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	dtos := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"accounts": dtos},
	})
}

func (s *Server) writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  "fail",
		"message": message,
	})
}
