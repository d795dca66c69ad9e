// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

// Package mail delivers password reset tokens to account holders over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"
)

// dialer abstracts gomail's SMTP dialer for testing.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig configures the SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// BaseURL is the public URL of the service, used to build reset links.
	BaseURL string
}

// SMTPDelivery sends password reset emails over SMTP with retries on
// transient failures.
type SMTPDelivery struct {
	dialer  dialer
	from    string
	baseURL string
	logger  *slog.Logger
}

// NewSMTPDelivery creates an SMTP-backed reset delivery.
func NewSMTPDelivery(cfg SMTPConfig) (*SMTPDelivery, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address is required")
	}
	return &SMTPDelivery{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: cfg.BaseURL,
		logger:  slog.Default(),
	}, nil
}

// Deliver sends the raw reset token to the recipient. Transient SMTP
// failures are retried with exponential backoff; the last error is
// returned if all attempts fail.
func (d *SMTPDelivery) Deliver(ctx context.Context, recipient, rawToken string) error {
	resetURL := fmt.Sprintf("%s/api/v1/users/reset-password/%s", d.baseURL, rawToken)

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", "Your password reset token (valid for 10 min)")
	m.SetBody("text/plain", fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and password confirmation to: %s\n"+
			"If you didn't forget your password, please ignore this email.\n", resetURL))

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if sendErr := d.dialer.DialAndSend(m); sendErr != nil {
			d.logger.Warn("reset email send failed, retrying", "recipient", recipient, "error", sendErr)
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("recipient", recipient).Wrap(err)
	}

	d.logger.Info("reset email sent", "recipient", recipient)
	return nil
}

// LogDelivery writes reset tokens to the log instead of sending email.
// Intended for local development only.
type LogDelivery struct {
	logger *slog.Logger
}

// NewLogDelivery creates a log-only reset delivery.
func NewLogDelivery(logger *slog.Logger) *LogDelivery {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDelivery{logger: logger}
}

// Deliver logs the raw token.
func (d *LogDelivery) Deliver(_ context.Context, recipient, rawToken string) error {
	d.logger.Info("password reset token issued", "recipient", recipient, "token", rawToken)
	return nil
}
