// Package email renders and delivers account mail.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

func verificationMessage(baseURL, name, token string) (string, string) {
	link := fmt.Sprintf("%s/verify-email?token=%s", baseURL, url.QueryEscape(token))
	body := fmt.Sprintf(`Hello %s,

Welcome to VideoTube! Confirm your email address to activate your account:

    %s

Or submit this verification token:

    %s

The link expires in 24 hours. If you didn't sign up, you can safely ignore this email.

- The VideoTube Team`, name, link, token)
	return "Verify your VideoTube account", body
}

func resetMessage(name, resetURL string) (string, string) {
	body := fmt.Sprintf(`Hello %s,

We received a request to reset your VideoTube password. Use the link below to choose a new one:

    %s

The link expires in 15 minutes. If you didn't request a reset, you can safely ignore this email.

- The VideoTube Team`, name, resetURL)
	return "Reset your VideoTube password", body
}

// LogMailer writes messages to the logger instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	logger  *slog.Logger
	baseURL string
}

// NewLogMailer returns a mailer that only logs.
func NewLogMailer(logger *slog.Logger, baseURL string) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger, baseURL: baseURL}
}

// SendVerification logs the verification token.
func (m *LogMailer) SendVerification(_ context.Context, to, name, token string) error {
	subject, _ := verificationMessage(m.baseURL, name, token)
	m.logger.Info("email not sent, smtp disabled", "component", "email", "to", to, "subject", subject, "token", token)
	return nil
}

// SendPasswordReset logs the reset link.
func (m *LogMailer) SendPasswordReset(_ context.Context, to, _ string, resetURL string) error {
	m.logger.Info("email not sent, smtp disabled", "component", "email", "to", to, "subject", "password reset", "url", resetURL)
	return nil
}
