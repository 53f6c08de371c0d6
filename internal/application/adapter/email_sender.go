// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// SendEmailInput represents the input for sending an email.
type SendEmailInput struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// SendEmailResult represents the result of sending an email.
type SendEmailResult struct {
	ResendID string
}

// EmailSender defines the interface for sending emails via an external provider.
type EmailSender interface {
	// Send sends an email via the email provider (e.g., Resend).
	Send(ctx context.Context, input SendEmailInput) (*SendEmailResult, error)
}

// AlertNotifier tells operators about reports that need urgent attention.
type AlertNotifier interface {
	// NotifyCritical is called after a run whose report holds critical exceptions.
	NotifyCritical(ctx context.Context, report *entity.ReconciliationReport) error
}

// ReconciliationMetrics records run outcomes.
type ReconciliationMetrics interface {
	ObserveRun(status string, duration time.Duration, report *entity.ReconciliationReport, matches []*entity.Match)
	ObserveReturns(created, failed int)
}
