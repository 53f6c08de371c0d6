package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/integration/email/templates"
)

// AlertConfig holds configuration for critical alerts.
type AlertConfig struct {
	Recipients []string
	// MaxListed caps the exceptions listed in one email.
	MaxListed int
	// Attempts is the number of sends tried on temporary failures.
	Attempts int
	Backoff  time.Duration
}

// DefaultAlertConfig returns the default alert configuration.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		MaxListed: 25,
		Attempts:  3,
		Backoff:   time.Second,
	}
}

// AlertNotifier emails operators when a run produces critical exceptions.
type AlertNotifier struct {
	sender   adapter.EmailSender
	renderer *templates.Renderer
	config   AlertConfig
	logger   *zap.Logger
}

var _ adapter.AlertNotifier = (*AlertNotifier)(nil)

// NewAlertNotifier creates a new alert notifier.
func NewAlertNotifier(sender adapter.EmailSender, renderer *templates.Renderer, config AlertConfig, logger *zap.Logger) *AlertNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Attempts < 1 {
		config.Attempts = 1
	}
	return &AlertNotifier{
		sender:   sender,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

// NotifyCritical sends one summary email listing the report's critical exceptions.
func (n *AlertNotifier) NotifyCritical(ctx context.Context, report *entity.ReconciliationReport) error {
	if len(n.config.Recipients) == 0 {
		return nil
	}

	data := n.alertData(report)
	if data.CriticalCount == 0 {
		return nil
	}

	html, text, err := n.renderer.Render(templates.CriticalAlert, data)
	if err != nil {
		return domainerror.NewEmailError(domainerror.ErrCodeTemplateRenderFailed, "failed to render critical alert",
			fmt.Errorf("%w: %w", domainerror.ErrTemplateRenderFailed, err))
	}

	input := adapter.SendEmailInput{
		To:      n.config.Recipients,
		Subject: fmt.Sprintf("[reconciliation] %d critical exception(s) for %s", data.CriticalCount, data.Period),
		HTML:    html,
		Text:    text,
	}

	for attempt := 1; ; attempt++ {
		result, err := n.sender.Send(ctx, input)
		if err == nil {
			n.logger.Info("critical alert sent",
				zap.String("period", data.Period),
				zap.Int("critical", data.CriticalCount),
				zap.String("resend_id", result.ResendID),
			)
			return nil
		}

		if errors.Is(err, ErrPermanentFailure) {
			return domainerror.NewEmailError(domainerror.ErrCodePermanentEmailFailure, "critical alert rejected", err)
		}
		if attempt >= n.config.Attempts {
			return domainerror.NewEmailError(domainerror.ErrCodeEmailSendFailed,
				fmt.Sprintf("failed to send critical alert after %d attempt(s)", attempt),
				fmt.Errorf("%w: %w", domainerror.ErrEmailSendFailed, err))
		}

		n.logger.Warn("critical alert send failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.config.Backoff * time.Duration(attempt)):
		}
	}
}

func (n *AlertNotifier) alertData(report *entity.ReconciliationReport) templates.CriticalAlertData {
	data := templates.CriticalAlertData{
		Period:             report.PeriodStart.Format(time.DateOnly) + " to " + report.PeriodEnd.Format(time.DateOnly),
		GeneratedAt:        report.GeneratedAt.Format(time.RFC3339),
		ReconciliationRate: report.ReconciliationRate.StringFixed(2),
		UnmatchedAmount:    report.UnmatchedAmount.StringFixed(2),
	}

	for _, exc := range report.Exceptions {
		if exc.Severity != entity.SeverityCritical {
			continue
		}
		data.CriticalCount++
		if n.config.MaxListed > 0 && len(data.Exceptions) >= n.config.MaxListed {
			data.Truncated++
			continue
		}
		data.Exceptions = append(data.Exceptions, templates.AlertException{
			TransactionID: exc.TransactionID,
			Type:          string(exc.Type),
			Amount:        exc.Amount.StringFixed(2),
			Description:   exc.Description,
		})
	}
	return data
}
