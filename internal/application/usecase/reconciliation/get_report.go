package reconciliation

import (
	"context"
	"time"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

// GetReportInput represents the input for fetching the latest report of a period.
type GetReportInput struct {
	StartDate time.Time
	EndDate   time.Time
}

// GetReportUseCase returns the most recent report generated for a period.
type GetReportUseCase struct {
	cache adapter.ReportCache
}

// NewGetReportUseCase creates a new GetReportUseCase instance.
func NewGetReportUseCase(cache adapter.ReportCache) *GetReportUseCase {
	return &GetReportUseCase{cache: cache}
}

// Execute retrieves the cached report.
func (uc *GetReportUseCase) Execute(ctx context.Context, input GetReportInput) (*entity.ReconciliationReport, error) {
	period := valueobject.NewPeriod(input.StartDate, input.EndDate)
	if input.StartDate.IsZero() || input.EndDate.IsZero() || !period.IsValid() {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeInvalidPeriod,
			"start date must not be after end date",
			domainerror.ErrInvalidPeriod,
		)
	}

	if uc.cache == nil {
		return nil, reportNotFound(period)
	}

	report, err := uc.cache.Get(ctx, period.Key())
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, reportNotFound(period)
	}
	return report, nil
}

func reportNotFound(period valueobject.Period) error {
	return domainerror.NewReconciliationError(
		domainerror.ErrCodeReportNotFound,
		"no report generated for period "+period.Key(),
		nil,
	)
}
