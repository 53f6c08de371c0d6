package reconciliation

import (
	"context"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

// Default and maximum page sizes for exception listings.
const (
	defaultExceptionLimit = 50
	maxExceptionLimit     = 500
)

// ListExceptionsInput represents the input for listing exceptions.
type ListExceptionsInput struct {
	Severity *string
	Resolved *bool
	Limit    int
	Offset   int
}

// ListExceptionsOutput represents the result of listing exceptions.
type ListExceptionsOutput struct {
	Exceptions []*entity.Exception
	Limit      int
	Offset     int
}

// ListExceptionsUseCase handles retrieving exceptions.
type ListExceptionsUseCase struct {
	exceptionRepo adapter.ExceptionRepository
}

// NewListExceptionsUseCase creates a new ListExceptionsUseCase instance.
func NewListExceptionsUseCase(exceptionRepo adapter.ExceptionRepository) *ListExceptionsUseCase {
	return &ListExceptionsUseCase{
		exceptionRepo: exceptionRepo,
	}
}

// Execute lists exceptions, optionally filtered by severity and resolution state.
func (uc *ListExceptionsUseCase) Execute(ctx context.Context, input ListExceptionsInput) (*ListExceptionsOutput, error) {
	filter := entity.ExceptionFilter{
		Resolved: input.Resolved,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}

	if input.Severity != nil {
		severity := entity.Severity(*input.Severity)
		if !severity.IsValid() {
			return nil, domainerror.NewReconciliationError(
				domainerror.ErrCodeInvalidSeverity,
				"severity must be one of low, medium, high, critical",
				nil,
			)
		}
		filter.Severity = &severity
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultExceptionLimit
	}
	if filter.Limit > maxExceptionLimit {
		filter.Limit = maxExceptionLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	exceptions, err := uc.exceptionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListExceptionsOutput{
		Exceptions: exceptions,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}
