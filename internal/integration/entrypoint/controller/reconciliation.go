// Package controller implements HTTP handlers for the API endpoints.
package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/usecase/reconciliation"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/integration/entrypoint/dto"
	"github.com/settlement-recon/backend/internal/integration/entrypoint/middleware"
)

// ReconciliationUseCases groups the use cases served by the reconciliation controller.
type ReconciliationUseCases struct {
	Run     *reconciliation.RunReconciliationUseCase
	List    *reconciliation.ListExceptionsUseCase
	Confirm *reconciliation.ConfirmMatchUseCase
	Resolve *reconciliation.ResolveExceptionUseCase
	Returns *reconciliation.ProcessReturnsUseCase
	Report  *reconciliation.GetReportUseCase
}

// ReconciliationController handles reconciliation endpoints.
type ReconciliationController struct {
	useCases   ReconciliationUseCases
	runTimeout time.Duration
	logger     *zap.Logger
}

// NewReconciliationController creates a new reconciliation controller instance.
// A non-positive runTimeout leaves runs bounded by the request context only.
func NewReconciliationController(useCases ReconciliationUseCases, runTimeout time.Duration, logger *zap.Logger) *ReconciliationController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationController{
		useCases:   useCases,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// RunReconciliation handles POST /reconciliation/runs requests.
func (c *ReconciliationController) RunReconciliation(ctx *gin.Context) {
	var req dto.RunReconciliationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, "Invalid request body", err)
		return
	}

	start, end, ok := c.parsePeriod(ctx, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	runCtx := ctx.Request.Context()
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.runTimeout)
		defer cancel()
	}

	output, err := c.useCases.Run.Execute(runCtx, reconciliation.RunReconciliationInput{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		c.handleReconciliationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.RunReconciliationResponse{
		Report:  dto.ToReportResponse(output.Report),
		Matches: dto.ToMatchResponses(output.Matches),
	})
}

// ListExceptions handles GET /reconciliation/exceptions requests.
func (c *ReconciliationController) ListExceptions(ctx *gin.Context) {
	input := reconciliation.ListExceptionsInput{}

	if severity := ctx.Query("severity"); severity != "" {
		input.Severity = &severity
	}
	if resolvedStr := ctx.Query("resolved"); resolvedStr != "" {
		resolved, err := strconv.ParseBool(resolvedStr)
		if err != nil {
			c.badRequest(ctx, "resolved must be true or false", err)
			return
		}
		input.Resolved = &resolved
	}
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			input.Limit = l
		}
	}
	if offsetStr := ctx.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			input.Offset = o
		}
	}

	output, err := c.useCases.List.Execute(ctx.Request.Context(), input)
	if err != nil {
		c.handleReconciliationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ListExceptionsResponse{
		Exceptions: dto.ToExceptionResponses(output.Exceptions),
		Limit:      output.Limit,
		Offset:     output.Offset,
	})
}

// ConfirmMatch handles POST /reconciliation/matches requests.
func (c *ReconciliationController) ConfirmMatch(ctx *gin.Context) {
	operator, ok := c.operator(ctx)
	if !ok {
		return
	}

	var req dto.ConfirmMatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, "Invalid request body", err)
		return
	}

	entryID, err := uuid.Parse(req.EntryID)
	if err != nil {
		c.badRequest(ctx, "Invalid entry ID format", err)
		return
	}

	output, err := c.useCases.Confirm.Execute(ctx.Request.Context(), reconciliation.ConfirmMatchInput{
		TransactionID: req.TransactionID,
		EntryID:       entryID,
		Notes:         req.Notes,
		ConfirmedBy:   operator,
	})
	if err != nil {
		c.handleReconciliationError(ctx, err)
		return
	}

	status := http.StatusOK
	if output.Created {
		status = http.StatusCreated
	}
	ctx.JSON(status, dto.ConfirmMatchResponse{
		Match:   dto.ToMatchResponse(output.Match),
		Created: output.Created,
	})
}

// ResolveException handles POST /reconciliation/exceptions/:id/resolve requests.
func (c *ReconciliationController) ResolveException(ctx *gin.Context) {
	operator, ok := c.operator(ctx)
	if !ok {
		return
	}

	exceptionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		c.badRequest(ctx, "Invalid exception ID format", err)
		return
	}

	var req dto.ResolveExceptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, "Invalid request body", err)
		return
	}

	exception, err := c.useCases.Resolve.Execute(ctx.Request.Context(), reconciliation.ResolveExceptionInput{
		ExceptionID: exceptionID,
		Action:      entity.SuggestedAction(req.Action),
		Notes:       req.Notes,
		Resolver:    operator,
	})
	if err != nil {
		c.handleReconciliationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToExceptionResponse(exception))
}

// ProcessReturns handles POST /reconciliation/returns requests.
func (c *ReconciliationController) ProcessReturns(ctx *gin.Context) {
	var req dto.ProcessReturnsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, "Invalid request body", err)
		return
	}

	returns := make([]*entity.ProcessorTransaction, len(req.Returns))
	for i, ret := range req.Returns {
		returns[i] = ret.ToEntity()
	}

	output, err := c.useCases.Returns.Execute(ctx.Request.Context(), reconciliation.ProcessReturnsInput{
		Returns: returns,
	})
	if err != nil {
		c.handleReconciliationError(ctx, err)
		return
	}

	entries := make([]dto.LedgerEntryResponse, len(output.CreatedEntries))
	for i, entry := range output.CreatedEntries {
		entries[i] = dto.ToLedgerEntryResponse(entry)
	}

	ctx.JSON(http.StatusOK, dto.ProcessReturnsResponse{
		CreatedEntries: entries,
		Exceptions:     dto.ToExceptionResponses(output.Exceptions),
		Skipped:        output.Skipped,
	})
}

// GetReport handles GET /reconciliation/reports?start_date=&end_date= requests.
func (c *ReconciliationController) GetReport(ctx *gin.Context) {
	start, end, ok := c.parsePeriod(ctx, ctx.Query("start_date"), ctx.Query("end_date"))
	if !ok {
		return
	}

	report, err := c.useCases.Report.Execute(ctx.Request.Context(), reconciliation.GetReportInput{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		c.handleReconciliationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToReportResponse(report))
}

func (c *ReconciliationController) operator(ctx *gin.Context) (string, bool) {
	operator, ok := middleware.GetOperatorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "Operator not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return "", false
	}
	return operator, true
}

func (c *ReconciliationController) parsePeriod(ctx *gin.Context, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := time.Parse(dto.DateLayout, startStr)
	if err != nil {
		c.invalidPeriod(ctx, "start_date must be formatted as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(dto.DateLayout, endStr)
	if err != nil {
		c.invalidPeriod(ctx, "end_date must be formatted as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (c *ReconciliationController) invalidPeriod(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error: message,
		Code:  string(domainerror.ErrCodeInvalidPeriod),
	})
}

func (c *ReconciliationController) badRequest(ctx *gin.Context, message string, err error) {
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   message,
		Code:    string(domainerror.ErrCodeMissingReconciliationArg),
		Details: err.Error(),
	})
}

// handleReconciliationError maps domain errors to HTTP responses.
func (c *ReconciliationController) handleReconciliationError(ctx *gin.Context, err error) {
	var recErr *domainerror.ReconciliationError
	if errors.As(err, &recErr) {
		ctx.JSON(getStatusCodeForReconciliationError(recErr.Code), dto.ErrorResponse{
			Error: recErr.Message,
			Code:  string(recErr.Code),
		})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		ctx.JSON(http.StatusGatewayTimeout, dto.ErrorResponse{
			Error: "Reconciliation run timed out",
		})
		return
	}

	c.logger.Error("reconciliation request failed",
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: "An internal error occurred",
	})
}

// getStatusCodeForReconciliationError maps error codes to HTTP status codes.
func getStatusCodeForReconciliationError(code domainerror.ReconciliationErrorCode) int {
	switch code {
	case domainerror.ErrCodeInvalidPeriod,
		domainerror.ErrCodeInvalidResolutionAction,
		domainerror.ErrCodeMissingResolver,
		domainerror.ErrCodeInvalidReturn,
		domainerror.ErrCodeMissingReconciliationArg,
		domainerror.ErrCodeInvalidSeverity:
		return http.StatusBadRequest
	case domainerror.ErrCodeTransactionNotFound,
		domainerror.ErrCodeEntryNotFound,
		domainerror.ErrCodeExceptionNotFound,
		domainerror.ErrCodeReportNotFound,
		domainerror.ErrCodeUnknownCustomer:
		return http.StatusNotFound
	case domainerror.ErrCodeExceptionAlreadyResolved:
		return http.StatusConflict
	case domainerror.ErrCodeLockNotAcquired:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
