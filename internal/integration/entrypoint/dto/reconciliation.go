// Package dto defines data transfer objects for API requests and responses.
package dto

import (
	"time"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// DateLayout is the calendar-date format used by every request and response.
const DateLayout = "2006-01-02"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RunReconciliationRequest represents the request body for POST /reconciliation/runs.
type RunReconciliationRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// ConfirmMatchRequest represents the request body for POST /reconciliation/matches.
type ConfirmMatchRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	EntryID       string `json:"entry_id" binding:"required,uuid"`
	Notes         string `json:"notes" binding:"max=1000"`
}

// ResolveExceptionRequest represents the request body for POST /reconciliation/exceptions/:id/resolve.
type ResolveExceptionRequest struct {
	Action string `json:"action" binding:"required"`
	Notes  string `json:"notes" binding:"max=1000"`
}

// ReturnedPaymentRequest is a single returned payment reported by the processor.
type ReturnedPaymentRequest struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
	ReturnCode  string    `json:"return_code"`
	CustomerID  string    `json:"customer_id"`
}

// ProcessReturnsRequest represents the request body for POST /reconciliation/returns.
type ProcessReturnsRequest struct {
	Returns []ReturnedPaymentRequest `json:"returns" binding:"required"`
}

// ToEntity converts the request into a failed processor payment.
func (r ReturnedPaymentRequest) ToEntity() *entity.ProcessorTransaction {
	return &entity.ProcessorTransaction{
		ID:          r.ID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Net:         r.Amount,
		Status:      entity.ProcessorStatusFailed,
		Kind:        entity.ProcessorKindPayment,
		CreatedAt:   r.CreatedAt.UTC(),
		AvailableOn: r.CreatedAt.UTC(),
		Description: r.Description,
		ReturnCode:  r.ReturnCode,
		CustomerID:  r.CustomerID,
	}
}

// ExceptionResponse represents an exception in API responses.
type ExceptionResponse struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	Severity         string  `json:"severity"`
	TransactionID    string  `json:"transaction_id,omitempty"`
	EntryID          *string `json:"entry_id,omitempty"`
	Amount           string  `json:"amount"`
	Date             string  `json:"date"`
	Description      string  `json:"description"`
	SuggestedAction  string  `json:"suggested_action"`
	Resolved         bool    `json:"resolved"`
	ResolvedBy       string  `json:"resolved_by,omitempty"`
	ResolvedAt       *string `json:"resolved_at,omitempty"`
	ResolutionAction string  `json:"resolution_action,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// ListExceptionsResponse represents the response for GET /reconciliation/exceptions.
type ListExceptionsResponse struct {
	Exceptions []ExceptionResponse `json:"exceptions"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// MatchDifferencesResponse represents how far apart a matched pair is.
type MatchDifferencesResponse struct {
	AmountDifference      string  `json:"amount_difference"`
	DateDifferenceDays    int     `json:"date_difference_days"`
	DescriptionSimilarity float64 `json:"description_similarity"`
}

// MatchResponse represents a match in API responses.
type MatchResponse struct {
	ID                string                   `json:"id"`
	TransactionID     string                   `json:"transaction_id"`
	EntryID           *string                  `json:"entry_id,omitempty"`
	CandidateEntryIDs []string                 `json:"candidate_entry_ids,omitempty"`
	Amount            string                   `json:"amount"`
	Date              string                   `json:"date"`
	Confidence        int                      `json:"confidence"`
	Type              string                   `json:"type"`
	Differences       MatchDifferencesResponse `json:"differences"`
	Notes             string                   `json:"notes,omitempty"`
	SupersedesID      *string                  `json:"supersedes_id,omitempty"`
	ConfirmedBy       string                   `json:"confirmed_by,omitempty"`
	CreatedAt         string                   `json:"created_at"`
}

// ConfirmMatchResponse represents the response for POST /reconciliation/matches.
type ConfirmMatchResponse struct {
	Match   MatchResponse `json:"match"`
	Created bool          `json:"created"`
}

// ReportResponse represents a reconciliation report in API responses.
type ReportResponse struct {
	PeriodStart           string              `json:"period_start"`
	PeriodEnd             string              `json:"period_end"`
	TotalTransactions     int                 `json:"total_transactions"`
	MatchedTransactions   int                 `json:"matched_transactions"`
	UnmatchedTransactions int                 `json:"unmatched_transactions"`
	TotalAmount           string              `json:"total_amount"`
	MatchedAmount         string              `json:"matched_amount"`
	UnmatchedAmount       string              `json:"unmatched_amount"`
	ReconciliationRate    string              `json:"reconciliation_rate"`
	Exceptions            []ExceptionResponse `json:"exceptions"`
	GeneratedAt           string              `json:"generated_at"`
}

// RunReconciliationResponse represents the response for POST /reconciliation/runs.
type RunReconciliationResponse struct {
	Report  ReportResponse  `json:"report"`
	Matches []MatchResponse `json:"matches"`
}

// LedgerLineResponse represents a ledger line in API responses.
type LedgerLineResponse struct {
	AccountID string `json:"account_id"`
	Direction string `json:"direction"`
	Amount    int64  `json:"amount"`
}

// LedgerEntryResponse represents a ledger entry in API responses.
type LedgerEntryResponse struct {
	ID          string               `json:"id"`
	EntryNumber string               `json:"entry_number"`
	Description string               `json:"description"`
	Date        string               `json:"date"`
	Status      string               `json:"status"`
	Source      string               `json:"source"`
	Lines       []LedgerLineResponse `json:"lines"`
}

// ProcessReturnsResponse represents the response for POST /reconciliation/returns.
type ProcessReturnsResponse struct {
	CreatedEntries []LedgerEntryResponse `json:"created_entries"`
	Exceptions     []ExceptionResponse   `json:"exceptions"`
	Skipped        int                   `json:"skipped"`
}

// ToExceptionResponse converts a domain Exception to its DTO.
func ToExceptionResponse(e *entity.Exception) ExceptionResponse {
	resp := ExceptionResponse{
		ID:               e.ID.String(),
		Type:             string(e.Type),
		Severity:         string(e.Severity),
		TransactionID:    e.TransactionID,
		Amount:           e.Amount.StringFixed(2),
		Date:             e.Date.Format(DateLayout),
		Description:      e.Description,
		SuggestedAction:  string(e.SuggestedAction),
		Resolved:         e.Resolved,
		ResolvedBy:       e.ResolvedBy,
		ResolutionAction: string(e.ResolutionAction),
		Notes:            e.Notes,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
	if e.EntryID != nil {
		id := e.EntryID.String()
		resp.EntryID = &id
	}
	if e.ResolvedAt != nil {
		at := e.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &at
	}
	return resp
}

// ToExceptionResponses converts a slice of exceptions, never returning nil.
func ToExceptionResponses(exceptions []*entity.Exception) []ExceptionResponse {
	resp := make([]ExceptionResponse, len(exceptions))
	for i, e := range exceptions {
		resp[i] = ToExceptionResponse(e)
	}
	return resp
}

// ToMatchResponse converts a domain Match to its DTO.
func ToMatchResponse(m *entity.Match) MatchResponse {
	resp := MatchResponse{
		ID:            m.ID.String(),
		TransactionID: m.TransactionID,
		Amount:        m.Amount.StringFixed(2),
		Date:          m.Date.Format(DateLayout),
		Confidence:    m.Confidence,
		Type:          string(m.Type),
		Differences: MatchDifferencesResponse{
			AmountDifference:      m.Differences.AmountDifference.StringFixed(2),
			DateDifferenceDays:    m.Differences.DateDifferenceDays,
			DescriptionSimilarity: m.Differences.DescriptionSimilarity,
		},
		Notes:       m.Notes,
		ConfirmedBy: m.ConfirmedBy,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.EntryID != nil {
		id := m.EntryID.String()
		resp.EntryID = &id
	}
	if m.SupersedesID != nil {
		id := m.SupersedesID.String()
		resp.SupersedesID = &id
	}
	for _, candidate := range m.CandidateEntryIDs {
		resp.CandidateEntryIDs = append(resp.CandidateEntryIDs, candidate.String())
	}
	return resp
}

// ToMatchResponses converts a slice of matches, never returning nil.
func ToMatchResponses(matches []*entity.Match) []MatchResponse {
	resp := make([]MatchResponse, len(matches))
	for i, m := range matches {
		resp[i] = ToMatchResponse(m)
	}
	return resp
}

// ToReportResponse converts a domain report to its DTO.
func ToReportResponse(r *entity.ReconciliationReport) ReportResponse {
	return ReportResponse{
		PeriodStart:           r.PeriodStart.Format(DateLayout),
		PeriodEnd:             r.PeriodEnd.Format(DateLayout),
		TotalTransactions:     r.TotalTransactions,
		MatchedTransactions:   r.MatchedTransactions,
		UnmatchedTransactions: r.UnmatchedTransactions,
		TotalAmount:           r.TotalAmount.StringFixed(2),
		MatchedAmount:         r.MatchedAmount.StringFixed(2),
		UnmatchedAmount:       r.UnmatchedAmount.StringFixed(2),
		ReconciliationRate:    r.ReconciliationRate.StringFixed(2),
		Exceptions:            ToExceptionResponses(r.Exceptions),
		GeneratedAt:           r.GeneratedAt.Format(time.RFC3339),
	}
}

// ToLedgerEntryResponse converts a domain ledger entry to its DTO.
func ToLedgerEntryResponse(e *entity.LedgerEntry) LedgerEntryResponse {
	lines := make([]LedgerLineResponse, len(e.Lines))
	for i, line := range e.Lines {
		lines[i] = LedgerLineResponse{
			AccountID: line.AccountID,
			Direction: string(line.Direction),
			Amount:    line.Amount,
		}
	}
	return LedgerEntryResponse{
		ID:          e.ID.String(),
		EntryNumber: e.EntryNumber,
		Description: e.Description,
		Date:        e.Date.Format(DateLayout),
		Status:      string(e.Status),
		Source:      e.Source,
		Lines:       lines,
	}
}
