package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// ReportModel represents the reconciliation_reports table in the database.
// Exceptions are referenced by id; their rows live in reconciliation_exceptions.
type ReportModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PeriodKey             string          `gorm:"type:varchar(32);not null;index"`
	PeriodStart           time.Time       `gorm:"type:timestamp;not null"`
	PeriodEnd             time.Time       `gorm:"type:timestamp;not null"`
	TotalTransactions     int             `gorm:"not null"`
	MatchedTransactions   int             `gorm:"not null"`
	UnmatchedTransactions int             `gorm:"not null"`
	TotalAmount           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MatchedAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnmatchedAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReconciliationRate    decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	CriticalExceptions    int             `gorm:"not null;default:0"`
	ExceptionIDs          IDList          `gorm:"column:exception_ids"`
	GeneratedAt           time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the ReportModel.
func (ReportModel) TableName() string {
	return "reconciliation_reports"
}

// ReportFromEntity converts a domain ReconciliationReport to a ReportModel under the given period key.
func ReportFromEntity(r *entity.ReconciliationReport, periodKey string) *ReportModel {
	ids := make(IDList, len(r.Exceptions))
	for i, exc := range r.Exceptions {
		ids[i] = exc.ID.String()
	}

	return &ReportModel{
		ID:                    uuid.New(),
		PeriodKey:             periodKey,
		PeriodStart:           r.PeriodStart.UTC(),
		PeriodEnd:             r.PeriodEnd.UTC(),
		TotalTransactions:     r.TotalTransactions,
		MatchedTransactions:   r.MatchedTransactions,
		UnmatchedTransactions: r.UnmatchedTransactions,
		TotalAmount:           r.TotalAmount,
		MatchedAmount:         r.MatchedAmount,
		UnmatchedAmount:       r.UnmatchedAmount,
		ReconciliationRate:    r.ReconciliationRate,
		CriticalExceptions:    r.CountBySeverity(entity.SeverityCritical),
		ExceptionIDs:          ids,
		GeneratedAt:           r.GeneratedAt.UTC(),
	}
}
