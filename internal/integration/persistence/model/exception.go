package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// ExceptionModel represents the reconciliation_exceptions table in the database.
type ExceptionModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Type            string          `gorm:"type:varchar(32);not null;index"`
	Severity        string          `gorm:"type:varchar(10);not null;index"`
	TransactionID   string          `gorm:"type:varchar(64);index"`
	EntryID         *uuid.UUID      `gorm:"type:uuid;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Date            time.Time       `gorm:"type:timestamp"`
	Description     string          `gorm:"type:text"`
	SuggestedAction string          `gorm:"type:varchar(16);not null"`

	Resolved         bool       `gorm:"not null;default:false;index"`
	ResolvedBy       string     `gorm:"type:varchar(255)"`
	ResolvedAt       *time.Time `gorm:"type:timestamp"`
	ResolutionAction string     `gorm:"type:varchar(16)"`
	Notes            string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the ExceptionModel.
func (ExceptionModel) TableName() string {
	return "reconciliation_exceptions"
}

// ToEntity converts an ExceptionModel to a domain Exception entity.
func (m *ExceptionModel) ToEntity() *entity.Exception {
	var resolvedAt *time.Time
	if m.ResolvedAt != nil {
		at := m.ResolvedAt.UTC()
		resolvedAt = &at
	}

	return &entity.Exception{
		ID:               m.ID,
		Type:             entity.ExceptionType(m.Type),
		Severity:         entity.Severity(m.Severity),
		TransactionID:    m.TransactionID,
		EntryID:          m.EntryID,
		Amount:           m.Amount,
		Date:             m.Date.UTC(),
		Description:      m.Description,
		SuggestedAction:  entity.SuggestedAction(m.SuggestedAction),
		Resolved:         m.Resolved,
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       resolvedAt,
		ResolutionAction: entity.SuggestedAction(m.ResolutionAction),
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

// ExceptionFromEntity converts a domain Exception entity to an ExceptionModel.
func ExceptionFromEntity(e *entity.Exception) *ExceptionModel {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &ExceptionModel{
		ID:               e.ID,
		Type:             string(e.Type),
		Severity:         string(e.Severity),
		TransactionID:    e.TransactionID,
		EntryID:          e.EntryID,
		Amount:           e.Amount,
		Date:             e.Date.UTC(),
		Description:      e.Description,
		SuggestedAction:  string(e.SuggestedAction),
		Resolved:         e.Resolved,
		ResolvedBy:       e.ResolvedBy,
		ResolvedAt:       e.ResolvedAt,
		ResolutionAction: string(e.ResolutionAction),
		Notes:            e.Notes,
		CreatedAt:        createdAt.UTC(),
	}
}
