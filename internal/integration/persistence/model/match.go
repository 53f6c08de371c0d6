package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// MatchModel represents the reconciliation_matches table in the database.
// Rows are inserted once and never updated.
type MatchModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID         string          `gorm:"type:varchar(64);not null;index"`
	EntryID               *uuid.UUID      `gorm:"type:uuid;index"`
	CandidateEntryIDs     IDList          `gorm:"column:candidate_entry_ids"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Date                  time.Time       `gorm:"type:timestamp"`
	Confidence            int             `gorm:"not null"`
	Type                  string          `gorm:"type:varchar(10);not null;index"`
	AmountDifference      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DateDifferenceDays    int             `gorm:"not null;default:0"`
	DescriptionSimilarity float64         `gorm:"not null;default:0"`
	Notes                 string          `gorm:"type:text"`
	SupersedesID          *uuid.UUID      `gorm:"type:uuid;index"`
	ConfirmedBy           string          `gorm:"type:varchar(255)"`
	CreatedAt             time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the MatchModel.
func (MatchModel) TableName() string {
	return "reconciliation_matches"
}

// ToEntity converts a MatchModel to a domain Match entity.
func (m *MatchModel) ToEntity() *entity.Match {
	return &entity.Match{
		ID:                m.ID,
		TransactionID:     m.TransactionID,
		EntryID:           m.EntryID,
		CandidateEntryIDs: m.CandidateEntryIDs.UUIDs(),
		Amount:            m.Amount,
		Date:              m.Date.UTC(),
		Confidence:        m.Confidence,
		Type:              entity.MatchType(m.Type),
		Differences: entity.MatchDifferences{
			AmountDifference:      m.AmountDifference,
			DateDifferenceDays:    m.DateDifferenceDays,
			DescriptionSimilarity: m.DescriptionSimilarity,
		},
		Notes:        m.Notes,
		SupersedesID: m.SupersedesID,
		ConfirmedBy:  m.ConfirmedBy,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

// MatchFromEntity converts a domain Match entity to a MatchModel.
func MatchFromEntity(m *entity.Match) *MatchModel {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &MatchModel{
		ID:                    m.ID,
		TransactionID:         m.TransactionID,
		EntryID:               m.EntryID,
		CandidateEntryIDs:     NewIDList(m.CandidateEntryIDs),
		Amount:                m.Amount,
		Date:                  m.Date.UTC(),
		Confidence:            m.Confidence,
		Type:                  string(m.Type),
		AmountDifference:      m.Differences.AmountDifference,
		DateDifferenceDays:    m.Differences.DateDifferenceDays,
		DescriptionSimilarity: m.Differences.DescriptionSimilarity,
		Notes:                 m.Notes,
		SupersedesID:          m.SupersedesID,
		ConfirmedBy:           m.ConfirmedBy,
		CreatedAt:             createdAt.UTC(),
	}
}
