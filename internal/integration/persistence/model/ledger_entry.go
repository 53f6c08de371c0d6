package model

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// LedgerEntryModel represents the ledger_entries table in the database.
type LedgerEntryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntryNumber string    `gorm:"type:varchar(64);index"`
	Description string    `gorm:"type:text"`
	Date        time.Time `gorm:"type:timestamp;not null;index"`
	Status      string    `gorm:"type:varchar(10);not null;index"`
	Source      string    `gorm:"type:varchar(64)"`
	CreatedAt   time.Time `gorm:"not null"`

	Lines []LedgerLineModel `gorm:"foreignKey:EntryID;references:ID"`
}

// TableName returns the table name for the LedgerEntryModel.
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// LedgerLineModel represents the ledger_entry_lines table in the database.
type LedgerLineModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	EntryID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Position  int       `gorm:"not null"`
	AccountID string    `gorm:"type:varchar(64);not null;index"`
	Direction string    `gorm:"type:varchar(6);not null"`
	Amount    int64     `gorm:"type:bigint;not null"`
}

// TableName returns the table name for the LedgerLineModel.
func (LedgerLineModel) TableName() string {
	return "ledger_entry_lines"
}

// ToEntity converts a LedgerEntryModel to a domain LedgerEntry entity.
// Lines keep the order they were posted in.
func (m *LedgerEntryModel) ToEntity() *entity.LedgerEntry {
	lines := make([]LedgerLineModel, len(m.Lines))
	copy(lines, m.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })

	entryLines := make([]entity.LedgerLine, len(lines))
	for i, l := range lines {
		entryLines[i] = entity.LedgerLine{
			AccountID: l.AccountID,
			Direction: entity.LineDirection(l.Direction),
			Amount:    l.Amount,
		}
	}

	return &entity.LedgerEntry{
		ID:          m.ID,
		EntryNumber: m.EntryNumber,
		Description: m.Description,
		Date:        m.Date.UTC(),
		Status:      entity.LedgerEntryStatus(m.Status),
		Lines:       entryLines,
		Source:      m.Source,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

// LedgerEntryFromEntity converts a domain LedgerEntry entity to a model, lines included.
func LedgerEntryFromEntity(e *entity.LedgerEntry) *LedgerEntryModel {
	lines := make([]LedgerLineModel, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = LedgerLineModel{
			EntryID:   e.ID,
			Position:  i,
			AccountID: l.AccountID,
			Direction: string(l.Direction),
			Amount:    l.Amount,
		}
	}

	return &LedgerEntryModel{
		ID:          e.ID,
		EntryNumber: e.EntryNumber,
		Description: e.Description,
		Date:        e.Date.UTC(),
		Status:      string(e.Status),
		Source:      e.Source,
		CreatedAt:   e.CreatedAt.UTC(),
		Lines:       lines,
	}
}
