// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// ProcessorTransactionModel represents the processor_transactions table in the database.
type ProcessorTransactionModel struct {
	ID          string    `gorm:"type:varchar(64);primaryKey"`
	Amount      int64     `gorm:"type:bigint;not null"`
	Currency    string    `gorm:"type:varchar(3);not null"`
	Fee         int64     `gorm:"type:bigint;not null;default:0"`
	Net         int64     `gorm:"type:bigint;not null;default:0"`
	Status      string    `gorm:"type:varchar(16);not null;index"`
	Kind        string    `gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `gorm:"type:timestamp;not null;index"`
	AvailableOn time.Time `gorm:"type:timestamp"`
	Description string    `gorm:"type:text"`
	SourceRef   string    `gorm:"type:varchar(255)"`
	ReturnCode  string    `gorm:"type:varchar(8)"`
	CustomerID  string    `gorm:"type:varchar(64);index"`
	IngestedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the ProcessorTransactionModel.
func (ProcessorTransactionModel) TableName() string {
	return "processor_transactions"
}

// ToEntity converts a ProcessorTransactionModel to a domain ProcessorTransaction entity.
func (m *ProcessorTransactionModel) ToEntity() *entity.ProcessorTransaction {
	return &entity.ProcessorTransaction{
		ID:          m.ID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Fee:         m.Fee,
		Net:         m.Net,
		Status:      entity.ProcessorTransactionStatus(m.Status),
		Kind:        entity.ProcessorTransactionKind(m.Kind),
		CreatedAt:   m.CreatedAt.UTC(),
		AvailableOn: m.AvailableOn.UTC(),
		Description: m.Description,
		SourceRef:   m.SourceRef,
		ReturnCode:  m.ReturnCode,
		CustomerID:  m.CustomerID,
	}
}

// ProcessorTransactionFromEntity converts a domain ProcessorTransaction entity to a model.
func ProcessorTransactionFromEntity(t *entity.ProcessorTransaction) *ProcessorTransactionModel {
	return &ProcessorTransactionModel{
		ID:          t.ID,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Fee:         t.Fee,
		Net:         t.Net,
		Status:      string(t.Status),
		Kind:        string(t.Kind),
		CreatedAt:   t.CreatedAt.UTC(),
		AvailableOn: t.AvailableOn.UTC(),
		Description: t.Description,
		SourceRef:   t.SourceRef,
		ReturnCode:  t.ReturnCode,
		CustomerID:  t.CustomerID,
	}
}
