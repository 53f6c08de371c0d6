package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/integration/persistence/model"
)

// ledgerRepository implements the adapter.LedgerRepository interface.
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository instance.
func NewLedgerRepository(db *gorm.DB) adapter.LedgerRepository {
	return &ledgerRepository{
		db: db,
	}
}

// ListByDateRange retrieves entries dated within [start, end], lines included.
func (r *ledgerRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.LedgerEntry, error) {
	var entryModels []model.LedgerEntryModel
	result := r.db.WithContext(ctx).
		Preload("Lines").
		Where("date >= ? AND date <= ?", start.UTC(), end.UTC()).
		Order("date ASC").
		Order("id ASC").
		Find(&entryModels)
	if result.Error != nil {
		return nil, result.Error
	}

	entries := make([]*entity.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToEntity()
	}
	return entries, nil
}

// GetByID retrieves an entry with its lines.
func (r *ledgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.LedgerEntry, error) {
	var entryModel model.LedgerEntryModel
	result := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&entryModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return entryModel.ToEntity(), nil
}

// Append inserts the entry and its lines in one transaction.
// An entry whose id already exists is left as is and false is returned.
func (r *ledgerRepository) Append(ctx context.Context, entry *entity.LedgerEntry) (bool, error) {
	entryModel := model.LedgerEntryFromEntity(entry)
	lines := entryModel.Lines
	entryModel.Lines = nil

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entryModel)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}
