package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/integration/persistence/model"
)

// processorTransactionRepository implements the adapter.ProcessorTransactionRepository interface.
type processorTransactionRepository struct {
	db *gorm.DB
}

// NewProcessorTransactionRepository creates a new processor transaction repository instance.
func NewProcessorTransactionRepository(db *gorm.DB) adapter.ProcessorTransactionRepository {
	return &processorTransactionRepository{
		db: db,
	}
}

// ListByDateRange retrieves transactions created within [start, end].
func (r *processorTransactionRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.ProcessorTransaction, error) {
	var txModels []model.ProcessorTransactionModel
	result := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Order("id ASC").
		Find(&txModels)
	if result.Error != nil {
		return nil, result.Error
	}

	txs := make([]*entity.ProcessorTransaction, len(txModels))
	for i := range txModels {
		txs[i] = txModels[i].ToEntity()
	}
	return txs, nil
}

// GetByID retrieves a transaction by its processor id.
func (r *processorTransactionRepository) GetByID(ctx context.Context, id string) (*entity.ProcessorTransaction, error) {
	var txModel model.ProcessorTransactionModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&txModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return txModel.ToEntity(), nil
}

// Upsert inserts unseen transactions; known ids keep their stored values.
func (r *processorTransactionRepository) Upsert(ctx context.Context, transactions []*entity.ProcessorTransaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	models := make([]*model.ProcessorTransactionModel, len(transactions))
	for i, t := range transactions {
		models[i] = model.ProcessorTransactionFromEntity(t)
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(models, batchSize)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}
