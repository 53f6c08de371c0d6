// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
	"github.com/settlement-recon/backend/internal/integration/persistence/model"
)

// batchSize bounds rows per INSERT and ids per IN clause.
const batchSize = 200

// matchRepository implements the adapter.MatchRepository interface.
type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new match repository instance.
func NewMatchRepository(db *gorm.DB) adapter.MatchRepository {
	return &matchRepository{
		db: db,
	}
}

// Create stores a single match.
func (r *matchRepository) Create(ctx context.Context, match *entity.Match) error {
	return r.db.WithContext(ctx).Create(model.MatchFromEntity(match)).Error
}

// CreateMany stores matches, ignoring rows whose id already exists.
func (r *matchRepository) CreateMany(ctx context.Context, matches []*entity.Match) error {
	if len(matches) == 0 {
		return nil
	}

	models := make([]*model.MatchModel, len(matches))
	for i, m := range matches {
		models[i] = model.MatchFromEntity(m)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(models, batchSize).Error
}

// GetActiveByTransaction returns the newest confirmed manual match not superseded by another.
func (r *matchRepository) GetActiveByTransaction(ctx context.Context, transactionID string) (*entity.Match, error) {
	var matchModel model.MatchModel
	result := r.activeManual(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC").
		First(&matchModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return matchModel.ToEntity(), nil
}

// ListActiveManual returns the active manual match of each given transaction that has one.
func (r *matchRepository) ListActiveManual(ctx context.Context, transactionIDs []string) ([]*entity.Match, error) {
	newest := make(map[string]*entity.Match)

	for start := 0; start < len(transactionIDs); start += batchSize {
		end := min(start+batchSize, len(transactionIDs))

		var matchModels []model.MatchModel
		result := r.activeManual(ctx).
			Where("transaction_id IN ?", transactionIDs[start:end]).
			Order("created_at ASC").
			Find(&matchModels)
		if result.Error != nil {
			return nil, result.Error
		}

		for i := range matchModels {
			m := matchModels[i].ToEntity()
			newest[m.TransactionID] = m
		}
	}

	matches := make([]*entity.Match, 0, len(newest))
	for _, id := range transactionIDs {
		if m, ok := newest[id]; ok {
			matches = append(matches, m)
			delete(newest, id)
		}
	}
	return matches, nil
}

func (r *matchRepository) activeManual(ctx context.Context) *gorm.DB {
	superseded := r.db.
		Model(&model.MatchModel{}).
		Select("supersedes_id").
		Where("supersedes_id IS NOT NULL")

	return r.db.WithContext(ctx).
		Model(&model.MatchModel{}).
		Where("type = ?", string(entity.MatchTypeManual)).
		Where("entry_id IS NOT NULL").
		Where("confirmed_by <> ''").
		Where("id NOT IN (?)", superseded)
}

// exceptionRepository implements the adapter.ExceptionRepository interface.
type exceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a new exception repository instance.
func NewExceptionRepository(db *gorm.DB) adapter.ExceptionRepository {
	return &exceptionRepository{
		db: db,
	}
}

// CreateMany stores exceptions. Existing rows, resolved or not, are left untouched.
func (r *exceptionRepository) CreateMany(ctx context.Context, exceptions []*entity.Exception) error {
	if len(exceptions) == 0 {
		return nil
	}

	models := make([]*model.ExceptionModel, len(exceptions))
	for i, e := range exceptions {
		models[i] = model.ExceptionFromEntity(e)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(models, batchSize).Error
}

// severityOrder ranks critical exceptions first.
const severityOrder = `CASE severity
	WHEN 'critical' THEN 0
	WHEN 'high' THEN 1
	WHEN 'medium' THEN 2
	ELSE 3 END`

// List retrieves exceptions matching the filter, most severe first.
func (r *exceptionRepository) List(ctx context.Context, filter entity.ExceptionFilter) ([]*entity.Exception, error) {
	query := r.db.WithContext(ctx).Model(&model.ExceptionModel{})

	if filter.Severity != nil {
		query = query.Where("severity = ?", string(*filter.Severity))
	}
	if filter.Resolved != nil {
		query = query.Where("resolved = ?", *filter.Resolved)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var exceptionModels []model.ExceptionModel
	result := query.
		Order(severityOrder).
		Order("created_at DESC").
		Order("transaction_id ASC").
		Order("id ASC").
		Find(&exceptionModels)
	if result.Error != nil {
		return nil, result.Error
	}

	exceptions := make([]*entity.Exception, len(exceptionModels))
	for i := range exceptionModels {
		exceptions[i] = exceptionModels[i].ToEntity()
	}
	return exceptions, nil
}

// GetByID retrieves an exception by its ID.
func (r *exceptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Exception, error) {
	var exceptionModel model.ExceptionModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&exceptionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return exceptionModel.ToEntity(), nil
}

// Resolve writes the resolution fields only while the stored row is still open.
func (r *exceptionRepository) Resolve(ctx context.Context, exception *entity.Exception) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ExceptionModel{}).
		Where("id = ? AND resolved = ?", exception.ID, false).
		Updates(map[string]interface{}{
			"resolved":          true,
			"resolved_by":       exception.ResolvedBy,
			"resolved_at":       exception.ResolvedAt,
			"resolution_action": string(exception.ResolutionAction),
			"notes":             exception.Notes,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// reportRepository implements the adapter.ReportRepository interface.
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository instance.
func NewReportRepository(db *gorm.DB) adapter.ReportRepository {
	return &reportRepository{
		db: db,
	}
}

// Save stores a report snapshot. Every run adds a row.
func (r *reportRepository) Save(ctx context.Context, report *entity.ReconciliationReport) error {
	periodKey := valueobject.NewPeriod(report.PeriodStart, report.PeriodEnd).Key()
	return r.db.WithContext(ctx).Create(model.ReportFromEntity(report, periodKey)).Error
}
