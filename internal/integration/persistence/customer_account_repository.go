package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/integration/persistence/model"
)

// CustomerAccountRepository resolves and registers customer receivable accounts.
type CustomerAccountRepository struct {
	db *gorm.DB
}

var _ adapter.CustomerAccountResolver = (*CustomerAccountRepository)(nil)

// NewCustomerAccountRepository creates a new customer account repository instance.
func NewCustomerAccountRepository(db *gorm.DB) *CustomerAccountRepository {
	return &CustomerAccountRepository{
		db: db,
	}
}

// ReceivableAccount returns the receivable account of a customer.
func (r *CustomerAccountRepository) ReceivableAccount(ctx context.Context, customerID string) (string, bool, error) {
	var account model.CustomerAccountModel
	result := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, result.Error
	}
	return account.ReceivableAccountID, true, nil
}

// Register maps a customer to a receivable account, replacing any previous mapping.
func (r *CustomerAccountRepository) Register(ctx context.Context, customerID, accountID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"receivable_account_id"}),
		}).
		Create(&model.CustomerAccountModel{CustomerID: customerID, ReceivableAccountID: accountID}).Error
}
