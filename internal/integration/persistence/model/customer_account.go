package model

import "time"

// CustomerAccountModel represents the customer_accounts table in the database.
// It maps processor customers to the ledger account holding their receivable.
type CustomerAccountModel struct {
	CustomerID          string    `gorm:"type:varchar(64);primaryKey"`
	ReceivableAccountID string    `gorm:"type:varchar(64);not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the CustomerAccountModel.
func (CustomerAccountModel) TableName() string {
	return "customer_accounts"
}

// AllModels lists every model managed by the service, for migrations and test databases.
func AllModels() map[string]any {
	return map[string]any{
		"processor_transactions":    &ProcessorTransactionModel{},
		"ledger_entries":            &LedgerEntryModel{},
		"ledger_entry_lines":        &LedgerLineModel{},
		"reconciliation_matches":    &MatchModel{},
		"reconciliation_exceptions": &ExceptionModel{},
		"reconciliation_reports":    &ReportModel{},
		"customer_accounts":         &CustomerAccountModel{},
	}
}
