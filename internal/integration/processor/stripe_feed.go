// Package processor ingests settlement records from the payment processor.
package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/balancetransaction"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
)

// achReturnCodes maps Stripe charge failure codes to NACHA return codes.
var achReturnCodes = map[string]string{
	"insufficient_funds":      "R01",
	"account_closed":          "R02",
	"no_account":              "R03",
	"invalid_account_number":  "R04",
	"bank_account_restricted": "R16",
	"debit_not_authorized":    "R10",
	"account_frozen":          "R16",
	"bank_ownership_changed":  "R02",
	"could_not_process":       "R09",
	"invalid_currency":        "R20",
}

// StripeFeed implements adapter.ProcessorFeed over Stripe balance transactions.
type StripeFeed struct {
	client balancetransaction.Client
}

var _ adapter.ProcessorFeed = (*StripeFeed)(nil)

// NewStripeFeed creates a feed authenticated with the given secret key.
func NewStripeFeed(apiKey string) *StripeFeed {
	return NewStripeFeedWithBackend(apiKey, stripe.GetBackend(stripe.APIBackend))
}

// NewStripeFeedWithBackend creates a feed on an explicit backend.
func NewStripeFeedWithBackend(apiKey string, backend stripe.Backend) *StripeFeed {
	return &StripeFeed{
		client: balancetransaction.Client{B: backend, Key: apiKey},
	}
}

// Fetch lists the balance transactions created within [start, end].
func (f *StripeFeed) Fetch(ctx context.Context, start, end time.Time) ([]*entity.ProcessorTransaction, error) {
	params := &stripe.BalanceTransactionListParams{
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: start.Unix(),
			LesserThanOrEqual:  end.Unix(),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.source")

	var txs []*entity.ProcessorTransaction
	iter := f.client.List(params)
	for iter.Next() {
		txs = append(txs, toProcessorTransaction(iter.BalanceTransaction()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stripe balance transactions: %w", err)
	}
	return txs, nil
}

func toProcessorTransaction(bt *stripe.BalanceTransaction) *entity.ProcessorTransaction {
	tx := &entity.ProcessorTransaction{
		ID:          bt.ID,
		Amount:      bt.Amount,
		Currency:    strings.ToLower(string(bt.Currency)),
		Fee:         bt.Fee,
		Net:         bt.Net,
		Status:      entity.ProcessorTransactionStatus(bt.Status),
		Kind:        kindOf(bt.Type),
		CreatedAt:   unixUTC(bt.Created),
		AvailableOn: unixUTC(bt.AvailableOn),
		Description: bt.Description,
	}

	if bt.Source != nil {
		tx.SourceRef = bt.Source.ID
	}

	if isReturn(bt) {
		tx.Status = entity.ProcessorStatusFailed
		tx.Kind = entity.ProcessorKindPayment
		if charge := sourceCharge(bt); charge != nil {
			tx.ReturnCode = returnCode(charge.FailureCode)
			if charge.Customer != nil {
				tx.CustomerID = charge.Customer.ID
			}
		}
	}

	return tx
}

func kindOf(t stripe.BalanceTransactionType) entity.ProcessorTransactionKind {
	switch t {
	case stripe.BalanceTransactionTypeCharge:
		return entity.ProcessorKindCharge
	case stripe.BalanceTransactionTypeRefund, stripe.BalanceTransactionTypePaymentRefund:
		return entity.ProcessorKindRefund
	case stripe.BalanceTransactionTypeAdjustment:
		return entity.ProcessorKindAdjustment
	case stripe.BalanceTransactionTypeTransfer:
		return entity.ProcessorKindTransfer
	case stripe.BalanceTransactionTypePayment, stripe.BalanceTransactionTypePaymentFailureRefund:
		return entity.ProcessorKindPayment
	case stripe.BalanceTransactionTypePayout:
		return entity.ProcessorKindPayout
	}
	// Left unknown so ingestion rejects it.
	return entity.ProcessorTransactionKind(t)
}

func isReturn(bt *stripe.BalanceTransaction) bool {
	return bt.Type == stripe.BalanceTransactionTypePaymentFailureRefund ||
		bt.ReportingCategory == "charge_failure"
}

func sourceCharge(bt *stripe.BalanceTransaction) *stripe.Charge {
	if bt.Source == nil {
		return nil
	}
	return bt.Source.Charge
}

func returnCode(failureCode string) string {
	if code, ok := achReturnCodes[failureCode]; ok {
		return code
	}
	return strings.ToUpper(failureCode)
}

func unixUTC(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
