// Package valueobject contains domain value objects for the reconciliation engine.
package valueobject

import "strings"

// ReturnFeeTable maps processor return codes (e.g. ACH "R01") to the fee charged, in minor units.
type ReturnFeeTable struct {
	Fees       map[string]int64
	DefaultFee int64
}

// DefaultReturnFeeTable returns the standard return fee schedule.
func DefaultReturnFeeTable() ReturnFeeTable {
	return ReturnFeeTable{
		Fees: map[string]int64{
			"R01": 2500, // Insufficient funds
			"R02": 2500, // Account closed
			"R03": 2500, // No account
			"R04": 2500, // Invalid account number
			"R08": 3000, // Payment stopped
			"R09": 2500, // Uncollected funds
			"R10": 3500, // Customer advises unauthorized
			"R16": 2500, // Account frozen
			"R20": 2500, // Non-transaction account
			"R29": 3500, // Corporate customer advises not authorized
		},
		DefaultFee: 2000,
	}
}

// FeeFor returns the fee for a return code, falling back to the default for unknown codes.
func (t ReturnFeeTable) FeeFor(code string) int64 {
	if fee, ok := t.Fees[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return fee
	}
	return t.DefaultFee
}
