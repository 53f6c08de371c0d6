package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Stripe.APIKey)
	rules := cfg.Matching.MatchingRules()
	defaults := valueobject.DefaultMatchingConfig()
	assert.True(t, defaults.AmountTolerance.Equal(rules.AmountTolerance))
	rules.AmountTolerance = defaults.AmountTolerance
	assert.Equal(t, defaults, rules)
	assert.Equal(t, valueobject.DefaultReturnFeeTable(), cfg.Returns.FeeTable())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MATCH_AMOUNT_TOLERANCE", "0.05")
	t.Setenv("MATCH_DATE_TOLERANCE_DAYS", "5")
	t.Setenv("MATCH_WORKERS", "16")
	t.Setenv("RETURNS_DEFAULT_FEE", "1500")
	t.Setenv("ALERT_RECIPIENTS", " ops@example.com, ,finance@example.com ")
	t.Setenv("LOCK_WAIT_TIMEOUT", "250ms")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg := Load()
	rules := cfg.Matching.MatchingRules()

	assert.True(t, rules.AmountTolerance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 5, rules.DateToleranceDays)
	assert.Equal(t, 16, rules.Workers)
	assert.Equal(t, int64(1500), cfg.Returns.FeeTable().FeeFor("R99"))
	assert.Equal(t, int64(2500), cfg.Returns.FeeTable().FeeFor("R01"))
	assert.Equal(t, []string{"ops@example.com", "finance@example.com"}, cfg.Alerts.Recipients)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.LockWaitTimeout)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestMatchingRules_BadTolerance(t *testing.T) {
	t.Setenv("MATCH_AMOUNT_TOLERANCE", "-1")

	rules := Load().Matching.MatchingRules()
	assert.True(t, rules.AmountTolerance.Equal(decimal.New(1, -2)))
}
