// Package dependency provides dependency injection for the application.
package dependency

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/settlement-recon/backend/config"
	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/application/usecase/reconciliation"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
	"github.com/settlement-recon/backend/internal/infra/metrics"
	"github.com/settlement-recon/backend/internal/infra/server/router"
	"github.com/settlement-recon/backend/internal/integration/adapters"
	"github.com/settlement-recon/backend/internal/integration/cache"
	"github.com/settlement-recon/backend/internal/integration/email"
	"github.com/settlement-recon/backend/internal/integration/email/templates"
	"github.com/settlement-recon/backend/internal/integration/entrypoint/controller"
	"github.com/settlement-recon/backend/internal/integration/entrypoint/middleware"
	"github.com/settlement-recon/backend/internal/integration/lock"
	"github.com/settlement-recon/backend/internal/integration/persistence"
	"github.com/settlement-recon/backend/internal/integration/processor"
)

// Options carries the optional infrastructure handed to the injector.
type Options struct {
	// Redis enables the distributed locker and the report cache when set.
	Redis *redis.Client
	// Registry receives the reconciliation metrics and backs /metrics when set.
	Registry *prometheus.Registry
	// Feed overrides the Stripe feed built from the configuration.
	Feed adapter.ProcessorFeed
	// EmailSender overrides the Resend client built from the configuration.
	EmailSender adapter.EmailSender
	// DBHealthCheck overrides the default database ping.
	DBHealthCheck controller.HealthChecker
}

// Injector holds all application dependencies.
type Injector struct {
	Config       *config.Config
	DB           *gorm.DB
	Router       *router.Router
	Customers    *persistence.CustomerAccountRepository
	TokenService adapter.TokenService
	// SyncWorker is nil when no processor feed is configured.
	SyncWorker *processor.Worker
}

// NewInjector creates a new dependency injector with all dependencies wired.
func NewInjector(cfg *config.Config, db *gorm.DB, opts Options, logger *zap.Logger) (*Injector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create repositories
	ledgerRepo := persistence.NewLedgerRepository(db)
	txRepo := persistence.NewProcessorTransactionRepository(db)
	matchRepo := persistence.NewMatchRepository(db)
	exceptionRepo := persistence.NewExceptionRepository(db)
	reportRepo := persistence.NewReportRepository(db)
	customerRepo := persistence.NewCustomerAccountRepository(db)

	// Create adapters/services
	tokenService := adapters.NewTokenService(cfg.JWT.Secret)
	entryNumbers, err := adapters.NewSnowflakeEntryNumbers(cfg.Returns.EntryNumberNode)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry number generator: %w", err)
	}

	var locker adapter.EntityLocker
	var reportCache adapter.ReportCache
	if opts.Redis != nil {
		locker = lock.NewRedisLocker(opts.Redis, lock.RedisLockerConfig{
			TTL:           cfg.Redis.LockTTL,
			RetryInterval: lock.DefaultRedisLockerConfig().RetryInterval,
			WaitTimeout:   cfg.Redis.LockWaitTimeout,
		}, logger)
		reportCache = cache.NewReportCache(opts.Redis, cfg.Redis.ReportTTL, logger)
	} else {
		logger.Warn("redis not configured, using in-process locks and no report cache")
		locker = lock.NewMemoryLocker()
	}

	var recorder adapter.ReconciliationMetrics
	if opts.Registry != nil {
		recorder = metrics.NewRecorder(opts.Registry)
	}

	notifier, err := newAlertNotifier(cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	rules := cfg.Matching.MatchingRules()

	// Create reconciliation use cases
	runUseCase := reconciliation.NewRunReconciliationUseCase(
		reconciliation.RunReconciliationRepositories{
			Ledger:       ledgerRepo,
			Transactions: txRepo,
			Matches:      matchRepo,
			Exceptions:   exceptionRepo,
			Reports:      reportRepo,
		},
		reconciliation.NewMatcher(rules),
		reconciliation.NewClassifier(rules, valueobject.DefaultUnmatchedSeverityTable()),
		logger,
	)
	if reportCache != nil {
		runUseCase.WithReportCache(reportCache)
	}
	if notifier != nil {
		runUseCase.WithAlertNotifier(notifier)
	}
	if recorder != nil {
		runUseCase.WithMetrics(recorder)
	}

	returnsUseCase := reconciliation.NewProcessReturnsUseCase(
		ledgerRepo,
		exceptionRepo,
		customerRepo,
		entryNumbers,
		cfg.Returns.FeeTable(),
		reconciliation.ReturnAccounts{
			ClearingAccountID:  cfg.Returns.ClearingAccountID,
			FeeIncomeAccountID: cfg.Returns.FeeIncomeAccountID,
		},
		logger,
	)
	if recorder != nil {
		returnsUseCase.WithMetrics(recorder)
	}

	useCases := controller.ReconciliationUseCases{
		Run:     runUseCase,
		List:    reconciliation.NewListExceptionsUseCase(exceptionRepo),
		Confirm: reconciliation.NewConfirmMatchUseCase(txRepo, ledgerRepo, matchRepo, locker, rules, logger),
		Resolve: reconciliation.NewResolveExceptionUseCase(exceptionRepo, locker, logger),
		Returns: returnsUseCase,
		Report:  reconciliation.NewGetReportUseCase(reportCache),
	}

	// Create processor sync worker
	feed := opts.Feed
	if feed == nil && cfg.Stripe.APIKey != "" {
		feed = processor.NewStripeFeed(cfg.Stripe.APIKey)
	}
	var syncWorker *processor.Worker
	if feed != nil {
		syncWorker = processor.NewWorker(
			reconciliation.NewSyncTransactionsUseCase(feed, txRepo, logger),
			processor.WorkerConfig{
				PollInterval: cfg.Stripe.SyncInterval,
				Lookback:     cfg.Stripe.SyncLookback,
			},
			logger,
		)
	}

	// Create controllers
	dbHealthCheck := opts.DBHealthCheck
	if dbHealthCheck == nil {
		dbHealthCheck = func(ctx context.Context) bool {
			sqlDB, err := db.DB()
			if err != nil {
				return false
			}
			return sqlDB.PingContext(ctx) == nil
		}
	}
	var redisHealthCheck controller.HealthChecker
	if opts.Redis != nil {
		redisHealthCheck = func(ctx context.Context) bool {
			return opts.Redis.Ping(ctx).Err() == nil
		}
	}
	healthController := controller.NewHealthController(dbHealthCheck, redisHealthCheck)
	reconciliationController := controller.NewReconciliationController(useCases, cfg.Server.RunTimeout, logger)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	runRateLimiter := middleware.NewRateLimiter(cfg.Server.RunsPerMinute)

	// Create router
	var gatherer prometheus.Gatherer
	if opts.Registry != nil {
		gatherer = opts.Registry
	}
	r := router.NewRouter(healthController, reconciliationController, authMiddleware, runRateLimiter, gatherer)

	return &Injector{
		Config:       cfg,
		DB:           db,
		Router:       r,
		Customers:    customerRepo,
		TokenService: tokenService,
		SyncWorker:   syncWorker,
	}, nil
}

func newAlertNotifier(cfg *config.Config, opts Options, logger *zap.Logger) (adapter.AlertNotifier, error) {
	sender := opts.EmailSender
	if sender == nil && cfg.Alerts.ResendAPIKey != "" {
		sender = email.NewResendClient(cfg.Alerts.ResendAPIKey, cfg.Alerts.FromName, cfg.Alerts.FromEmail)
	}
	if sender == nil || len(cfg.Alerts.Recipients) == 0 {
		return nil, nil
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	alertConfig := email.DefaultAlertConfig()
	alertConfig.Recipients = cfg.Alerts.Recipients
	return email.NewAlertNotifier(sender, renderer, alertConfig, logger), nil
}
