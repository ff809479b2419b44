// Package app wires configuration, storage, services and the HTTP router
// into a runnable settlement server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"multi-merchant-settlement/config"
	httpHandler "multi-merchant-settlement/internal/adapter/http/handler"
	"multi-merchant-settlement/internal/adapter/http/middleware"
	"multi-merchant-settlement/internal/adapter/ledger/sqlite"
	"multi-merchant-settlement/internal/adapter/processor"
	"multi-merchant-settlement/internal/adapter/storage/memory"
	pgStorage "multi-merchant-settlement/internal/adapter/storage/postgres"
	redisStorage "multi-merchant-settlement/internal/adapter/storage/redis"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/internal/service"
	"multi-merchant-settlement/pkg/telemetry"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options override infrastructure that tests and tools want to supply.
type Options struct {
	// Redis replaces the configured Redis connection when set.
	Redis *goredis.Client
	// ProcessorClient replaces the HTTP client used for processor calls.
	ProcessorClient processor.HTTPClient
	// NotifyClient replaces the HTTP client used for notification delivery.
	NotifyClient service.HTTPClient
	// SwaggerSpecPath is served at /swagger/spec when the file exists.
	SwaggerSpecPath string
	Version         string
}

// App is a fully wired settlement server.
type App struct {
	Router      *gin.Engine
	Settlement  *service.SettlementServiceImpl
	Recon       *service.ReconciliationServiceImpl
	Credentials ports.CredentialService
	Ownership   ports.OwnershipService
	Scheduler   *service.Scheduler
	Notifier    *service.NotificationService
	Ledgers     *sqlite.Provider

	// Shop is the in-memory host shop when storage.driver is memory.
	Shop *memory.Shop

	log      zerolog.Logger
	closers  []func() error
	shutdown func(context.Context) error
}

// stores is the storage surface the services need, independent of driver.
type stores struct {
	creds  ports.CredentialRepository
	owners ports.OwnershipRepository
	sales  ports.SaleRepository
	audit  ports.AuditRepository
	orders ports.OrderSource
	hooks  ports.CheckoutHooks
	locks  ports.LockStore
	cache  ports.SettlementCache
	limits middleware.RateLimitStore
	health []ports.HealthChecker
}

// New builds the application. Callers own the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{log: log}

	st, err := a.openStores(ctx, cfg, opts)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry, log)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.shutdown = tel.Shutdown

	metrics, err := service.NewMetrics(tel.Meter())
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}
	tracer := tel.Tracer()

	ledgers, err := sqlite.NewProvider(cfg.Ledger.Dir, log)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("ledger provider: %w", err)
	}
	a.Ledgers = ledgers
	a.closers = append(a.closers, ledgers.Close)
	st.health = append(st.health, ledgers)

	// Core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("encryption service: %w", err)
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.Admin.JWTSecret, cfg.Admin.JWTExpiry, cfg.Admin.JWTIssuer)

	gateway := processor.NewClient(cfg.Processor, opts.ProcessorClient, log)

	notifyClient := opts.NotifyClient
	if notifyClient == nil {
		notifyClient = &http.Client{Timeout: cfg.Notify.Timeout}
	}
	notifier := service.NewNotificationService(cfg.Notify.URL, cfg.Notify.Secret, cfg.Notify.Timeout, sigSvc, notifyClient, log)
	a.Notifier = notifier

	// Business services
	credSvc := service.NewCredentialService(st.creds, encSvc, gateway)
	ownershipSvc := service.NewOwnershipService(st.owners, ledgers, log)
	resolver := service.NewOwnershipResolver(st.owners, st.creds, credSvc, log)
	authSvc := service.NewAdminAuthService(cfg.Admin.Username, cfg.Admin.PasswordHash, hashSvc, tokenSvc)
	auditSvc := service.NewAuditService(st.audit, log)

	recon := service.NewReconciliationService(service.ReconciliationDeps{
		Sales:    st.sales,
		Orders:   st.orders,
		Ledgers:  ledgers,
		Owners:   st.owners,
		Claims:   st.locks,
		Notifier: notifier,
		Metrics:  metrics,
		Tracer:   tracer,
	}, service.ReconciliationOptions{
		BatchSize:     cfg.Sync.BatchSize,
		ClaimTTL:      cfg.Sync.ClaimTTL,
		RetentionDays: cfg.Sync.RetentionDays,
	}, log)

	settlement := service.NewSettlementService(service.SettlementDeps{
		Orders:   st.orders,
		Resolver: resolver,
		Gateway:  gateway,
		Sales:    st.sales,
		Creds:    st.creds,
		Revealer: credSvc,
		Hooks:    st.hooks,
		Locks:    st.locks,
		Cache:    st.cache,
		Sink:     recon,
		Notifier: notifier,
		Metrics:  metrics,
		Tracer:   tracer,
	}, service.SettlementOptions{
		RedirectTemplate: cfg.Checkout.RedirectURL,
		LockTTL:          cfg.Checkout.LockTTL,
		ResultCacheTTL:   cfg.Checkout.ResultCacheTTL,
	}, log)

	a.Settlement = settlement
	a.Recon = recon
	a.Credentials = credSvc
	a.Ownership = ownershipSvc
	a.Scheduler = service.NewScheduler(recon, cfg.Sync.Interval, cfg.Sync.CleanupInterval, cfg.Sync.RetentionDays, log)

	var apiSpec []byte
	if opts.SwaggerSpecPath != "" {
		if apiSpec, err = os.ReadFile(opts.SwaggerSpecPath); err == nil {
			log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
		} else {
			log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
		}
	}

	a.Router = httpHandler.SetupRouter(httpHandler.RouterDeps{
		SettlementSvc:  settlement,
		ReconSvc:       recon,
		Resolver:       resolver,
		CredentialSvc:  credSvc,
		OwnershipSvc:   ownershipSvc,
		AdminAuthSvc:   authSvc,
		TokenSvc:       tokenSvc,
		AuditSvc:       auditSvc,
		RateLimitStore: st.limits,
		HealthCheckers: st.health,
		WebhookToken:   cfg.Webhook.Token,
		LegacyKeyParam: cfg.Webhook.LegacyKeyParam,
		WebhookRate:    cfg.Webhook.RateLimit,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Mode:           cfg.Server.Mode,
		Version:        opts.Version,
		APISpec:        apiSpec,
		Logger:         log,
	})

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config, opts Options) (*stores, error) {
	st := &stores{}

	switch cfg.Storage.Driver {
	case "memory":
		creds := memory.NewCredentialRepo()
		owners := memory.NewOwnershipRepo()
		shop := memory.NewShop()
		st.creds = creds
		st.owners = owners
		st.sales = memory.NewSaleRepo(creds, owners)
		st.audit = memory.NewAuditRepo()
		st.orders = shop
		st.hooks = shop
		st.locks = memory.NewLockStore()
		st.cache = memory.NewSettlementCache()
		a.Shop = shop
		a.log.Warn().Msg("storage.driver=memory: ledger data is lost on exit")

	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		orders := pgStorage.NewOrderRepo(pool)
		st.creds = pgStorage.NewCredentialRepo(pool)
		st.owners = pgStorage.NewOwnershipRepo(pool)
		st.sales = pgStorage.NewSaleRepo(pool)
		st.audit = pgStorage.NewAuditRepo(pool)
		st.orders = orders
		st.hooks = orders
		st.health = append(st.health, pgStorage.NewHealthCheck(pool))

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	rdb := opts.Redis
	if rdb == nil && cfg.Storage.Driver == "postgres" {
		client, err := redisStorage.NewClient(ctx, cfg.Redis, a.log)
		if err != nil {
			return nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		rdb = client
	}
	if rdb != nil {
		st.locks = redisStorage.NewLockStore(rdb)
		st.cache = redisStorage.NewSettlementCache(rdb)
		st.limits = redisStorage.NewRateLimitStore(rdb)
		st.health = append(st.health, redisStorage.NewHealthCheck(rdb))
	}

	return st, nil
}

// Close waits for pending notifications and releases every connection.
func (a *App) Close(ctx context.Context) error {
	if a.Notifier != nil {
		a.Notifier.Wait()
	}

	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
