package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"invoicely/config"
	"invoicely/cron"
	"invoicely/database"
	auditRepo "invoicely/database/repository/audit"
	contactRepo "invoicely/database/repository/contact"
	invoiceRepo "invoicely/database/repository/invoice"
	sessionRepo "invoicely/database/repository/session"
	settingsRepo "invoicely/database/repository/settings"
	stockRepo "invoicely/database/repository/stock"
	userRepo "invoicely/database/repository/user"
	"invoicely/handlers"
	"invoicely/middleware"
	"invoicely/routes"
	"invoicely/services/audit"
	"invoicely/services/auth"
	"invoicely/services/billing"
	"invoicely/services/contact"
	"invoicely/services/currency"
	"invoicely/services/invoice"
	"invoicely/services/settings"
	"invoicely/services/stock"
	"invoicely/services/storage"
	"invoicely/services/user"
	"invoicely/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores.
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("main: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(ctx, db); err != nil {
		sugar.Fatalf("main: %v", err)
	}

	cacheRedis, err := utils.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisCacheDB)
	if err != nil {
		sugar.Fatalf("main: %v", err)
	}
	defer cacheRedis.Close()
	authRedis, err := utils.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisAuthDB)
	if err != nil {
		sugar.Fatalf("main: %v", err)
	}
	defer authRedis.Close()

	var auditSvc audit.AuditService = audit.Noop{}
	var mongoClient *mongo.Client
	if client, err := database.ConnectMongo(ctx, cfg.MongoURL); err != nil {
		logger.Warn("MongoDB unavailable, activity log disabled", zap.Error(err))
	} else {
		mongoClient = client
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()

		repo := auditRepo.NewMongoAuditRepo(mongoClient.Database(cfg.MongoDatabase).Collection(auditRepo.CollectionName))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create audit indexes", zap.Error(err))
		}
		auditSvc = audit.NewAuditService(repo, logger)
	}

	// Repositories.
	contacts := contactRepo.NewPostgresContactRepo(db)
	settingsStore := settingsRepo.NewPostgresSettingsRepo(db)

	// Services.
	tokens := utils.NewTokenService(utils.TokenConfig{
		AccessSecret:     cfg.AccessTokenSecret,
		RefreshSecret:    cfg.RefreshTokenSecret,
		AccessTTL:        cfg.AccessTokenTTL,
		RefreshTTL:       cfg.RefreshTokenTTL,
		InactivityWindow: cfg.InactivityWindow,
	})
	sessionCache := utils.NewRedisSessionCache(authRedis, cfg.SessionCacheTTL)

	authService := &auth.DefaultAuthService{
		DB:         db,
		Repos:      auth.PostgresRepositories,
		Tokens:     tokens,
		Cache:      sessionCache,
		Audit:      auditSvc,
		Logger:     logger,
		RenewAfter: cfg.AccessTokenRenewAfter,
	}

	userService := &user.DefaultUserService{
		Repo:     userRepo.NewPostgresUserRepo(db),
		Sessions: sessionRepo.NewPostgresSessionRepo(db),
		Cache:    sessionCache,
		Audit:    auditSvc,
		Logger:   logger,
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			sugar.Fatalf("main: failed to bootstrap admin: %v", err)
		}
	}

	var logoStorage storage.StorageService = storage.Disabled{}
	if cfg.CloudinaryEnabled() {
		cld, err := storage.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			sugar.Fatalf("main: failed to initialize cloudinary storage: %v", err)
		}
		logoStorage = cld
	} else {
		logger.Info("Cloudinary not configured, logo uploads disabled")
	}

	settingsService := &settings.DefaultSettingsService{
		Repo:            settingsStore,
		Storage:         logoStorage,
		DefaultCurrency: cfg.DefaultCurrency,
		Logger:          logger,
	}
	contactService := &contact.DefaultContactService{Repo: contacts}
	stockService := &stock.DefaultStockService{Repo: stockRepo.NewPostgresStockRepo(db), Logger: logger}
	invoiceService := &invoice.DefaultInvoiceService{
		DB: db,
		Repos: func(tx database.DBTX) invoiceRepo.InvoiceRepository {
			return invoiceRepo.NewPostgresInvoiceRepo(tx)
		},
		Contacts:        contacts,
		Settings:        settingsStore,
		Audit:           auditSvc,
		Logger:          logger,
		DefaultCurrency: cfg.DefaultCurrency,
	}

	var gateway billing.Gateway
	if cfg.StripeEnabled() {
		stripe.Key = cfg.StripeKey
		gateway = &billing.StripeGateway{WebhookSecret: cfg.StripeWebhookSecret}
	} else {
		logger.Info("Stripe not configured, online payments disabled")
	}
	billingService := billing.NewBillingService(gateway, invoiceService, logger)

	rates := currency.NewRatesClient(
		cfg.ExchangeRateBaseURL,
		cfg.ExchangeRateAPIKey,
		cfg.ExchangeRateTTL,
		&currency.RedisRateCache{Client: cacheRedis},
		logger,
	)

	monitor := utils.NewHealthMonitor(db, mongoClient, cacheRedis, authRedis)
	monitor.Start(ctx, 30*time.Second)

	globalLimit := middleware.NewRateLimiter("global", cfg.MaxRequestsPerMin, logger)
	loginLimit := middleware.NewRateLimiter("login", cfg.LoginRequestsPerMin, logger)
	go globalLimit.Run(ctx, time.Minute)
	go loginLimit.Run(ctx, time.Minute)

	// Background jobs.
	var worker *cron.Worker
	if cfg.WorkerEnabled {
		worker = cron.NewWorker(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisQueueDB,
		}, authService, rates, cfg.DefaultCurrency, logger)
		if err := worker.Start(ctx); err != nil {
			sugar.Fatalf("main: %v", err)
		}
	}

	cookies := utils.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
	bundle := &handlers.HandlerBundle{
		AuthService:  authService,
		GlobalLimit:  globalLimit,
		LoginLimit:   loginLimit,
		AllowOrigins: cfg.AllowedOrigins(),

		Auth:     handlers.NewAuthHandler(authService, cookies),
		Contacts: handlers.NewContactHandler(contactService),
		Invoices: handlers.NewInvoiceHandler(invoiceService, billingService),
		Settings: handlers.NewSettingsHandler(settingsService),
		Stock:    handlers.NewStockHandler(stockService),
		Users:    handlers.NewUserHandler(userService),
		Currency: handlers.NewCurrencyHandler(rates, cfg.DefaultCurrency),
		Activity: handlers.NewActivityHandler(auditSvc),
		Webhooks: handlers.NewWebhookHandler(billingService),
		Health:   handlers.NewHealthHandler(monitor),
	}

	router := gin.New()
	router.Use(utils.ErrorHandler(logger))
	router.Use(middleware.RequestLogger(logger))
	routes.RegisterRoutes(router, bundle)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infof("Starting server on %s...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}

	sugar.Info("main: server stopped gracefully")
}
