package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grand-nerud/backoffice/internal/app"
	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/companies"
	"github.com/grand-nerud/backoffice/internal/companies/registry"
	"github.com/grand-nerud/backoffice/internal/deals"
	jobmetrics "github.com/grand-nerud/backoffice/internal/jobs"
	"github.com/grand-nerud/backoffice/internal/masterdata/addresses"
	"github.com/grand-nerud/backoffice/internal/masterdata/materials"
	"github.com/grand-nerud/backoffice/internal/masterdata/services"
	"github.com/grand-nerud/backoffice/internal/masterdata/stages"
	"github.com/grand-nerud/backoffice/internal/masterdata/vehicles"
	"github.com/grand-nerud/backoffice/internal/observability"
	"github.com/grand-nerud/backoffice/internal/platform/cache"
	"github.com/grand-nerud/backoffice/internal/platform/db"
	"github.com/grand-nerud/backoffice/internal/users"
	"github.com/grand-nerud/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		log.Print("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Printf("load config: %v", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Printf("init logger: %v", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *zap.Logger) error {
	mongoClient, database, err := db.New(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(mongoClient, cfg.AppShutdownTimeout); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}()

	if err := db.EnsureIndexes(ctx, database, indexes()...); err != nil {
		return err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer cache.Close(redisClient, logger)

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	auditService := audit.NewService(audit.NewRepository(database, logger))
	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger, jobMetrics)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", zap.Error(err))
		}
	}()
	var recorder audit.Recorder = queue
	if !cfg.AuditAsync {
		recorder = audit.NewDirectRecorder(auditService, logger)
	}

	userService := users.NewService(users.NewRepository(database, logger))
	authService := auth.NewService(
		userService,
		auth.NewTokens(cfg.AuthSecret, cfg.AuthTokenTTL),
		auth.NewRedisDenylist(redisClient),
	)
	authMiddleware := auth.NewMiddleware(authService, cfg.AuthCookieName, logger, metrics)

	dealService := deals.NewService(deals.NewRepository(database, logger), userService)
	registryClient := registry.NewClient(cfg.RegistryURL, cfg.RegistryAPIKey, cfg.RegistryTimeout, logger)
	companyService := companies.NewService(companies.NewRepository(database, logger), dealService, registryClient)

	materialService := materials.NewService(materials.NewRepository(database, logger), dealService)
	stageService := stages.NewService(stages.NewRepository(database, logger), dealService)
	serviceTypes := services.NewService(services.NewRepository(database, logger), dealService)
	vehicleService := vehicles.NewService(vehicles.NewRepository(database, logger), nil)
	addressService := addresses.NewService(addresses.NewRepository(database, logger), dealService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Auth:    authMiddleware,
		AuthHandler: auth.NewHandler(auth.HandlerConfig{
			Logger:         logger,
			Service:        authService,
			Users:          userService,
			Middleware:     authMiddleware,
			Cookie:         auth.CookieConfig{Name: cfg.AuthCookieName, Secure: cfg.IsProduction()},
			LoginPerMinute: cfg.AuthLoginRatePerMinute,
			Audit:          recorder,
		}),
		UsersHandler:     users.NewHandler(logger, userService, recorder, auth.ActorID),
		CompaniesHandler: companies.NewHandler(logger, companyService, recorder),
		DealsHandler:     deals.NewHandler(logger, dealService, recorder),
		AuditHandler:     audit.NewHandler(logger, auditService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		MasterData: []app.Resource{
			{Paths: []string{"/materials"}, Handler: materials.NewHandler(logger, materialService, recorder)},
			{Paths: []string{"/stages"}, Handler: stages.NewHandler(logger, stageService, recorder)},
			{Paths: []string{"/services"}, Handler: services.NewHandler(logger, serviceTypes, recorder)},
			{Paths: []string{"/vehicles"}, Handler: vehicles.NewHandler(logger, vehicleService, recorder)},
			{Paths: []string{"/adresses", "/addresses"}, Handler: addresses.NewHandler(logger, addressService, recorder)},
		},
		Ready: readiness(mongoClient, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.AppShutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func indexes() []db.Index {
	var all []db.Index
	for _, set := range [][]db.Index{
		users.Indexes(),
		companies.Indexes(),
		deals.Indexes(),
		audit.Indexes(),
		materials.Indexes(),
		stages.Indexes(),
		services.Indexes(),
		vehicles.Indexes(),
		addresses.Indexes(),
	} {
		all = append(all, set...)
	}
	return all
}

func readiness(mongoClient *mongo.Client, redisClient *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}
}
