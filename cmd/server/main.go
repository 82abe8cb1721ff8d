package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/PresidentAnderson/locate-connect-sub007/config"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/campaign"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/casereview"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/casesnapshot"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklistitem"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklisttemplate"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/dnasubmission"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/evidence"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/linkedcase"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/patternmatch"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/reviewer"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/revivaltrigger"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/batch"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/campaigns"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/checklist"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/classification"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/events"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/graph"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/kafka"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/middleware"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/patterns"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/processor"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/queue"
	redispkg "github.com/PresidentAnderson/locate-connect-sub007/pkg/redis"
	campaignroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/campaign"
	caseprofileroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/caseprofile"
	checklistroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/checklist"
	checklisttemplateroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/checklisttemplate"
	dnaroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/dna"
	evidenceroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/evidence"
	graphroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/graph"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/health"
	patternmatchroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/patternmatch"
	reviewroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/review"
	reviewerroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/reviewer"
	tenantroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/tenant"
	triggerroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/trigger"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/scheduling"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/scoring"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/startup"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing/exporters"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		os.Exit(1)
	}

	logger, flushLogs := newLogger(cfg)
	defer flushLogs()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		flushLogs()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger ectologger.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer shutdownTracing()

	// Postgres
	db, err := connectDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := runMigrations(cfg, logger, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	dbInstance := database.NewDatabaseInstance(db, logger)

	// Redis: per-profile locks, signal dedupe and the recompute stream
	redisClient, err := redispkg.NewClient(redispkg.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	locker := redispkg.NewLocker(redisClient, "coldcase:lock:", cfg.ProfileLockTTL, 10*time.Second)
	streams := redispkg.NewStreams(redisClient)

	// Graph projection is optional
	var graphClient *graph.Client
	var queryService *graph.QueryService
	var projection *graph.Projection
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			return fmt.Errorf("graph: %w", err)
		}
		defer graphClient.Close(ctx)
		queryService = graph.NewQueryService(graphClient, logger)
		projection = graph.NewProjection(graphClient, logger)
	}

	// Kafka producer for outbound lifecycle events
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()

	emitter := events.NewEmitter(producer, cfg, logger)

	// Repositories
	profiles := caseprofile.NewRepository(dbInstance, logger)
	reviews := casereview.NewRepository(dbInstance, logger)
	reviewers := reviewer.NewRepository(dbInstance, logger)
	items := checklistitem.NewRepository(dbInstance, logger)
	templates := checklisttemplate.NewRepository(dbInstance, logger)
	triggers := revivaltrigger.NewRepository(dbInstance, logger)
	evidenceRepo := evidence.NewRepository(dbInstance, logger)
	dnaRepo := dnasubmission.NewRepository(dbInstance, logger)
	matches := patternmatch.NewRepository(dbInstance, logger)
	links := linkedcase.NewRepository(dbInstance, logger)
	snapshots := casesnapshot.NewRepository(dbInstance, logger)
	campaignRepo := campaign.NewRepository(dbInstance, logger)

	// Engines
	classifier := classification.NewEngine(classification.Config{
		LeadThresholdDays:     cfg.LeadThresholdDays,
		TipThresholdDays:      cfg.TipThresholdDays,
		ActivityThresholdDays: cfg.ActivityThresholdDays,
	})
	scorerCfg := scoring.DefaultConfig()
	scorerCfg.AnniversaryWindowDays = cfg.AnniversaryWindowDays
	scorer := scoring.NewEngine(scorerCfg)
	checklists := checklist.NewEngine(logger, templates, items)
	scheduler := scheduling.NewScheduler(logger, profiles, reviews, reviewers, checklists, scheduling.Config{
		PeriodicDueWindowDays:  cfg.PeriodicDueWindowDays,
		TriggeredDueWindowDays: cfg.TriggeredDueWindowDays,
		PassPageSize:           cfg.BatchSize,
	})
	patternEngine := patterns.NewEngine(patterns.Config{
		Weights:       patterns.DefaultWeights(),
		RadiusKm:      cfg.PatternRadiusKm,
		MinConfidence: models.ConfidenceBucket(cfg.PatternMinConfidence),
	})
	matcher := patterns.NewMatcher(logger, patternEngine, profiles, matches, cfg.PatternScanPageSize)

	enqueuer := queue.NewEnqueuer(redisClient, streams, cfg.RecomputeStream, logger)

	deps := lifecycle.Deps{
		Classifier: classifier,
		Scorer:     scorer,
		Scheduler:  scheduler,
		Checklists: checklists,
		Profiles:   profiles,
		Reviews:    reviews,
		Reviewers:  reviewers,
		Items:      items,
		Triggers:   triggers,
		Evidence:   evidenceRepo,
		DNA:        dnaRepo,
		Matches:    matches,
		Links:      links,
		Snapshots:  snapshots,
		Campaigns:  campaignRepo,
		Emitter:    emitter,
		Locker:     locker,
		Queue:      enqueuer,
	}
	if projection != nil {
		deps.Graph = projection
	}
	service := lifecycle.NewService(logger, deps)

	campaignManager := campaigns.NewManager(logger, profiles, campaignRepo, emitter, campaigns.Config{
		AnniversaryLeadDays: cfg.AnniversaryLeadDays,
		PassPageSize:        cfg.BatchSize,
	})

	// Recompute workers draining the Redis stream
	processorCfg := queue.DefaultProcessorConfig()
	processorCfg.Stream = cfg.RecomputeStream
	processorCfg.ConsumerGroup = cfg.RecomputeConsumerGroup
	if cfg.RecomputeConsumerName != "" {
		processorCfg.ConsumerName = cfg.RecomputeConsumerName
	}
	processorCfg.WorkerCount = cfg.RecomputeWorkerCount
	processorCfg.ClaimMinIdle = cfg.RecomputeClaimMinIdle
	recomputeProcessor := queue.NewProcessor(redisClient, streams, service, processorCfg, logger)

	// Signal intake from Kafka
	signalProcessor := processor.NewProcessor(logger, service, redisClient, cfg)
	consumer := kafka.NewConsumer(cfg, logger, signalProcessor.ProcessMessage)

	runner := batch.NewRunner(logger, service, scheduler, campaignManager, matcher, profiles, reviews, batch.Config{
		Interval:    cfg.BatchPassInterval,
		PageSize:    cfg.BatchSize,
		CaseTimeout: cfg.BatchCaseTimeout,
		WorkerCount: cfg.BatchWorkerCount,
	})

	if err := registerDependencies(logger, cfg, dbInstance, service, campaignManager, matcher, queryService,
		profiles, reviews, reviewers, items, templates, triggers, evidenceRepo, dnaRepo, matches, campaignRepo); err != nil {
		return fmt.Errorf("dependency registration: %w", err)
	}

	// HTTP server
	checker := health.NewChecker(db, redisPinger{client: redisClient}, cfg.AppVersion)
	e := newEcho(cfg, logger, checker)

	manager := startup.NewStartup[any](logger, cfg.StartupMaxAttempts)
	manager.AddDependency(&component{
		name: "recompute-processor",
		start: func(ctx context.Context) error {
			return recomputeProcessor.Start(ctx)
		},
		stop: recomputeProcessor.Stop,
	})
	if cfg.KafkaConsumerEnabled {
		manager.AddDependency(&component{
			name: "kafka-consumer",
			start: func(ctx context.Context) error {
				return consumer.Start(ctx)
			},
			stop: func(ctx context.Context) error {
				return consumer.Stop()
			},
		})
	}
	if cfg.BatchPassEnabled {
		manager.AddDependency(&component{
			name:      "batch-runner",
			dependsOn: []string{"recompute-processor"},
			start: func(ctx context.Context) error {
				return runner.Start(ctx)
			},
			stop: runner.Stop,
		})
	}
	manager.AddDependency(&component{
		name: "http-server",
		start: func(ctx context.Context) error {
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		stop: func(ctx context.Context) error {
			checker.SetReady(false)
			return e.Shutdown(ctx)
		},
	})

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	logger.WithFields(map[string]any{
		"app":     cfg.AppName,
		"version": cfg.AppVersion,
		"port":    cfg.Port,
	}).Info("Cold-case server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return manager.Stop(stopCtx)
}

// component adapts a start/stop pair to the startup dependency graph
type component struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (c *component) GetName() string     { return c.name }
func (c *component) DependsOn() []string { return c.dependsOn }
func (c *component) Start(ctx context.Context) error {
	if c.start == nil {
		return nil
	}
	return c.start(ctx)
}
func (c *component) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	return c.stop(ctx)
}

// redisPinger adapts the redis client to the health checker
type redisPinger struct {
	client *redispkg.Client
}

func (p redisPinger) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return p.client.Ping(ctx)
}

func newLogger(cfg config.Config) (ectologger.Logger, func()) {
	var zcfg zap.Config
	if cfg.PrettyLogs {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	zl, err := zcfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		fields := make([]zap.Field, 0, len(msg.Fields))
		for k, v := range msg.Fields {
			fields = append(fields, zap.Any(k, v))
		}
		switch strings.ToLower(string(msg.Level)) {
		case "debug":
			zl.Debug(msg.Message, fields...)
		case "warn", "warning":
			zl.Warn(msg.Message, fields...)
		case "error", "fatal":
			zl.Error(msg.Message, fields...)
		default:
			zl.Info(msg.Message, fields...)
		}
	})

	return logger, func() { _ = zl.Sync() }
}

func setupTracing(ctx context.Context, cfg config.Config) (func(), error) {
	if !cfg.TracingEnabled {
		return func() {}, nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}

func connectDatabase(cfg config.Config, logger ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)

	var db *sqlx.DB
	var err error
	for attempt := 0; attempt <= cfg.DatabaseReconnectRetryCount; attempt++ {
		db, err = sqlx.Connect(cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("Database connection attempt %d failed", attempt+1)
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	logger.Infof("Connected to database %s", cfg.DatabaseName)
	return db, nil
}

func runMigrations(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	service := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})

	return service.Migrate(cfg.DatabaseName, driver)
}

func registerDependencies(
	logger ectologger.Logger,
	cfg config.Config,
	db database.DB,
	service *lifecycle.Service,
	campaignManager *campaigns.Manager,
	matcher *patterns.Matcher,
	queryService *graph.QueryService,
	profiles *caseprofile.Repository,
	reviews *casereview.Repository,
	reviewers *reviewer.Repository,
	items *checklistitem.Repository,
	templates *checklisttemplate.Repository,
	triggers *revivaltrigger.Repository,
	evidenceRepo *evidence.Repository,
	dnaRepo *dnasubmission.Repository,
	matches *patternmatch.Repository,
	campaignRepo *campaign.Repository,
) error {
	container, err := ectoinject.NewDIContainer(ectoinject.DefaultContainerConfig)
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, db); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*lifecycle.Service](container, service); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*campaigns.Manager](container, campaignManager); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*patterns.Matcher](container, matcher); err != nil {
		return err
	}
	if queryService != nil {
		if err := ectoinject.RegisterInstance[*graph.QueryService](container, queryService); err != nil {
			return err
		}
	}
	if err := ectoinject.RegisterInstance[*caseprofile.Repository](container, profiles); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*casereview.Repository](container, reviews); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reviewer.Repository](container, reviewers); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*checklistitem.Repository](container, items); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*checklisttemplate.Repository](container, templates); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*revivaltrigger.Repository](container, triggers); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*evidence.Repository](container, evidenceRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*dnasubmission.Repository](container, dnaRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*patternmatch.Repository](container, matches); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*campaign.Repository](container, campaignRepo)
}

func newEcho(cfg config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	caseprofileroutes.Register(api)
	reviewroutes.Register(api)
	checklistroutes.Register(api)
	checklisttemplateroutes.Register(api)
	patternmatchroutes.Register(api)
	campaignroutes.Register(api)
	reviewerroutes.Register(api)
	dnaroutes.Register(api)
	evidenceroutes.Register(api)
	triggerroutes.Register(api)
	graphroutes.Register(api)
	tenantroutes.Register(api)

	return e
}
