package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cashregisterapp "github.com/backoffice/ledger/internal/application/cashregister"
	"github.com/backoffice/ledger/internal/infrastructure/config"
	"github.com/backoffice/ledger/internal/infrastructure/logger"
	"github.com/backoffice/ledger/internal/infrastructure/persistence"
	"github.com/backoffice/ledger/internal/infrastructure/scheduler"
	"github.com/backoffice/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger daemon",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to align database schema", zap.Error(err))
	}

	// Repositories
	registerRepo := persistence.NewGormRegisterRepository(db.DB)
	movementReader := persistence.NewGormMovementReader(db.DB)
	methodReader := persistence.NewGormPaymentMethodReader(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Application services
	reconciliationService := cashregisterapp.NewReconciliationService(registerRepo, movementReader, methodReader, log)
	queryCfg := cashregisterapp.QueryConfig{
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
	}
	registerService := cashregisterapp.NewRegisterService(registerRepo, reconciliationService, uow, queryCfg, log)

	// Scheduled register close
	var closeScheduler *scheduler.RegisterCloseScheduler
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultRegisterCloseConfig()
		schedCfg.CloseHour = cfg.Scheduler.CloseHour
		schedCfg.CloseMinute = cfg.Scheduler.CloseMin
		if cfg.Scheduler.SweepLimit > 0 {
			schedCfg.SweepLimit = cfg.Scheduler.SweepLimit
		}
		closeScheduler = scheduler.NewRegisterCloseScheduler(schedCfg, registerRepo, registerService, reconciliationService, log)
		if err := closeScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start register close scheduler", zap.Error(err))
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	if closeScheduler != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := closeScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping register close scheduler", zap.Error(err))
		}
	}

	log.Info("Ledger daemon stopped")
}
