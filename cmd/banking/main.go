package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"banking/internal/app/banking"
	"banking/internal/config"
	banking_http "banking/internal/handler/http/banking"
	kafka_handler "banking/internal/handler/kafka"
	"banking/internal/infrastructure/database"
	kafka_infra "banking/internal/infrastructure/kafka"
	"banking/internal/outbox"
	"banking/internal/repository/accounts_repo"
	"banking/internal/repository/beneficiaries_repo"
	"banking/internal/repository/inbox_repo"
	"banking/internal/repository/ledger_repo"
	"banking/internal/repository/outbox_repo"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	honeycomb "github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("Banking Service starting...")

	if cfg.TelemetryEnabled {
		bsp := honeycomb.NewBaggageSpanProcessor()
		otelShutdown, err := otelconfig.ConfigureOpenTelemetry(otelconfig.WithSpanProcessor(bsp))
		if err != nil {
			appLogger.Fatal("Failed to configure OpenTelemetry", zap.Error(err))
		}
		defer otelShutdown()
		appLogger.Info("OpenTelemetry tracing enabled.")
	}

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn("Failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_in", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...", zap.String("source", cfg.MigrationsPath))
	if err := database.RunMigrations(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString()); err != nil {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaBrokers := cfg.GetKafkaBrokers()
	requiredTopics := []string{
		cfg.KafkaLedgerEventsTopic,
		cfg.KafkaDepositRequestsTopic,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = kafka_infra.EnsureTopics(ctx, kafkaBrokers, requiredTopics, appLogger)
	cancel()
	if err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	txManager := database.NewTxManager(db, cfg.LockTimeout, appLogger.With(zap.String("component", "TxManager")))

	accountRepository := accounts_repo.NewAccountRepository()
	ledgerRepository := ledger_repo.NewLedgerRepository()
	beneficiaryRepository := beneficiaries_repo.NewBeneficiaryRepository()
	inboxRepository := inbox_repo.NewInboxRepository()
	outboxRepository := outbox_repo.NewOutboxRepository()

	bankingService := banking.NewBankingService(
		db,
		txManager,
		accountRepository,
		ledgerRepository,
		beneficiaryRepository,
		inboxRepository,
		outboxRepository,
		cfg.KafkaLedgerEventsTopic,
		appLogger.With(zap.String("component", "BankingService")),
	)
	appLogger.Info("Banking Service initialized.")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	banking_http.RegisterRoutes(router, bankingService, appLogger.With(zap.String("component", "HTTPHandler")))

	var handler http.Handler = router
	if cfg.TelemetryEnabled {
		handler = otelhttp.NewHandler(router, "banking-http")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	appLogger.Info("HTTP server configured.")

	kafkaProducer := kafka_infra.NewProducer(
		kafkaBrokers,
		appLogger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		} else {
			appLogger.Info("Kafka producer closed.")
		}
	}()

	outboxProcessor := outbox.NewProcessor(
		txManager,
		outboxRepository,
		kafkaProducer,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		cfg.OutboxBatchSize,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)
	appLogger.Info("Outbox Processor initialized.")

	depositRequestedHandler := kafka_handler.DepositRequestedMessageHandler(
		bankingService,
		appLogger.With(zap.String("component", "DepositRequestedHandler")),
	)
	depositRequestsConsumer := kafka_infra.NewConsumer(
		kafkaBrokers,
		cfg.KafkaDepositRequestsTopic,
		cfg.KafkaConsumerGroup,
		depositRequestedHandler,
		appLogger.With(zap.String("component", "DepositRequestsConsumer")),
	)
	appLogger.Info("Deposit Requests Kafka Consumer initialized.")

	ctxMain, cancelMain := context.WithCancel(context.Background())
	defer cancelMain()
	var workers sync.WaitGroup

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	workers.Add(2)
	go func() {
		defer workers.Done()
		appLogger.Info("Starting Outbox Processor...")
		outboxProcessor.Start(ctxMain)
		appLogger.Info("Outbox Processor stopped.")
	}()

	go func() {
		defer workers.Done()
		appLogger.Info("Starting Deposit Requests Kafka Consumer...")
		if err := depositRequestsConsumer.Consume(ctxMain); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Deposit Requests Kafka Consumer failed", zap.Error(err))
		}
		appLogger.Info("Deposit Requests Kafka Consumer stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	outboxProcessor.Stop()
	if err := depositRequestsConsumer.Close(); err != nil {
		appLogger.Error("Error closing Deposit Requests Kafka Consumer", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		appLogger.Info("Background workers stopped.")
	case <-shutdownCtx.Done():
		appLogger.Warn("Background workers did not stop before the shutdown deadline.")
	}

	appLogger.Info("Application gracefully shut down.")
}
