// syncd runs the local-first sync daemon: it owns the on-device store,
// keeps it reconciled against the remote canonical store, and serves the
// control API the UI layer talks to.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"canvassync/application/ports"
	appsync "canvassync/application/sync"
	"canvassync/infrastructure/config"
	dynamostore "canvassync/infrastructure/persistence/dynamodb"
	"canvassync/infrastructure/persistence/memory"
	"canvassync/infrastructure/persistence/sqlite"
	"canvassync/interfaces/http/rest"
	"canvassync/pkg/connectivity"
	"canvassync/pkg/identity"
	"canvassync/pkg/metrics"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	userID := cfg.UserID
	if userID == "" {
		userID, err = identity.UserIDFromToken(cfg.AccessToken)
		if err != nil {
			logger.Fatal("Could not derive user id from access token", zap.Error(err))
		}
	}

	local, err := sqlite.Open(cfg.LocalDBPath, logger)
	if err != nil {
		logger.Fatal("Failed to open local store", zap.Error(err))
	}
	defer local.Close()

	remote, err := buildRemoteStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build remote store", zap.Error(err))
	}

	syncMetrics := metrics.NewSync()
	engine := appsync.New(local, remote, local, &connectivity.Checker{Addr: cfg.ProbeAddress}, logger,
		appsync.WithUserID(userID),
		appsync.WithMetrics(syncMetrics),
	)

	watcher := connectivity.NewWatcher(
		(&connectivity.Checker{Addr: cfg.ProbeAddress}).Online,
		cfg.ProbeInterval,
		func() { engine.NotifyOnline(context.Background()) },
		logger,
	)
	watcher.Start()
	defer watcher.Stop()

	engine.FullSync(ctx)
	engine.StartPeriodicSync(cfg.SyncInterval)
	defer engine.StopPeriodicSync()

	router := rest.NewRouter(engine, syncMetrics, logger, cfg.EnableCORS)
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting control API",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("userID", userID),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Control API failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control API shutdown error", zap.Error(err))
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

// buildRemoteStore selects DynamoDB when a table is configured and the
// in-memory remote otherwise, which keeps the daemon usable for offline
// development without AWS credentials.
func buildRemoteStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.RemoteStore, error) {
	if cfg.DynamoDBTable == "" {
		logger.Warn("no DynamoDB table configured, using in-memory remote store")
		return memory.NewRemoteStore(), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}
	client := awsdynamodb.NewFromConfig(awsCfg)
	return dynamostore.NewRemoteStore(client, cfg.DynamoDBTable, logger), nil
}
