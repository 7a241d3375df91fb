package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	notifyapp "gratitude_chat_service/internal/notify/app"
	notifyrepo "gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/config"
	"gratitude_chat_service/pkg/database"
	"gratitude_chat_service/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.PushWorker, config.EnvConfig.PushWorkerLogPath)
	cfg := config.LoadConfig[config.PushWorker](config.EnvConfig.PushWorker, config.EnvConfig.PushWorkerYAMLPath)

	pgConnStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)
	gormDB, err := database.NewGormConnection(database.Connection{
		ConnectStr:    pgConnStr,
		RetryCount:    cfg.Postgres.RetryCount,
		RetryInterval: time.Duration(cfg.Postgres.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}

	endpointRepo, err := notifyrepo.NewEndpointRepository(gormDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("migrate device_endpoints err : %v", err))
	}

	kafkaReader := database.NewKafkaReader(database.KafkaConnection{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaReader.Close()
	triggerQueue := notifyrepo.NewKafkaTriggerQueue(nil, kafkaReader)

	var sender notifyrepo.PushSender
	if cfg.Push.URL == "" {
		// no transport configured, log-only delivery for local runs
		sender = notifyrepo.MockPushSender{}
	} else {
		sender = notifyrepo.NewHTTPPushSender(
			cfg.Push.URL,
			cfg.Push.ServerKey,
			time.Duration(cfg.Push.TimeoutMS)*time.Millisecond,
		)
	}
	bridge := notifyapp.NewPushBridgeUseCase(endpointRepo, sender)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("push worker shutting down")
		cancel()
	}()

	logger.Log.Info("push worker consuming",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	if err := bridge.Run(ctx, triggerQueue); err != nil && err != context.Canceled {
		logger.Log.Fatal(fmt.Sprintf("push worker stopped : %v", err))
	}
}
