package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gratitude_chat_service/internal/feed/app"
	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/feed/repository"
	"gratitude_chat_service/internal/feed/router"
	notifyapp "gratitude_chat_service/internal/notify/app"
	notifyrepo "gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/config"
	"gratitude_chat_service/pkg/database"
	"gratitude_chat_service/pkg/logger"
	testtool "gratitude_chat_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func minioConnection(cfg config.MinIOConfig) database.MinIOConnection {
	return database.MinIOConnection{
		Endpoint:      cfg.Endpoint,
		User:          cfg.User,
		Password:      cfg.Password,
		BucketName:    cfg.Bucket,
		UseSSL:        cfg.UseSSL,
		RetryCount:    cfg.RetryCount,
		RetryInterval: time.Duration(cfg.RetryInterval),
	}
}

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.FeedService, config.EnvConfig.FeedServiceLogPath)
	cfg := config.LoadConfig[config.Feed](config.EnvConfig.FeedService, config.EnvConfig.FeedServiceYAMLPath)

	testtool.StartPprof()

	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	pgConnStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)
	pgPool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgConnStr,
		RetryCount:    cfg.Postgres.RetryCount,
		RetryInterval: time.Duration(cfg.Postgres.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
	}
	defer pgPool.Close()

	gormDB, err := database.NewGormConnection(database.Connection{
		ConnectStr:    pgConnStr,
		RetryCount:    cfg.Postgres.RetryCount,
		RetryInterval: time.Duration(cfg.Postgres.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect postgres (gorm) err : %v", err))
	}

	kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		RetryCount:    cfg.Kafka.RetryCount,
		RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
	}
	defer kafkaWriter.Close()

	minioClient, err := database.NewMinIOConnection(minioConnection(cfg.MinIO))
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	groupRepo := repository.NewMongoGroupRepository(mongo.Database)
	memberRepo := repository.NewCachedMemberRepository(
		repository.NewMemberRepository(pgPool),
		database.NewRedisRepository[domain.Member](redisClient),
	)
	pubsub := repository.NewRedisFeedPubSub(redisClient)
	imageStore := repository.NewMinioImageStore(minioClient)

	notifRepo := notifyrepo.NewMongoNotificationRepository(mongo.Database)
	endpointRepo, err := notifyrepo.NewEndpointRepository(gormDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("migrate device_endpoints err : %v", err))
	}
	triggerQueue := notifyrepo.NewKafkaTriggerQueue(kafkaWriter, nil)

	fanout := notifyapp.NewFanoutUseCase(
		notifRepo,
		groupRepo,
		notifyapp.NewMessageAuthorResolver(msgRepo),
		triggerQueue,
		pubsub,
	)
	dedup := notifyapp.NewDedupStore()

	wsHandler := app.NewFeedWebsocketHandler(msgRepo, groupRepo, memberRepo, pubsub, fanout, notifRepo, dedup)
	httpHandler := app.NewFeedHTTPHandler(imageStore, endpointRepo)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.FeedServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, wsHandler, httpHandler)

	port := ":" + cfg.Port
	log.Printf("Feed Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
