package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/auth"
	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/handlers/apiserver"
	"github.com/ChrisKp1710/gamecall/internal/handlers/chatserver"
	appKafka "github.com/ChrisKp1710/gamecall/internal/kafka"
	kafkahandlers "github.com/ChrisKp1710/gamecall/internal/kafka/handlers"
	"github.com/ChrisKp1710/gamecall/internal/logging"
	appRedis "github.com/ChrisKp1710/gamecall/internal/redis"
	"github.com/ChrisKp1710/gamecall/internal/services"
	"github.com/ChrisKp1710/gamecall/internal/storage"
	ws "github.com/ChrisKp1710/gamecall/internal/websocket"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(os.Getenv("GAMECALL_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	// 2. 初始化日志
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("app", cfg.AppName), zap.String("version", cfg.AppVersion))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 数据库
	db, err := storage.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("无法初始化数据库", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := storage.AutoMigrateTables(db); err != nil {
			logger.Fatal("数据库表迁移失败", zap.Error(err))
		}
	}

	// 4. Token 黑名单：启用 Redis 时共享，否则仅在本进程内有效
	var blacklist auth.TokenBlacklist = auth.NewMemoryBlacklist()
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(rootCtx, cfg.Redis)
		if err != nil {
			logger.Fatal("无法连接到 Redis", zap.Error(err))
		}
		defer redisClient.Close()
		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
		logger.Info("redis token blacklist enabled", zap.String("addr", cfg.Redis.Addr))
	}
	authenticator := auth.NewAuthenticator(cfg.Auth, blacklist)

	// 5. Kafka（可选）
	var producer appKafka.MessageProducer
	if cfg.Kafka.Enabled {
		producer, err = appKafka.NewConfluentKafkaProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("无法创建 Kafka 生产者", zap.Error(err))
		}
		defer producer.Close()
	}

	// 6. 仓库、服务与连接注册表
	registry := ws.NewRegistry(logger)

	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	messageRepo := storage.NewGormMessageRepository(db)

	authService := services.NewAuthService(userRepo, cfg.Auth, logger)
	userService := services.NewUserService(userRepo)
	friendshipService := services.NewFriendshipService(db, userRepo, friendshipRepo, registry, logger)
	messageRouter := services.NewMessageRouter(messageRepo, friendshipRepo, registry, producer, cfg, logger)

	// 7. 实时事件消费者
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("无法创建 Kafka 消费者", zap.Error(err))
		}
		liveEvents := kafkahandlers.NewLiveEventConsumerLogic(registry, logger)
		go func() {
			defer close(consumerDone)
			defer consumer.Close()
			if err := consumer.Consume(rootCtx, []string{cfg.Kafka.LiveEventsTopic}, liveEvents.HandleLiveEvent); err != nil {
				logger.Error("live event consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	// 8. 路由
	wsHandler := chatserver.NewWebSocketHandler(rootCtx, registry, authenticator, userService, cfg.WebSocket, logger)
	router := apiserver.NewRouter(apiserver.Routes{
		Auth:          apiserver.NewAuthHandler(authService, userService, authenticator, logger),
		Friends:       apiserver.NewFriendHandler(friendshipService, logger),
		Messages:      apiserver.NewMessageHandler(messageRouter, logger),
		Authenticator: authenticator,
		WebSocket:     http.HandlerFunc(wsHandler.ServeWS),
		WebSocketPath: cfg.Server.WebSocketPath,
		Metrics:       promhttp.Handler(),
		Logger:        logger,
	})

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.CORS.MaxAge),
	}
	if cfg.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	// 9. 启动服务器
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        handlers.CORS(corsOptions...)(router),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("hub server listening", zap.String("addr", serverAddr), zap.String("ws_path", cfg.Server.WebSocketPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 10. 优雅关闭：rootCtx 取消后会话与消费者随之结束
	<-rootCtx.Done()
	logger.Info("收到关闭信号，正在关闭服务器")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器强制关闭", zap.Error(err))
	}
	<-consumerDone

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("服务器已关闭", zap.Int("sessions_at_shutdown", registry.OnlineCount()))
}
