package main

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harbor-im/harbor/config"
	"github.com/harbor-im/harbor/internal/events"
	"github.com/harbor-im/harbor/internal/gateway"
	"github.com/harbor-im/harbor/internal/handlers"
	"github.com/harbor-im/harbor/internal/pkg/kafka"
	redispkg "github.com/harbor-im/harbor/internal/pkg/redis"
	"github.com/harbor-im/harbor/internal/repository"
	"github.com/harbor-im/harbor/internal/routers"
	"github.com/harbor-im/harbor/internal/service"
	"github.com/harbor-im/harbor/internal/storage"
	"github.com/harbor-im/harbor/middleware/jwt"
	logger "github.com/harbor-im/harbor/middleware/log"
	"github.com/harbor-im/harbor/utils/ratelimit"
	"github.com/harbor-im/harbor/utils/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("配置初始化失败: %v", err)
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer appLogger.Close()
	zlog := appLogger.Logger

	// 初始化 PostgreSQL
	db, err := storage.InitPostgres(&cfg.Postgres)
	if err != nil {
		zlog.Fatal("postgres 初始化失败", zap.Error(err))
	}

	// 初始化 Redis（失败则不维护在线镜像，限流退化为放行）
	var redisClient redispkg.RedisClient
	if client, err := redispkg.NewClient(&cfg.Redis); err != nil {
		zlog.Warn("redis 初始化失败，在线镜像与限流降级", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	// 初始化 Kafka 事件日志（失败则降级为空发布器）
	var publisher events.Publisher = events.NopPublisher{}
	if producer, err := kafka.NewProducer(&cfg.Kafka); err != nil {
		zlog.Warn("kafka 生产者初始化失败，事件日志降级", zap.Error(err))
	} else {
		publisher = events.NewKafkaPublisher(producer, cfg.Kafka.EventTopic, zlog)
		defer producer.Close()
	}

	// 初始化仓储层
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	friendRepo := repository.NewFriendRequestRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	ids, err := snowflake.NewGenerator(cfg.Server.WorkerID)
	if err != nil {
		zlog.Fatal("ID 生成器初始化失败", zap.Error(err))
	}

	tokens := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	registry := gateway.NewRegistry(zlog)

	// 初始化服务层
	friendService := service.NewFriendService(friendRepo, userRepo, registry, publisher, zlog)
	groupService := service.NewGroupService(groupRepo, publisher, zlog)
	readService := service.NewReadStatusService(messageRepo, zlog)
	sessionService := service.NewSessionService(messageRepo, userRepo, groupRepo, readService, zlog)
	routerService := service.NewRouterService(registry, messageRepo, groupRepo, friendService, groupService, ids, publisher, zlog)
	authService := service.NewAuthService(userRepo, tokens)

	onlineTTL := time.Duration(cfg.Websocket.HeartbeatInterval*2) * time.Second
	presenceService := service.NewPresenceService(registry, userRepo, friendService, redisClient, publisher, zlog, onlineTTL)

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewWindowLimiter(redisClient, zlog)
	}

	// 初始化处理器
	userHandler := handlers.NewUserHandler(authService, userRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, sessionService, readService)
	friendHandler := handlers.NewFriendHandler(friendService)
	groupHandler := handlers.NewGroupHandler(groupService)
	wsHandler := handlers.NewWSHandler(presenceService, routerService, &cfg.Websocket, zlog)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	routers.SetupRoutes(r, cfg, tokens, limiter, userHandler, messageHandler, friendHandler, groupHandler, wsHandler)

	zlog.Info("服务器启动", zap.Int("port", cfg.Server.Port))
	if err := r.Run(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		zlog.Fatal("启动服务器失败", zap.Error(err))
	}
}
