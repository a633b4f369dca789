package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"whatsapp-lite/internal/auth"
	"whatsapp-lite/internal/chat"
	"whatsapp-lite/internal/config"
	"whatsapp-lite/internal/db"
	grpcserver "whatsapp-lite/internal/grpc"
	"whatsapp-lite/internal/handlers"
	"whatsapp-lite/internal/jobs"
	"whatsapp-lite/internal/logging"
	"whatsapp-lite/internal/media"
	"whatsapp-lite/internal/middleware"
	"whatsapp-lite/internal/observability"
	"whatsapp-lite/internal/presence"
	"whatsapp-lite/internal/rabbitmq"
	"whatsapp-lite/internal/repositories"
	"whatsapp-lite/internal/telemetry"
	"whatsapp-lite/internal/users"
	"whatsapp-lite/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.IsLocal())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTel.Endpoint, cfg.Service.Name, cfg.Service.Environment, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	database, err := db.Connect(cfg.DB, logger)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	chatRepo := repositories.NewChatRepo(database)

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	logger.Info("event publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(publisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(publisher)),
	)
	domainEvents := observability.NewEvents(publisher, logger)
	audit := telemetry.NewAuditEmitter(publisher, cfg.Service.Name, cfg.Service.Environment, logger)

	var images media.ImageStore = media.InlineStore{}
	if cfg.MinIO.Endpoint != "" {
		store, err := media.NewMinIOStore(ctx, cfg.MinIO, logger)
		if err != nil {
			logger.Warn("minio unavailable, storing images inline", zap.Error(err))
		} else {
			images = store
		}
	}

	var limiter middleware.Counter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			limiter = middleware.NewRedisCounter(rdb)
			defer rdb.Close()
		}
	}

	registry := presence.NewRegistry()
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	authenticator := auth.NewAuthenticator(tokens, userRepo)

	chatService := chat.NewService(messageRepo, chatRepo, userRepo, images, registry, domainEvents, audit, logger)
	authService := auth.NewService(userRepo, tokens, logger)
	userService := users.NewService(userRepo, registry, logger)

	hub := ws.NewHub(registry, domainEvents, logger)
	sessions := ws.NewSessions(registry, hub, userRepo, domainEvents, logger)
	socket := ws.NewHandler(authenticator, sessions, ws.NewDispatcher(hub, chatService, logger), logger)

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Service.Name),
		middleware.RequestID(),
		observability.HTTPMetricsMiddleware(),
		middleware.RateLimit(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger),
		middleware.BodyLimit(media.MaxImageBytes),
	)
	router.NoRoute(handlers.NotFound)
	handlers.Register(router, handlers.Routes{
		Auth:      handlers.NewAuthHandler(authService, logger),
		Users:     handlers.NewUserHandler(userService, logger),
		Messages:  handlers.NewMessageHandler(chatService, hub, logger),
		Socket:    socket.Handle,
		Protected: middleware.AuthMiddleware(authenticator, logger),
		DB:        database,
	})
	handlers.RegisterDebugRoutes(router, audit, cfg.Debug.Routes)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	opsServer := grpcserver.NewServer(database, 15*time.Second, logger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		logger.Fatal("failed to listen for grpc", zap.String("port", cfg.GRPC.Port), zap.Error(err))
	}
	go opsServer.Watch(ctx)
	go func() {
		if err := opsServer.Serve(lis); err != nil {
			logger.Error("grpc server error", zap.Error(err))
		}
	}()

	cron := jobs.NewManager(jobs.NewPresenceSweepJob(userRepo, registry, cfg.Presence.LoginGrace, logger), cfg.Presence.SweepSpec, logger)
	if err := cron.Start(ctx); err != nil {
		logger.Fatal("failed to start cron", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	opsServer.GracefulStop()
	cron.Stop(shutdownCtx)
	if err := publisher.Close(); err != nil {
		logger.Warn("publisher close", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}
