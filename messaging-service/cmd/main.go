package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/marketplace/messaging-service/internal/cache"
	"github.com/campusmarket/marketplace/messaging-service/internal/config"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/handler"
	"github.com/campusmarket/marketplace/messaging-service/internal/idgen"
	"github.com/campusmarket/marketplace/messaging-service/internal/listing"
	"github.com/campusmarket/marketplace/messaging-service/internal/mailer"
	"github.com/campusmarket/marketplace/messaging-service/internal/notification"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
	"github.com/campusmarket/marketplace/messaging-service/internal/service"
	"github.com/campusmarket/marketplace/pkg/database"
	"github.com/campusmarket/marketplace/pkg/jwt"
	pkglog "github.com/campusmarket/marketplace/pkg/log"
	"github.com/campusmarket/marketplace/pkg/middleware"
	"github.com/campusmarket/marketplace/pkg/pubsub"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	logger := pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "messaging-service",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	models := []interface{}{
		&domain.ConversationModel{},
		&domain.MessageModel{},
		&domain.NotificationPreferenceModel{},
	}
	if cfg.Database.MigrateUsers {
		models = append(models, &domain.UserModel{})
	}
	if err := database.AutoMigrate(db, models...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// 4. Initialize cache
	var appCache cache.Cache = cache.NoopCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		appCache = redisCache
		logger.Info().Msg("redis cache connected")
	} else {
		logger.Warn().Msg("redis disabled, caching is off")
	}

	// 5. Initialize repositories and listing lookup
	convRepo := repository.NewGormConversationRepository(db, idgen.NewUUIDGenerator())
	msgRepo := repository.NewGormMessageRepository(db, idgen.NewULIDGenerator())
	prefRepo := repository.NewGormPreferenceRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	listings := listing.NewCachedLookup(
		listing.NewHTTPLookup(cfg.Listing.BaseURL, cfg.Listing.Timeout),
		appCache,
		cfg.Cache.ListingTTL,
	)

	// 6. Initialize notification path
	notifier := notification.NewEmailNotifier(userRepo, prefRepo, listings, mailer.New(cfg.Mail), cfg.Notification.Enabled)

	var (
		dispatcher      notification.Dispatcher = notification.NoopDispatcher{}
		asyncDispatcher *notification.AsyncDispatcher
		consumer        *notification.Consumer
		bus             pubsub.PubSub
	)
	switch {
	case !cfg.Notification.Enabled:
		logger.Info().Msg("email notifications disabled")
	case cfg.Notification.Driver == "inline" || cfg.Notification.Driver == "":
		asyncDispatcher = notification.NewAsyncDispatcher(notifier, cfg.Notification.Workers, cfg.Notification.QueueSize, cfg.Notification.Timeout)
		asyncDispatcher.Start()
		dispatcher = asyncDispatcher
	default:
		psCfg := cfg.Notification.PubSub
		psCfg.Driver = cfg.Notification.Driver
		bus, err = pubsub.NewPubSub(psCfg)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", psCfg.Driver).Msg("failed to create pubsub")
		}
		// Publishing waits on the broker, so it runs on the dispatcher workers.
		asyncDispatcher = notification.NewAsyncDispatcher(
			notification.NewPubSubNotifier(bus, cfg.Notification.Channel),
			cfg.Notification.Workers, cfg.Notification.QueueSize, cfg.Notification.Timeout,
		)
		asyncDispatcher.Start()
		dispatcher = asyncDispatcher

		if cfg.Notification.ConsumerEnabled {
			consumer = notification.NewConsumer(bus, cfg.Notification.Channel, notifier, cfg.Notification.Timeout)
			if err := consumer.Start(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to start notification consumer")
			}
		}
		logger.Info().Str("driver", psCfg.Driver).Bool("consumer", consumer != nil).Msg("notification pubsub ready")
	}

	// 7. Initialize services
	resolver := service.NewConversationResolver(convRepo, listings)
	messagingService := service.NewMessagingService(convRepo, msgRepo, userRepo, resolver, appCache, cfg.Cache.TTL, dispatcher)
	preferenceService := service.NewPreferenceService(prefRepo)

	// 8. Initialize auth middleware
	verifier, err := jwt.NewVerifier(cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// 9. Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	httpHandler := handler.NewHandler(messagingService, preferenceService, authMiddleware)
	httpHandler.RegisterRoutes(r)

	// 10. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Str("notification_driver", cfg.Notification.Driver).Msg("messaging-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// 1. server.Shutdown — drain HTTP so no new sends arrive
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		// 2. dispatcher workers finish queued notifications
		if asyncDispatcher != nil {
			if err := asyncDispatcher.Stop(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("notification dispatcher did not drain")
			}
		}

		// 3. pubsub consumer, then the bus itself
		if consumer != nil {
			if err := consumer.Close(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("error closing notification consumer")
			}
		}
		cancel()
		if bus != nil {
			if err := bus.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing pubsub")
			}
		}

		// 4. redis
		if err := appCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis cache")
		}

		// 5. database
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database")
			}
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("messaging-service stopped")
	case <-shutdownCtx.Done():
		logger.Warn().Dur("timeout", timeout).Msg("shutdown timed out")
	}
}
