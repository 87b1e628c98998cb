package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/coupon-service/internal/api/http"
	"github.com/spec-kit/coupon-service/internal/api/http/handlers"
	"github.com/spec-kit/coupon-service/internal/auth"
	"github.com/spec-kit/coupon-service/internal/authz"
	"github.com/spec-kit/coupon-service/internal/config"
	"github.com/spec-kit/coupon-service/internal/events"
	"github.com/spec-kit/coupon-service/internal/observability"
	"github.com/spec-kit/coupon-service/internal/persistence"
	"github.com/spec-kit/coupon-service/internal/repository"
	"github.com/spec-kit/coupon-service/internal/service"
	"github.com/spec-kit/coupon-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)

	roleStore := authz.NewRoleStore(roleRepo, logger)
	ownership := authz.NewCouponOwnership(couponRepo, logger)
	evaluator := authz.NewEvaluator(roleStore, ownership)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  userRepo,
		RoleStore: roleStore,
		Logger:    logger,
	})
	couponService := service.NewCouponService(service.CouponDependencies{
		CouponRepo: couponRepo,
		Evaluator:  evaluator,
		Dispatcher: dispatcher,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		RoleStore:  roleStore,
		Evaluator:  evaluator,
		Dispatcher: dispatcher,
	})
	statsService := service.NewStatsService(couponRepo, evaluator, redis.Client, cfg.Stats.CacheTTL(), logger)
	statsService.RegisterInvalidation(dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Coupons:        handlers.NewCouponsHandler(couponService),
		Stats:          handlers.NewStatsHandler(statsService),
		Admin:          handlers.NewAdminHandler(userService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
