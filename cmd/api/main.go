package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/engine"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	rd := persistence.NewRedis(cfg.Redis, logger)
	defer rd.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	sectorRepo := repository.NewSectorRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	ticketCache := persistence.NewTicketCache(rd, cfg.Cache.TicketTTL(), logger)

	eng := engine.New(engine.Dependencies{
		TicketRepo:  ticketRepo,
		SectorRepo:  sectorRepo,
		CommentRepo: commentRepo,
		AuditRepo:   auditRepo,
		Cache:       ticketCache,
		Dispatcher:  dispatcher,
	})

	accounts := service.NewAccountService(*cfg, service.AccountDependencies{
		UserRepo:   userRepo,
		RoleRepo:   roleRepo,
		SectorRepo: sectorRepo,
	})
	sectors := service.NewSectorService(sectorRepo)

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()

	metrics := observability.NewMetrics()
	reporter := worker.NewMetricsReporter(metrics, logger, time.Minute)
	go reporter.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(accounts.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})

	apihttp.RegisterMiddlewares(app, cfg, logger, metrics)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Auth:    authMiddleware,
		Health:  handlers.NewHealthHandler(pg, rd),
		Account: handlers.NewAuthHandler(accounts),
		Tickets: handlers.NewTicketsHandler(eng),
		Tech:    handlers.NewTechTicketsHandler(eng),
		Admin:   handlers.NewAdminHandler(eng, accounts, sectors),
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
