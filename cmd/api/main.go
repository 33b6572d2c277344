package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/config"
	appHTTP "github.com/pontaj-digital/pontaj-backend-go/internal/handler/http"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/cache"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/cron"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/database"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/geofence"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/i18n"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/jwt"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/sse"
	"github.com/pontaj-digital/pontaj-backend-go/internal/repository/postgresql"
	redisRepo "github.com/pontaj-digital/pontaj-backend-go/internal/repository/redis"
	reportService "github.com/pontaj-digital/pontaj-backend-go/internal/service/report"
	shiftService "github.com/pontaj-digital/pontaj-backend-go/internal/service/shift"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := appHTTP.NewLogger(os.Stdout, cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("Error running migrations", "error", err)
		os.Exit(1)
	}

	redisClient := cache.NewRedisClient(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := cache.Ping(ctx, redisClient); err != nil {
		slog.Error("Error connecting to redis", "error", err)
		os.Exit(1)
	}

	translator, err := i18n.New(cfg.App.DefaultLocale)
	if err != nil {
		slog.Error("Error loading translations", "error", err)
		os.Exit(1)
	}
	response.UseTranslator(translator)

	loc := cfg.Location()
	clock := accounting.SystemClock{}

	// Repositories
	transactor := postgresql.NewTransactor(db)
	segmentRepo := postgresql.NewSegmentRepository(db)
	siteRepo := postgresql.NewSiteRepository(db)
	activityRepo := postgresql.NewActivityRepository(db)
	pingStore := redisRepo.NewPingStore(cache.NewRedisKVStore(redisClient), cfg.Redis.PingTTL)

	// Core
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.SSEExpiration)
	hub := sse.NewHub(16)
	evaluator := geofence.NewEvaluator(geofence.Config{
		SelfDeclarationMaxMeters: cfg.Geofence.SelfDeclarationMaxMeters,
		GPSLostAfter:             cfg.Geofence.GPSLostAfter,
		ApplicableRoles:          cfg.Geofence.ApplicableRoles,
	})
	engine := accounting.NewEngine(accounting.Options{
		LegacyDoubleSubtract: cfg.Geofence.LegacyDoubleSubtract,
	})

	// Services
	shiftSvc := shiftService.NewShiftService(
		transactor,
		segmentRepo,
		siteRepo,
		activityRepo,
		pingStore,
		evaluator,
		engine,
		clock,
		hub,
		shiftService.Config{
			DefaultRadiusMeters: cfg.Geofence.DefaultRadiusMeters,
			Location:            loc,
		},
	)
	reportSvc := reportService.NewReportService(segmentRepo, activityRepo, engine, clock, reportService.Config{
		LateAfter: cfg.Report.LateAfter,
		TopN:      cfg.Report.TopN,
		Location:  loc,
	})

	// Background jobs
	scheduler := cron.NewScheduler(ctx)
	cron.NewShiftJobs(shiftSvc, clock, cfg.Geofence.PingInterval, time.Minute).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// Handlers
	shiftHandler := appHTTP.NewShiftHandler(shiftSvc)
	reportHandler := appHTTP.NewReportHandler(reportSvc)
	streamHandler := appHTTP.NewStreamHandler(JWTService, hub, 30*time.Second)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			CORSOrigins: cfg.App.CORSOrigins,
			Logger:      logger,
		},
		JWTService,
		translator,
		shiftHandler,
		reportHandler,
		streamHandler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
