package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/LeelaMadhavaRao/Attendace-system-sub000/api/swagger"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/handler"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/llm"
	appMiddleware "github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/middleware"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/repository"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/service"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/tabular"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/transport/whatsapp"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/cache"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/config"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/database"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/jobs"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/logger"
	corsmiddleware "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/middleware/requestid"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/storage"
)

// @title Attendance Bot Gateway
// @version 0.1.0
// @description WhatsApp chat gateway for attendance management
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, duplicate suppression disabled", "error", err)
		redisClient = nil
	}

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	// repositories
	facultyRepo := repository.NewFacultyRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	chatRepo := repository.NewChatRepository(db)
	parentLogRepo := repository.NewParentLogRepository(db)
	dedupRepo := repository.NewDedupRepository(redisClient, cfg.Webhook.DedupTTL)

	// transport and classification
	waClient := whatsapp.NewClient(cfg.WhatsApp, logr)
	providers := llm.ProvidersFromConfig(cfg.Classifier)
	if len(providers) == 0 {
		logr.Warn("no classifier API keys configured, every message will get the fallback reply")
	}
	classifier := llm.NewClassifier(providers, cfg.Classifier.RequestTimeout, logr)

	// services
	metricsSvc := service.NewMetricsService()
	classifier.SetAttemptObserver(metricsSvc.CountProvider)
	resolverSvc := service.NewResolverService(facultyRepo, classRepo, subjectRepo, logr)
	attendanceSvc := service.NewAttendanceService(sessionRepo, studentRepo, resolverSvc, logr)
	reportSvc := service.NewReportService(resolverSvc, studentRepo, sessionRepo, reportStore, signer,
		service.ReportConfig{
			Format:      cfg.Reports.Format,
			PublicBase:  cfg.Reports.PublicBaseURL,
			MaxParallel: cfg.Notifications.MaxConcurrent,
		}, logr)
	notifySvc := service.NewNotifyService(resolverSvc, studentRepo, sessionRepo, waClient, parentLogRepo,
		service.NotifyConfig{
			DefaultThreshold: cfg.Notifications.DefaultThreshold,
			MaxConcurrent:    cfg.Notifications.MaxConcurrent,
		}, logr)
	rosterSvc := service.NewRosterService(resolverSvc, classRepo, studentRepo, tabular.NewCSVDecoder(), waClient, nil, logr)
	dispatcher := service.NewDispatcherService(resolverSvc, classifier, command.NewNormalizer(),
		attendanceSvc, reportSvc, notifySvc, rosterSvc, chatRepo, dedupRepo, waClient,
		waClient, tabular.NewCSVDecoder(), metricsSvc, cfg.History.MaxTurns, logr)

	queue := jobs.NewQueue("inbound-messages", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.InboundEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		dispatcher.HandleEvent(ctx, event)
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Webhook.Workers,
		BufferSize: cfg.Webhook.BufferSize,
		OnDepth:    metricsSvc.SetQueueDepth,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(appMiddleware.Metrics(metricsSvc))

	webhookHandler := handler.NewWebhookHandler(cfg.WhatsApp.VerifyToken, queue, logr)
	reportHandler := handler.NewReportHandler(signer, reportStore, logr)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.GET("/webhook", webhookHandler.Verify)
	r.POST("/webhook", webhookHandler.Receive)
	r.GET("/reports/download/:token", reportHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
