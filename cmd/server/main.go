// Package main runs the post-meeting content HTTP server with the meeting
// lifecycle loop and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/internal/accounts"
	"github.com/postmeeting/backend/internal/ai"
	"github.com/postmeeting/backend/internal/automations"
	"github.com/postmeeting/backend/internal/calendar"
	"github.com/postmeeting/backend/internal/contents"
	"github.com/postmeeting/backend/internal/events"
	"github.com/postmeeting/backend/internal/meetings"
	"github.com/postmeeting/backend/internal/middleware"
	"github.com/postmeeting/backend/internal/realtime"
	"github.com/postmeeting/backend/internal/recall"
	"github.com/postmeeting/backend/internal/reconciler"
	"github.com/postmeeting/backend/internal/settings"
	"github.com/postmeeting/backend/internal/social"
	"github.com/postmeeting/backend/pkg/database"
	"github.com/postmeeting/backend/pkg/queue"
	"github.com/postmeeting/backend/pkg/redis"
	"github.com/postmeeting/backend/pkg/response"
	"github.com/postmeeting/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it the index cache and websocket refresh
	// counter degrade to direct DB reads, and refine jobs are skipped.
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, cache and refine queue disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ArchiveBucket:   cfg.AWS.ArchiveBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 archiving disabled", zap.Error(err))
		}
	}

	// Repositories
	accountRepo := accounts.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	meetingRepo := meetings.NewRepository(pool)
	contentRepo := contents.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	automationRepo := automations.NewRepository(pool)
	socialRepo := social.NewRepository(pool)
	botRepo := recall.NewRepository(pool)

	// Provider clients
	googleOAuth := accounts.NewGoogleOAuth(cfg.Google, cfg.Server.AppOrigin+"/api/oauth/google/callback")
	linkedIn := social.NewLinkedIn(cfg.LinkedIn, cfg.Server.AppOrigin+"/api/oauth/linkedin/callback")
	facebook := social.NewFacebook(cfg.Facebook, cfg.Server.AppOrigin+"/api/oauth/facebook/callback")
	recallClient := recall.NewClient(cfg.Recall, logger)
	openAI := ai.NewOpenAI(cfg.OpenAI)

	calendarSvc := calendar.NewService(accountRepo, googleOAuth, logger)
	scheduler := recall.NewScheduler(botRepo, recallClient, cfg.Reconciler.LeadMinutes, logger)
	aiSvc := ai.NewService(openAI, logger)
	publisher := social.NewService(socialRepo, settingsRepo, linkedIn, facebook, logger)

	cache := meetings.NewCache(rdb, meetingRepo, logger)
	var jobQueue *queue.Queue
	if rdb != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	hub := realtime.NewHub(logger, nil)

	// Handlers
	accountHandler := accounts.NewHandler(googleOAuth, accountRepo, cfg.Server.StateSecret, cfg.Server.AppOrigin+"/settings", logger)
	eventHandler := events.NewHandler(eventRepo, scheduler, botRepo, recallClient, logger)
	meetingHandler := meetings.NewHandler(meetingRepo, cache, logger)
	contentHandler := contents.NewHandler(contentRepo, meetingRepo, automationRepo, publisher, logger)
	settingsHandler := settings.NewHandler(settingsRepo, logger)
	automationHandler := automations.NewHandler(automationRepo, logger)
	socialHandler := social.NewHandler(socialRepo, linkedIn, facebook, cfg.Server.StateSecret, cfg.Server.AppOrigin+"/settings", logger)
	aiHandler := ai.NewHandler(aiSvc)
	recallHandler := recall.NewHandler(recallClient, botRepo, scheduler, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/ws", func(c *gin.Context) { hub.ServeWS(c.Writer, c.Request) })

	api := router.Group("/api")
	oauth := api.Group("/oauth")
	accountHandler.RegisterRoutes(oauth, api)
	socialHandler.RegisterRoutes(oauth, api)
	eventHandler.RegisterRoutes(api)
	meetingHandler.RegisterRoutes(api)
	contentHandler.RegisterRoutes(api)
	settingsHandler.RegisterRoutes(api)
	automationHandler.RegisterRoutes(api)
	aiHandler.RegisterRoutes(api)
	recallHandler.RegisterRoutes(api.Group("/recall"))

	// Lifecycle loop
	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()

	deps := reconciler.Deps{
		Calendar:    calendarSvc,
		Events:      eventRepo,
		Bots:        botRepo,
		Provider:    recallClient,
		Meetings:    meetingRepo,
		Contents:    contentRepo,
		Automations: automationRepo,
		Settings:    settingsRepo,
		Notifier:    cache,
		Broadcaster: hub,
	}
	if jobQueue != nil {
		deps.Refiner = refineQueue{q: jobQueue}
	}
	if s3Client != nil {
		deps.Archiver = s3Client
	}
	rec := reconciler.New(cfg.Reconciler, deps, logger)
	loop := reconciler.NewLoop(rec, logger)
	if err := loop.Start(loopCtx); err != nil {
		logger.Fatal("reconcile loop", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	loopCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// refineQueue adapts the job queue to the reconciler's refiner dependency.
type refineQueue struct{ q *queue.Queue }

func (r refineQueue) EnqueueRefine(ctx context.Context, meetingID string) error {
	return r.q.EnqueueContentRefine(ctx, queue.ContentRefinePayload{MeetingID: meetingID})
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
