package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Kazorio/translation-app/config"
	"github.com/Kazorio/translation-app/internal/api/handlers"
	"github.com/Kazorio/translation-app/internal/api/middleware"
	"github.com/Kazorio/translation-app/internal/api/routes"
	"github.com/Kazorio/translation-app/internal/cache"
	"github.com/Kazorio/translation-app/internal/logger"
	"github.com/Kazorio/translation-app/internal/metrics"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/providers/llm"
	"github.com/Kazorio/translation-app/internal/providers/stt"
	"github.com/Kazorio/translation-app/internal/providers/translator"
	"github.com/Kazorio/translation-app/internal/providers/tts"
	"github.com/Kazorio/translation-app/internal/realtime"
	mongorepo "github.com/Kazorio/translation-app/internal/repositories/mongo"
	pgrepo "github.com/Kazorio/translation-app/internal/repositories/postgres"
	"github.com/Kazorio/translation-app/internal/services"
	"github.com/Kazorio/translation-app/internal/session"
	"github.com/Kazorio/translation-app/internal/storage"
	"github.com/Kazorio/translation-app/internal/workers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewWithLevel(os.Stdout, cfg.LogLevel)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	log.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")

	// Redis carries presence and inserts across instances. Without it the
	// process serves a single instance from memory.
	var (
		broker realtime.Broker
		c      cache.Cache
	)
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Warn("Redis unavailable; using in-process broker without cache")
		broker = realtime.NewLocalBroker()
	} else {
		broker = realtime.NewRedisBroker(config.RedisClient, log)
		c = cache.NewRedisCache(config.RedisClient)
		log.Info("Redis connected")
	}

	// Providers
	speechP, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("speech client error: %v", err)
	}
	defer speechP.Close()

	ttsP, err := tts.NewGoogleTTS(ctx)
	if err != nil {
		log.Fatalf("tts client error: %v", err)
	}
	defer ttsP.Close()

	gemini, err := llm.NewVertexGemini(ctx, cfg.GCPProject, cfg.VertexLocation, cfg.VertexModel)
	if err != nil {
		log.Fatalf("vertex client error: %v", err)
	}
	defer gemini.Close()

	// Repositories and services
	db := config.MongoDatabase()
	prefRepo := mongorepo.NewPreferenceRepo(db)
	convRepo := pgrepo.NewConversationRepo(config.PostgresDB)

	speechSvc := services.NewSpeechService(speechP, ttsP, c, cfg.CacheTTL, m, log)
	translationSvc := services.NewTranslationService(translator.NewLLMTranslator(gemini), c, cfg.CacheTTL, m, log)
	convSvc := services.NewConversationService(convRepo, broker, m, log)
	prefSvc := services.NewPreferenceService(prefRepo)

	var (
		uttSvc     services.UtteranceService
		uttHandler *handlers.UtteranceHandler
	)
	if cfg.ArchiveUtterances && cfg.GCSBucket != "" && config.RedisClient != nil {
		gcs, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatalf("GCS client error: %v", err)
		}
		defer gcs.Close()

		uttRepo := mongorepo.NewUtteranceRepo(db)
		uttSvc = services.NewUtteranceService(uttRepo, workers.NewRedisArchiveQueue(config.RedisClient), gcs, cfg.UtteranceTTL)
		uttHandler = handlers.NewUtteranceHandler(uttSvc)

		pool := &workers.ArchiveWorkerPool{
			Redis:      config.RedisClient,
			Utterances: uttRepo,
			Uploader:   gcs,
			Metrics:    m,
			NumWorkers: cfg.ArchiveWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("archive workers error: %v", err)
		}
		log.WithField("workers", cfg.ArchiveWorkers).Info("utterance archiving enabled")
	} else if cfg.ArchiveUtterances {
		log.Warn("ARCHIVE_UTTERANCES needs GCS_BUCKET and Redis; archiving disabled")
	}

	svc := session.Services{
		Broker:        broker,
		Conversations: convSvc,
		Speech:        speechSvc,
		Translation:   translationSvc,
		Preferences:   prefSvc,
		Utterances:    uttSvc,
		Metrics:       m,
		Logger:        log,
	}
	base := session.Config{
		Role:                models.SpeakerSelf,
		MinRecordingSeconds: cfg.MinRecordingSeconds,
		ConfigErrorDelay:    cfg.ConfigErrorDelay,
		PipelineErrorDelay:  cfg.PipelineErrorDelay,
		PlaybackGap:         cfg.PlaybackGap,
		Archive:             uttSvc != nil,
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, m))
	routes.RegisterRoutes(r, routes.Deps{
		Speech:       handlers.NewSpeechHandler(speechSvc, translationSvc),
		Conversation: handlers.NewConversationHandler(convSvc),
		Preference:   handlers.NewPreferenceHandler(prefSvc),
		Utterance:    uttHandler,
		WS:           handlers.NewWSHandler(svc, base, cfg.AllowedOrigins),
		JWT: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		Metrics: m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if config.RedisClient != nil {
		_ = config.RedisClient.Close()
	}
	_ = config.MongoClient.Disconnect(shutdownCtx)
}
