package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/singalong/config"
	"github.com/yoockh/singalong/internal/api/handlers"
	"github.com/yoockh/singalong/internal/api/middleware"
	"github.com/yoockh/singalong/internal/api/routes"
	"github.com/yoockh/singalong/internal/cache"
	"github.com/yoockh/singalong/internal/leaderboard"
	"github.com/yoockh/singalong/internal/logger"
	"github.com/yoockh/singalong/internal/providers/stt"
	"github.com/yoockh/singalong/internal/scoring"
	"github.com/yoockh/singalong/internal/songs"
	"github.com/yoockh/singalong/internal/storage"
	"github.com/yoockh/singalong/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := songs.Load(cfg.SongsFile)
	if err != nil {
		log.WithError(err).Fatal("songs catalog init error")
	}
	log.WithField("songs", len(catalog.Keys())).Info("songs catalog loaded")

	// Speech
	speech, err := stt.NewGoogleSpeech(ctx, cfg.SpeechProjectID, cfg.SpeechLocation)
	if err != nil {
		log.WithError(err).Fatal("speech client init error")
	}
	defer speech.Close()
	log.WithField("recognizer", speech.Recognizer).Info("speech client ready")

	// Leaderboard storage
	store, closeStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("storage init error")
	}
	defer closeStore()
	log.WithField("backend", store.Type()).Info("storage ready")

	// Score tokens
	tokenStore, closeTokens, err := newTokenStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("token store init error")
	}
	defer closeTokens()
	log.WithField("backend", cfg.TokenBackend).Info("token store ready")

	board := leaderboard.New(store, cfg.HighScoresObject, log)
	scorer := scoring.New(cfg.Resolution())

	r := routes.NewRouter(routes.Deps{
		Listen: handlers.NewListenHandler(speech, handlers.ListenOptions{
			DefaultLanguage: cfg.SpeechDefaultLanguage,
			Model:           cfg.SpeechModel,
			InterimResults:  cfg.SpeechInterimResults,
			Resolution:      cfg.Resolution(),
		}, log),
		Song:      handlers.NewSongHandler(catalog),
		Score:     handlers.NewScoreHandler(catalog, scorer, tokenStore, log),
		HighScore: handlers.NewHighScoreHandler(board, tokenStore, log),
		Logger:    log,
		Admin:     middleware.JWTOptions{Secret: cfg.AdminJWTSecret},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, func(), error) {
	switch cfg.StorageBackend {
	case "gcs":
		s, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.StoragePrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "s3":
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.StorageBucket,
			Prefix:    cfg.StoragePrefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return storage.NewLocalStore(cfg.LocalStorageDir), func() {}, nil
	}
}

func newTokenStore(ctx context.Context, cfg *config.Config) (tokens.Store, func(), error) {
	if cfg.TokenBackend != "redis" {
		return tokens.NewMemoryStore(cfg.TokenTTL, cfg.TokenCapacity), func() {}, nil
	}
	rdb, err := config.NewRedis(ctx, cfg.RedisTarget())
	if err != nil {
		return nil, nil, err
	}
	return tokens.NewRedisStore(cache.NewRedisCache(rdb), cfg.TokenTTL), func() { _ = rdb.Close() }, nil
}
