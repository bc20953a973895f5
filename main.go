package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	fb "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"transcriptionapi/config"
	"transcriptionapi/config/database"
	"transcriptionapi/config/firebase"
	"transcriptionapi/internal/transcription/repository"
	"transcriptionapi/internal/transcription/service"
	"transcriptionapi/middleware"
	"transcriptionapi/pkg/identity"
	"transcriptionapi/pkg/logger"
	"transcriptionapi/pkg/metrics"
	"transcriptionapi/router"
	"transcriptionapi/socket"
	"transcriptionapi/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var app *fb.App
	if cfg.NeedsFirebase() {
		app, err = firebase.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Sugar.Fatalf("Failed to initialize Firebase: %v", err)
		}
	}

	repo, closeStore, err := openStore(ctx, cfg, app)
	if err != nil {
		logger.Sugar.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	verifier, err := newVerifier(ctx, cfg, app)
	if err != nil {
		logger.Sugar.Fatalf("Failed to build %s verifier: %v", cfg.AuthProvider, err)
	}

	var hub *socket.Hub
	var events service.Publisher
	if cfg.EventsEnabled {
		hub = socket.NewHub(cfg.AllowedOrigins)
		go hub.Run(ctx)
		events = hub
	}

	rateLimiter, closeRedis, err := newLimiter(cfg)
	if err != nil {
		logger.Sugar.Fatalf("Failed to configure rate limiting: %v", err)
	}
	defer closeRedis()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	svc := service.NewTranscriptionService(repo, events, service.Options{
		StoreTimeout: cfg.StoreTimeout,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: router.Setup(router.Deps{
			Service:        svc,
			Verifier:       verifier,
			Hub:            hub,
			Metrics:        m,
			Limiter:        rateLimiter,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Transcription API listening on %s (store=%s, auth=%s)", cfg.Addr, cfg.StoreDriver, cfg.AuthProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, app *fb.App) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.Connect(cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresRepository(db), func() { db.Close() }, nil
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewFirestoreRepository(client, cfg.Firebase.Collection), func() { client.Close() }, nil
	default:
		logger.Sugar.Warn("Using the in-memory store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, app *fb.App) (identity.Verifier, error) {
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		return identity.NewFirebaseVerifier(ctx, app)
	case config.AuthStatic:
		return identity.ParseStaticTokens(cfg.StaticTokens)
	default:
		return identity.NewJWTVerifier(cfg.JWTSecret)
	}
}

// newLimiter returns a nil limiter when RATE_LIMIT is unset.
func newLimiter(cfg *config.Config) (*limiter.Limiter, func(), error) {
	noop := func() {}
	if cfg.RateLimit == "" {
		return nil, noop, nil
	}

	var client *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		client = redis.NewClient(opts)
	}

	l, err := middleware.NewRateLimiter(cfg.RateLimit, client)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, noop, err
	}
	if client == nil {
		return l, noop, nil
	}
	return l, func() { client.Close() }, nil
}
