package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/clockout/clockout/internal/config"
	"github.com/clockout/clockout/internal/handlers"
	"github.com/clockout/clockout/internal/middleware"
	"github.com/clockout/clockout/internal/ratelimit"
	"github.com/clockout/clockout/internal/repository"
	"github.com/clockout/clockout/internal/service"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	store, err := initStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize timer store")
	}
	defer store.Close()

	limiter, failures := initRateLimit(cfg, logger)

	tokenService, err := service.NewTokenService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}

	registry := service.NewCredentialRegistry(&cfg.Admin)
	authService := service.NewAuthService(registry, tokenService, limiter, failures, &cfg.RateLimit, logger)
	timerService := service.NewTimerService(store, logger)

	clockHandlers := handlers.NewClockHandlers(timerService, cfg.Frontend.BaseURL, logger)
	adminHandlers := handlers.NewAdminHandlers(authService, timerService, logger)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)
	throttle := middleware.NewThrottleMiddleware(cfg.RateLimit.PublicPerSec, cfg.RateLimit.PublicBurst)

	router := setupRouter(cfg, store, clockHandlers, adminHandlers, authMiddleware, throttle, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initStore(cfg *config.Config, logger *logrus.Logger) (repository.TimerStore, error) {
	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		return repository.NewPostgresStore(cfg.Store.DatabaseURL, logger)
	case "sqlite":
		return repository.NewSQLiteStore(cfg.Store.File, logger)
	case "dynamo":
		client, err := initDynamoDB(cfg, logger)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoStore(client, cfg.Store.DynamoDB.TableName, logger)
	case "memory":
		logger.Warn("Using in-memory timer store, settings will not survive restarts")
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func initRateLimit(cfg *config.Config, logger *logrus.Logger) (ratelimit.Limiter, ratelimit.FailureCounter) {
	if cfg.RateLimit.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Using Redis rate limit backend")
		return ratelimit.NewRedisLimiter(client, logger), ratelimit.NewRedisFailureCounter(client)
	}

	limiter := ratelimit.NewMemoryLimiter(logger)
	maxAge := cfg.RateLimit.LoginWindow
	if cfg.RateLimit.RefreshWindow > maxAge {
		maxAge = cfg.RateLimit.RefreshWindow
	}
	limiter.StartSweeper(cfg.RateLimit.SweepInterval, maxAge)
	return limiter, ratelimit.NewMemoryFailureCounter()
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Store.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.Store.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.Store.DynamoDB.Endpoint,
						SigningRegion: cfg.Store.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func setupRouter(
	cfg *config.Config,
	store repository.TimerStore,
	clockHandlers *handlers.ClockHandlers,
	adminHandlers *handlers.AdminHandlers,
	authMiddleware *middleware.AuthMiddleware,
	throttle *middleware.ThrottleMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.WithError(err).Error("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api").Subrouter()

	api.Handle("/clock-out", throttle.Throttle(http.HandlerFunc(clockHandlers.GetDefault))).Methods("GET", "OPTIONS")
	api.Handle("/clock-out/{slug}", throttle.Throttle(http.HandlerFunc(clockHandlers.GetBySlug))).Methods("GET", "OPTIONS")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/login", adminHandlers.Login).Methods("POST", "OPTIONS")
	admin.HandleFunc("/refresh", adminHandlers.Refresh).Methods("POST", "OPTIONS")
	admin.Handle("/set-time", authMiddleware.RequireTenant(http.HandlerFunc(adminHandlers.SetTime))).Methods("POST", "OPTIONS")

	router.HandleFunc("/share/{slug}", clockHandlers.Share).Methods("GET")

	return router
}
