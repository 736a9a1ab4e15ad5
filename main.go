package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"ms-reservation/internal/auth"
	"ms-reservation/internal/backend"
	"ms-reservation/internal/clock"
	"ms-reservation/internal/config"
	"ms-reservation/internal/database"
	"ms-reservation/internal/database/migrations"
	"ms-reservation/internal/gateway"
	"ms-reservation/internal/intent"
	"ms-reservation/internal/kafka"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/sse"
	"ms-reservation/internal/wallet"
)

const verifiedTokenTTL = 5 * time.Minute

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, rdb *redis.Client, log *logger.Logger) auth.TokenVerifier {
	var verifier auth.TokenVerifier
	switch {
	case cfg.SkipVerification:
		log.Warn("AUTH", "Token signature verification disabled, trusting bearer claims")
		verifier = auth.UnverifiedVerifier{}
	case cfg.OIDCIssuer == "":
		log.Fatal("CONFIG", "OIDC_ISSUER not set")
	default:
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC verifier: %v", err))
		}
		log.Info("AUTH", fmt.Sprintf("OIDC verifier initialized for %s", cfg.OIDCIssuer))
		verifier = oidcVerifier
	}
	return auth.NewCachedVerifier(verifier, rdb, verifiedTokenTTL)
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger(cfg.Log.Dir)
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	log.Info("APP", "Starting Reservation Gateway initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.Options{Dir: cfg.Database.MigrationsDir, AutoMigrate: true}, log)
		if err := runner.Up(); err != nil {
			log.Fatal("MIGRATION", fmt.Sprintf("Failed to run migrations: %v", err))
		}
		// not closed: closing the migrator would close bunDB's pool with it
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	httpClient := &http.Client{Timeout: cfg.Backend.Timeout}
	ticketing := backend.NewClient(cfg.Backend.TicketingURL, httpClient, log)
	events := backend.NewEventsClient(cfg.Backend.EventsURL, httpClient, log)
	clk := clock.NewSystem()
	emitter := sse.NewOfferEventEmitter()
	replicaID := uuid.NewString()

	var publisher reservation.Publisher = kafka.NoopPublisher{}
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.SubmissionsTopic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SubmissionsTopic, log)
		defer producer.Close()
		publisher = producer

		// every replica reads every submission to refresh its own streams
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.SubmissionsTopic, "ms-reservation-"+replicaID, log)
		defer consumer.Close()
		log.Info("KAFKA", fmt.Sprintf("Kafka producer and consumer initialized for %s", cfg.Kafka.SubmissionsTopic))
	} else {
		log.Warn("KAFKA", "Kafka disabled, submissions are not published")
	}

	tickets := wallet.NewService(wallet.NewStore(bunDB), ticketing, clk, wallet.DefaultMaxAge, log)
	submitter := reservation.NewSubmitter(
		ticketing,
		intent.NewRedisStore(redisClient, cfg.Intent.TTL, clk, log),
		log,
		reservation.WithPublisher(publisher),
		reservation.WithOfferSink(emitter),
		reservation.WithClock(clk),
		reservation.WithLoginURL(cfg.Auth.LoginURL),
		reservation.WithWalletInvalidator(tickets),
		reservation.WithOrigin(replicaID),
	)

	handler := gateway.NewHandler(ticketing, events, submitter, tickets, log,
		gateway.WithEmitter(emitter),
		gateway.WithClock(clk),
		gateway.WithDefaultLocale(cfg.Locale),
		gateway.WithOrigin(replicaID),
		gateway.WithHealthCheck("postgres", func(ctx context.Context) error { return bunDB.PingContext(ctx) }),
		gateway.WithHealthCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	)

	if consumer != nil {
		go func() {
			if err := consumer.Run(ctx, handler.OnSubmission); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Submission consumer stopped: %v", err))
			}
		}()
	}

	log.Info("HTTP", "Setting up router and middleware")
	router := gateway.NewRouter(handler, newVerifier(ctx, cfg.Auth, redisClient, log), gateway.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Session:     auth.SessionOptions{CookieName: cfg.Intent.CookieName, Secure: cfg.Intent.CookieSecure},
	}, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Reservation Gateway running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Reservation Gateway shutdown complete")
	}
}
