package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/api"
	"github.com/Kerhoff/MenuRater/internal/config"
	"github.com/Kerhoff/MenuRater/internal/events"
	"github.com/Kerhoff/MenuRater/internal/metrics"
	"github.com/Kerhoff/MenuRater/internal/repository"
	"github.com/Kerhoff/MenuRater/internal/repository/memory"
	"github.com/Kerhoff/MenuRater/internal/repository/postgres"
	"github.com/Kerhoff/MenuRater/internal/service"
	"github.com/Kerhoff/MenuRater/internal/session"
	"github.com/Kerhoff/MenuRater/internal/telegram"
	"github.com/Kerhoff/MenuRater/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting MenuRater...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var store repository.Store
	switch cfg.StorageDriver {
	case config.StorageMemory:
		l.Warn("Using in-memory storage; data is lost on restart")
		store = memory.NewStore()
	default:
		db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Migrate(); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}
		store = postgres.NewStore(db.DB)
	}
	defer store.Close()

	// Sessions
	var (
		sessions    session.Store
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient, err = config.NewRedis(ctx, cfg, l)
		if err != nil {
			l.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.SessionTTL)
	} else {
		l.Warn("REDIS_ADDR not set; sessions are kept in memory")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	// Metrics and event sinks
	m := metrics.New()
	publisher := buildPublisher(cfg, m, l)
	defer func() {
		if err := publisher.Close(); err != nil {
			l.WithError(err).Warn("Failed to close event publishers")
		}
	}()

	svc := service.New(store, l, publisher)

	apiServer, err := api.NewServer(svc, sessions, m, l, api.Options{
		SessionTTL:         cfg.SessionTTL,
		CookieSecure:       cfg.CookieSecure,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		l.Fatalf("Failed to create HTTP server: %v", err)
	}

	servers := []*http.Server{{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.MetricsEnabled() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.PrometheusPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			l.Infof("HTTP server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Errorf("HTTP server error on %s: %v", srv.Addr, err)
				stop()
			}
		}(srv)
	}

	l.Info("MenuRater started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.WithError(err).Warnf("Failed to shut down HTTP server on %s", srv.Addr)
		}
	}

	l.Info("MenuRater stopped")
}

// buildPublisher combines the event counter with whichever external sinks are
// configured.
func buildPublisher(cfg *config.Config, m *metrics.Metrics, l *logrus.Logger) events.Publisher {
	sinks := events.Multi{m.Events()}

	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic))
		l.WithField("topic", cfg.KafkaTopic).Info("Publishing events to Kafka")
	}

	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID, l)
		if err != nil {
			l.WithError(err).Warn("Telegram activity feed disabled")
		} else {
			sinks = append(sinks, bot)
		}
	}

	return sinks
}
