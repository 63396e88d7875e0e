// Command server wires the registry together: postgres-backed domain
// services, the admin HTTP API, the maintenance scheduler, and the
// notification publisher. Business logic lives under internal/.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sr13dr31/belyispisok/db/migrations"
	adminhandler "github.com/sr13dr31/belyispisok/internal/admin/handler"
	adminservice "github.com/sr13dr31/belyispisok/internal/admin/service"
	adminuserstore "github.com/sr13dr31/belyispisok/internal/admin/store/adminuser"
	appealservice "github.com/sr13dr31/belyispisok/internal/appeal/service"
	appealstore "github.com/sr13dr31/belyispisok/internal/appeal/store/appeal"
	"github.com/sr13dr31/belyispisok/internal/audit"
	auditstore "github.com/sr13dr31/belyispisok/internal/audit/store/entry"
	"github.com/sr13dr31/belyispisok/internal/cipher"
	"github.com/sr13dr31/belyispisok/internal/convstate"
	employmentservice "github.com/sr13dr31/belyispisok/internal/employment/service"
	employmentstore "github.com/sr13dr31/belyispisok/internal/employment/store/employment"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	companystore "github.com/sr13dr31/belyispisok/internal/identity/store/company"
	workerstore "github.com/sr13dr31/belyispisok/internal/identity/store/worker"
	"github.com/sr13dr31/belyispisok/internal/notify"
	"github.com/sr13dr31/belyispisok/internal/platform/config"
	"github.com/sr13dr31/belyispisok/internal/platform/httpserver"
	"github.com/sr13dr31/belyispisok/internal/platform/logger"
	"github.com/sr13dr31/belyispisok/internal/platform/metrics"
	"github.com/sr13dr31/belyispisok/internal/platform/postgres"
	"github.com/sr13dr31/belyispisok/internal/platform/redis"
	reviewservice "github.com/sr13dr31/belyispisok/internal/review/service"
	reviewstore "github.com/sr13dr31/belyispisok/internal/review/store/review"
	"github.com/sr13dr31/belyispisok/internal/scheduler"
	"github.com/sr13dr31/belyispisok/pkg/platform/middleware/requestid"
	"github.com/sr13dr31/belyispisok/pkg/platform/middleware/requesttime"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	documentCipher, err := cipher.New(cfg.PassportSecret, cfg.PassportSecretPrevious)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var states convstate.Store = convstate.NewMemoryStore()
	if redisClient != nil {
		defer redisClient.Close()
		states = convstate.NewRedisStore(redisClient.Client)
		log.Info("conversation state store: redis")
	} else {
		log.Warn("conversation state store: in-process memory, states do not survive restarts")
	}

	var notifier notify.Notifier = notify.LogNotifier{Logger: log}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	m := metrics.New()
	txRunner := tx.NewRunner(db)

	identity := identityservice.New(workerstore.NewPostgresStore(db), companystore.NewPostgresStore(db),
		documentCipher, m, log)
	employments := employmentservice.New(employmentstore.NewPostgresStore(db), identity, identity,
		txRunner, notifier, m, log)
	reviews := reviewservice.New(reviewstore.NewPostgresStore(db), employments, identity, notifier, m, log)
	appeals := appealservice.New(appealstore.NewPostgresStore(db), reviews, identity, identity,
		txRunner, notifier, cfg.AdminActorIDs, m, log)
	auditor := audit.NewPublisher(auditstore.NewPostgresStore(db))
	tokens := adminservice.NewTokenIssuer(cfg.AdminJWTSecret, "belyispisok")
	admin := adminservice.New(adminuserstore.NewPostgresStore(db), identity, employments, reviews, appeals,
		auditor, txRunner, notifier, tokens, log)

	router := chi.NewRouter()
	router.Use(requestid.Middleware, requesttime.Middleware)
	router.Get("/healthz", healthHandler(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/admin/api", adminhandler.New(admin, log).Routes())

	srv := httpserver.New(cfg.Addr, router)
	worker := scheduler.New(cfg.MaintenanceInterval, employments, appeals, states, m, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := worker.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func healthHandler(db interface{ PingContext(context.Context) error }, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
