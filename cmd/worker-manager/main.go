// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cpq-console/internal/api"
	"cpq-console/internal/common/auth"
	"cpq-console/internal/common/camunda"
	"cpq-console/internal/common/config"
	"cpq-console/internal/common/database"
	commonhttp "cpq-console/internal/common/http"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/observability"
	"cpq-console/internal/common/servicenow"
	"cpq-console/internal/journal"
	"cpq-console/internal/lifecycle"
	"cpq-console/internal/notify"
	"cpq-console/internal/search"
	"cpq-console/internal/store"
	"cpq-console/internal/wizard"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting cpq-console",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("OpenTelemetry exporter unavailable, continuing without it", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Migrate(ctx, journal.Migrations...); err != nil {
		zapLog.Fatal("journal migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch ---
	var es *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			return err
		}
		return es.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Backend ---
	var refresher auth.TokenSource
	if cfg.Auth.KeycloakEnabled() {
		refresher = auth.NewKeycloakTokenSource(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
	}
	tokens := auth.NewChainTokenSource(auth.NewKVTokenSource(redis, cfg.Backend.TokenKey), refresher, logger.Component(log, "auth"))

	backend := servicenow.NewClient(
		cfg.Backend.BaseURL,
		commonhttp.NewClient(config.GetDuration(cfg.Backend.Timeout), cfg.Backend.MaxRetries),
		tokens,
		log,
	)

	st := store.New(backend, store.Options{
		Slice: store.SliceOptions{
			PageSize:       cfg.Dashboard.PageSize,
			SearchDebounce: config.GetDuration(cfg.Dashboard.SearchDebounce),
		},
		Cache:    redis,
		CacheTTL: config.GetSeconds(cfg.Wizard.ReferenceCacheTTL),
	}, log)
	defer st.Close()

	notifier, err := notify.FromConfig(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notification channels failed", zap.Error(err))
	}

	journalRepo := journal.NewRepository(pg.DB, log)
	statuses := lifecycle.NewService(st.Catalogs, st.Categories, st, notifier, log)
	sessions := api.NewSessionRegistry(config.GetSeconds(cfg.Wizard.SessionIdleTimeout), obs, log)

	deps := api.Deps{
		Store:     st,
		Lifecycle: statuses,
		Sessions:  sessions,
		Drafts: func(owner string) wizard.DraftStore {
			return wizard.NewRedisDraftStore(redis, cfg.Wizard.DraftKey, owner, config.GetSeconds(cfg.Wizard.DraftTTL))
		},
		Journal:       journalRepo,
		Notifier:      notifier,
		Processes:     zeebe,
		Observability: obs,
		Wizard:        cfg.Wizard,
		Dashboard:     cfg.Dashboard,
		Checks: []api.HealthCheck{
			{Name: "postgres", Check: pg.Ping},
			{Name: "redis", Check: redis.Ping},
			{Name: "elasticsearch", Check: es.Ping},
			{Name: "zeebe", Check: zeebe.HealthCheck},
		},
		Logger: log,
	}
	if cfg.Dashboard.SearchIndexing {
		deps.Search = search.NewIndex(es, log)
	}
	server := api.NewServer(deps)

	if cfg.Dashboard.SearchIndexing {
		go func() {
			counts, err := server.Reindex(ctx)
			if err != nil {
				zapLog.Warn("Initial lookup indexing failed", zap.Error(err))
				return
			}
			zapLog.Info("Lookup index primed", zap.Any("documents", counts))
		}()
	}

	go sessions.Run(ctx, time.Minute)

	// --- Workers ---
	workers := registerWorkers(cfg, zeebe, workerDeps{
		store:     st,
		lifecycle: statuses,
		sources:   server.Sources(),
		journal:   journalRepo,
		notifier:  notifier,
	}, log, zapLog)
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- HTTP ---
	apiServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.HTTP.MetricsAddress, Handler: metricsMux}

	for name, srv := range map[string]*http.Server{"api": apiServer, "metrics": metricsServer} {
		go func(name string, srv *http.Server) {
			zapLog.Info("HTTP server listening", zap.String("server", name), zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("HTTP server failed", zap.String("server", name), zap.Error(err))
				stop()
			}
		}(name, srv)
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Metrics server shutdown failed", zap.Error(err))
	}

	zapLog.Info("cpq-console stopped gracefully")
}
