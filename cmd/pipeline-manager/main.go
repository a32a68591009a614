// cmd/pipeline-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsclients "ticket-router/internal/common/aws"
	"ticket-router/internal/common/config"
	"ticket-router/internal/common/database"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/common/observability"
	"ticket-router/internal/embedding"
	"ticket-router/internal/models"
	"ticket-router/internal/pipeline"
	"ticket-router/internal/reasoning"
	aggregatemetadata "ticket-router/internal/stages/aggregate-metadata"
	normalizequery "ticket-router/internal/stages/normalize-query"
	"ticket-router/internal/stages/notify"
	retrievererank "ticket-router/internal/stages/retrieve-rerank"
	selectassignee "ticket-router/internal/stages/select-assignee"
	"ticket-router/internal/vectorstore"
	"ticket-router/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// retryWithBackoff retries an operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			if attempt > 1 {
				log.Info("Operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		if attempt < maxRetries {
			log.Warn("Operation failed, retrying",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("retryIn", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline manager",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	obs := observability.New("pipeline-manager")
	defer obs.Shutdown()

	// Redis backs the progress tracker and, by default, the employee index.
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var initErr error
		redisClient, initErr = database.NewRedis(cfg.Database.Redis)
		if initErr != nil {
			return initErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return redisClient.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "redis-connect")
	if err != nil {
		zapLog.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "elasticsearch":
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var initErr error
			esClient, initErr = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if initErr != nil {
				return initErr
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "elasticsearch-connect")
		if err != nil {
			zapLog.Fatal("Failed to connect to Elasticsearch", zap.Error(err))
		}
		store = vectorstore.NewElasticStore(esClient.Client, cfg.VectorStore, log)
	default:
		store = vectorstore.NewRedisStore(redisClient.Client, cfg.VectorStore, log)
	}
	zapLog.Info("Vector store initialized", zap.String("backend", cfg.VectorStore.Backend))

	embedder, err := embedding.NewClient(cfg.APIs.Embedding, cfg.VectorStore.Dimension, log)
	if err != nil {
		zapLog.Fatal("Failed to create embedding client", zap.Error(err))
	}

	reasoner, err := reasoning.NewGenAIClient(cfg.APIs.Reasoning, log)
	if err != nil {
		zapLog.Fatal("Failed to create reasoning client", zap.Error(err))
	}

	ctx := context.Background()
	sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("Failed to create SES client", zap.Error(err))
	}
	snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("Failed to create SNS client", zap.Error(err))
	}

	reg, err := registry.LoadRegistry(cfg.Pipeline.RegistryPath)
	if err != nil {
		zapLog.Fatal("Failed to load stage registry",
			zap.String("path", cfg.Pipeline.RegistryPath),
			zap.Error(err))
	}
	zapLog.Info("Stage registry loaded",
		zap.String("version", reg.Version),
		zap.Int("stages", len(reg.Stages)))

	retrieveCfg := &retrievererank.Config{
		KNNLimit:  cfg.VectorStore.KNNLimit,
		Dimension: cfg.VectorStore.Dimension,
	}

	stages := pipeline.Stages{
		Aggregate: aggregatemetadata.NewHandler(store, log),
		Normalize: normalizequery.NewHandler(reasoner, log),
		Retrieve:  retrievererank.NewHandler(retrieveCfg, store, embedder, reasoner, log),
		Select:    selectassignee.NewHandler(reasoner, log),
		Notify:    notify.NewHandler(notify.FromNotificationConfig(cfg.Notifications), sesClient, snsClient, log),
	}

	progressTTL := time.Duration(cfg.Pipeline.ProgressTTL) * time.Second
	progress := pipeline.NewRedisProgress(redisClient.Client, progressTTL, log)

	orchestrator, err := pipeline.New(cfg.Pipeline, stages, progress, obs, reg, log)
	if err != nil {
		zapLog.Fatal("Failed to start pipeline", zap.Error(err))
	}

	srv := newServer(cfg, orchestrator, redisClient, zapLog)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	zapLog.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("HTTP server shutdown error", zap.Error(err))
	}

	orchestrator.Shutdown()
	zapLog.Info("Pipeline manager stopped")
}

func newServer(cfg *config.Config, orchestrator *pipeline.Orchestrator, redisClient *database.RedisClient, zapLog *zap.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /tickets", func(w http.ResponseWriter, r *http.Request) {
		var ticket models.Ticket
		if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		handle, err := orchestrator.Submit(ticket)
		if err != nil {
			zapLog.Warn("Ticket rejected at submission", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"ticketId": handle.TicketID})
	})

	mux.HandleFunc("GET /tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		progress, err := redisClient.Client.HGetAll(r.Context(), fmt.Sprintf("ticket:progress:%s", id)).Result()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "progress lookup failed"})
			return
		}
		if len(progress) == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown ticket"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ticketId": id, "progress": progress})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": cfg.App.Name,
		})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	return &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
