package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/your-org/faceaccess/internal/api"
	"github.com/your-org/faceaccess/internal/api/handlers"
	"github.com/your-org/faceaccess/internal/api/ws"
	"github.com/your-org/faceaccess/internal/config"
	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/observability"
	"github.com/your-org/faceaccess/internal/queue"
	"github.com/your-org/faceaccess/internal/recognition"
	"github.com/your-org/faceaccess/internal/registry"
	"github.com/your-org/faceaccess/internal/storage"
	"github.com/your-org/faceaccess/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting face access API", "port", cfg.Server.Port, "backend", cfg.Vision.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	db, err := storage.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if applied, err := db.Migrate(ctx); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	} else if len(applied) > 0 {
		slog.Info("database migrated", "applied", applied)
	}

	checks := map[string]handlers.Check{"postgres": db.Ping}

	// MinIO is optional; without it enrollment images are not archived.
	var (
		archive recognition.ImageArchive
		images  handlers.ImageReader
	)
	if cfg.MinIO.Endpoint != "" {
		minioStore, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		archive, images = minioStore, minioStore
		checks["minio"] = minioStore.Ping
	}

	// Face extraction
	extractor, err := vision.Open(cfg.Vision)
	if err != nil {
		slog.Error("load vision backend", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()
	slog.Info("vision backend ready", "backend", cfg.Vision.Backend, "dim", extractor.Dim())

	reg := registry.New(db, registry.Policy(cfg.Recognition.RefreshPolicy))

	pipelineOpts := []recognition.Option{recognition.WithTolerance(cfg.Recognition.Tolerance)}
	var (
		notifier recognition.Notifier
		hub      *ws.Hub
	)

	// NATS is optional; without it there is no live feed and no cross-replica invalidation.
	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		pipelineOpts = append(pipelineOpts, recognition.WithEventPublisher(producer))
		notifier = producer
		checks["nats"] = func(context.Context) error { return producer.Ping() }

		consumer, err := queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create access consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		hub = ws.NewHub()
		go hub.Run(ctx)

		err = consumer.ConsumeAccess(ctx, consumerName(), func(ctx context.Context, e *models.AccessLogEntry) error {
			hub.Broadcast(handlers.AccessEntryResponse(e))
			return nil
		})
		if err != nil {
			slog.Warn("start access consumer", "error", err)
		}

		if _, err := consumer.SubscribeInvalidations(reg.Invalidate); err != nil {
			slog.Warn("subscribe registry invalidations", "error", err)
		}
	}

	if _, err := reg.Refresh(ctx); err != nil {
		slog.Warn("initial registry load", "error", err)
	} else {
		slog.Info("registry loaded", "entries", reg.Current().Len(), "policy", reg.Policy())
	}

	router := api.NewRouter(api.RouterConfig{
		Store:      db,
		Identifier: recognition.NewPipeline(extractor, db, reg, pipelineOpts...),
		Enroller:   recognition.NewEnroller(extractor, db, reg, archive, notifier),
		Images:     images,
		Hub:        hub,
		Checks:     checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// consumerName is unique per replica so every replica's websocket clients see every entry.
// JetStream consumer names may not contain dots.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return fmt.Sprintf("api-%d", os.Getpid())
	}
	return "api-" + strings.NewReplacer(".", "-", " ", "-", "*", "-", ">", "-").Replace(host)
}
