package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Billy-Davies-2/esports-draft/internal/config"
	"github.com/Billy-Davies-2/esports-draft/internal/dal"
	grpcserver "github.com/Billy-Davies-2/esports-draft/internal/grpc"
	"github.com/Billy-Davies-2/esports-draft/internal/handlers"
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/metrics"
	"github.com/Billy-Davies-2/esports-draft/internal/pricing"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
	"github.com/Billy-Davies-2/esports-draft/internal/service"
	"github.com/Billy-Davies-2/esports-draft/internal/sessions"
)

type closer interface {
	Close()
}

func main() {
	// Initialize logger first
	logger.Init()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)

	logger.Info("Starting esports draft microservice", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataStore := openStore(cfg)
	defer dataStore.Close()

	upstream := openBroker(cfg)
	defer upstream.Close()
	// Handlers and gRPC see local subscribers; publishes fan out through NATS
	events := pubsub.NewWithUpstream(upstream)

	sessionStore := openSessions(cfg)
	defer sessionStore.Close()

	m := metrics.New()
	svc := service.New(dataStore, sessionStore, service.Options{
		Events:  events,
		Metrics: m,
	})
	defer svc.Close()

	var source pricing.Source
	switch cfg.PricingSource() {
	case "mock":
		logger.Info("Using mock pricing source for local development")
		source = pricing.NewMockSource()
	default:
		ch, err := pricing.NewClickHouseSource(cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.Username, cfg.ClickHouse.Password)
		if err != nil {
			logger.Error("Failed to connect to ClickHouse", "error", err)
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		logger.Info("Connected to ClickHouse", "addr", cfg.ClickHouse.Addr)
		source = ch
	}
	defer source.Close()

	syncer := pricing.NewSyncer(dataStore, source, svc, cfg.Pricing.SyncInterval)
	go syncer.Run(ctx)

	// Start gRPC server
	grpcServer := grpc.NewServer()
	grpcserver.Register(grpcServer, grpcserver.NewServer(svc, events))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "port", cfg.GRPC.Port, "error", err)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}
		logger.Info("gRPC server starting", "port", cfg.GRPC.Port)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server failed", "error", err)
		}
	}()

	// Setup HTTP routes
	mux := http.NewServeMux()
	handlers.NewAPIHandlers(svc, events, syncer).Register(mux, m)
	mux.Handle("GET /metrics", m.Handler())

	probe := &probes{store: dataStore, nats: upstream, production: !cfg.IsDevelopment()}
	mux.HandleFunc("GET /health", probe.health)
	mux.HandleFunc("GET /healthz", livenessHandler)
	mux.HandleFunc("GET /readyz", probe.readiness)

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Shutdown complete")
}

func openStore(cfg *config.Config) dal.DraftDAL {
	switch cfg.Database.Driver {
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.Database.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.Database.SQLiteFile)
		return store
	case "postgres":
		store, err := dal.NewPostgresDAL(cfg.Database.URL)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres database")
		return store
	default:
		logger.Info("Using in-memory data store")
		return dal.NewMemoryDAL()
	}
}

// brokerConn is the upstream event transport, embedded or remote NATS
type brokerConn interface {
	pubsub.Broker
	closer
	Connected() bool
}

func openBroker(cfg *config.Config) brokerConn {
	// Use embedded NATS in development mode, real NATS in production
	if cfg.IsDevelopment() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATS.Subject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
		return embedded
	}

	logger.Info("Using real NATS JetStream for production")
	remote, err := pubsub.NewNATSPubSub(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		logger.Error("Failed to initialize NATS", "error", err)
		log.Fatalf("Failed to initialize NATS: %v", err)
	}
	logger.Info("Connected to NATS JetStream", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	return remote
}

func openSessions(cfg *config.Config) sessions.Store {
	if cfg.Sessions.Store == "redis" {
		store, err := sessions.NewRedisStore(sessions.RedisOptions{
			Addr:     cfg.Sessions.RedisAddr,
			Password: cfg.Sessions.RedisPassword,
			DB:       cfg.Sessions.RedisDB,
			TTL:      cfg.Sessions.TTL,
		})
		if err != nil {
			logger.Error("Failed to initialize Redis session store", "error", err)
			log.Fatalf("Failed to initialize Redis session store: %v", err)
		}
		logger.Info("Using Redis session store", "addr", cfg.Sessions.RedisAddr)
		return store
	}
	logger.Info("Using in-memory session store")
	return sessions.NewMemoryStore()
}

type probes struct {
	store      dal.DraftDAL
	nats       brokerConn
	production bool
}

// health reports the state of every dependency
func (p *probes) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	// Check database connectivity
	if _, err := p.store.ListRounds(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]any{
			"status": "healthy",
		}
	}

	// Check NATS connectivity (only in production)
	if p.production {
		if p.nats.Connected() {
			checks["nats"] = map[string]any{"status": "healthy"}
		} else {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks["nats"] = map[string]any{"status": "disconnected"}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// livenessHandler handles Kubernetes liveness probes
// Returns 200 if the application is running (doesn't check dependencies)
func livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// readiness checks the database, which every request depends on
func (p *probes) readiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := p.store.ListRounds(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "not_ready",
			"reason":    "database_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
