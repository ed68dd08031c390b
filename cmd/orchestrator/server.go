package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pangents/orchestrator/api/handlers"
	"github.com/pangents/orchestrator/calllog"
	"github.com/pangents/orchestrator/capabilities"
	"github.com/pangents/orchestrator/config"
	"github.com/pangents/orchestrator/entitlement"
	"github.com/pangents/orchestrator/gateway"
	"github.com/pangents/orchestrator/internal/database"
	"github.com/pangents/orchestrator/internal/metrics"
	"github.com/pangents/orchestrator/internal/server"
	"github.com/pangents/orchestrator/internal/telemetry"
	"github.com/pangents/orchestrator/metering"
	"github.com/pangents/orchestrator/registry"
	"github.com/pangents/orchestrator/workflow"
)

// Server wires the orchestrator's components and manages the HTTP and
// metrics listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	telemetry *telemetry.Providers

	pool     *database.PoolManager
	store    *workflow.Store
	registry *registry.Registry
	checker  *entitlement.IdentityChecker
	emitter  metering.Emitter
	callLog  calllog.Recorder
	gateway  *gateway.Gateway
	runner   *workflow.Runner

	healthHandler     *handlers.HealthHandler
	capabilityHandler *handlers.CapabilityHandler
	workflowHandler   *handlers.WorkflowHandler

	rateLimiterCancel context.CancelFunc
}

// NewServer creates a server from loaded configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers, db *gorm.DB) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		telemetry: providers,
	}

	s.collector = metrics.NewCollector("orchestrator", logger)

	if err := s.initStore(db); err != nil {
		return nil, err
	}
	s.initPipeline()
	s.initHandlers()

	return s, nil
}

func (s *Server) initStore(db *gorm.DB) error {
	poolCfg := database.DefaultPoolConfig()
	if s.cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = s.cfg.Database.MaxOpenConns
	}
	if s.cfg.Database.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = s.cfg.Database.MaxIdleConns
	}
	if s.cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = s.cfg.Database.ConnMaxLifetime
	}

	pool, err := database.NewPoolManager(db, poolCfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to configure connection pool: %w", err)
	}
	s.pool = pool

	store, err := workflow.NewStore(pool.DB(), s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize workflow store: %w", err)
	}
	s.store = store
	return nil
}

// initPipeline builds the invocation pipeline: registry, entitlement,
// metering, call log, gateway, runner.
func (s *Server) initPipeline() {
	s.registry = registry.New(s.logger)
	s.registry.Discover(capabilities.Builders())
	s.logger.Info("capabilities discovered", zap.Int("count", s.registry.Len()))

	s.checker = entitlement.NewIdentityChecker(s.cfg.Identity, s.cfg.Redis, s.collector, s.logger)

	if s.cfg.Metering.CollectorURL != "" {
		s.emitter = metering.NewHTTPEmitter(s.cfg.Metering, s.collector, s.logger)
	} else {
		s.logger.Info("metering collector not configured, usage events discarded")
		s.emitter = metering.Discard{}
	}

	s.callLog = s.buildCallLog()

	s.gateway = gateway.New(s.registry, s.checker, s.emitter, s.logger,
		gateway.WithCallLog(s.callLog),
		gateway.WithMetrics(s.collector),
		gateway.WithNodeTimeout(s.cfg.Gateway.NodeTimeout),
	)

	s.runner = workflow.NewRunner(s.gateway, s.registry, s.collector, s.logger)
}

func (s *Server) buildCallLog() calllog.Recorder {
	switch s.cfg.CallLog.Backend {
	case "identity":
		return calllog.NewIdentityRecorder(s.cfg.CallLog.URL, s.cfg.CallLog.Timeout, s.logger)
	case "mongo":
		rec, err := calllog.NewMongoRecorder(
			s.cfg.CallLog.MongoURI,
			s.cfg.CallLog.MongoDatabase,
			s.cfg.CallLog.MongoCollection,
			s.logger,
		)
		if err != nil {
			s.logger.Warn("mongo call log unavailable, call logging disabled", zap.Error(err))
			return calllog.Disabled{}
		}
		return rec
	default:
		return calllog.Disabled{}
	}
}

func (s *Server) initHandlers() {
	integrations := entitlement.NewIdentityIntegrationResolver(
		s.cfg.Identity.BaseURL,
		s.cfg.Identity.Timeout,
		s.logger,
	)

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("database", s.pool.Ping))

	s.capabilityHandler = handlers.NewCapabilityHandler(s.registry, s.gateway, integrations, s.logger)
	s.workflowHandler = handlers.NewWorkflowHandler(s.store, s.runner, s.registry, integrations, s.logger)
}

// Start brings up the HTTP and metrics listeners.
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("GET /v1/capabilities", s.capabilityHandler.HandleList)
	mux.HandleFunc("GET /v1/capabilities/{id}/schema", s.capabilityHandler.HandleSchema)
	mux.HandleFunc("POST /v1/invoke", s.capabilityHandler.HandleInvoke)
	mux.HandleFunc("POST /v1/ask", s.capabilityHandler.HandleAsk)

	mux.HandleFunc("GET /v1/workflows", s.workflowHandler.HandleList)
	mux.HandleFunc("POST /v1/workflows", s.workflowHandler.HandleCreate)
	mux.HandleFunc("GET /v1/workflows/{id}", s.workflowHandler.HandleGet)
	mux.HandleFunc("PUT /v1/workflows/{id}", s.workflowHandler.HandleUpdate)
	mux.HandleFunc("DELETE /v1/workflows/{id}", s.workflowHandler.HandleDelete)
	mux.HandleFunc("POST /v1/workflows/{id}/run", s.workflowHandler.HandleRun)
	mux.HandleFunc("GET /v1/workflows/{id}/run/stream", s.workflowHandler.HandleRunStream)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/version"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		Identity(s.cfg.JWT, skipAuthPaths, s.logger),
		TenantRateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until a termination signal, then shuts down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops accepting requests, then closes the pipeline back to
// front: listeners, metering queue, entitlement cache, database pool.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	// Drain queued usage events before the process exits.
	if closer, ok := s.emitter.(*metering.HTTPEmitter); ok {
		closer.Close()
	}
	if s.checker != nil {
		if err := s.checker.Close(); err != nil {
			s.logger.Error("entitlement checker shutdown error", zap.Error(err))
		}
	}
	if mongoRec, ok := s.callLog.(*calllog.MongoRecorder); ok {
		if err := mongoRec.Close(ctx); err != nil {
			s.logger.Error("call log shutdown error", zap.Error(err))
		}
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("database pool shutdown error", zap.Error(err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
