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

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/auth"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/config"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/handler"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/middleware"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/proxy"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/session"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start the dashboard API server. Each dashboard creates a session and
gets its own synthetic and remote providers.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	cfg, logger := a.cfg, a.logger
	defer logger.Sync()

	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Starting dashboard server",
		zap.String("port", cfg.Server.Port),
		zap.String("default_source", cfg.Provider.Default),
		zap.String("controller_url", cfg.Remote.BaseURL),
	)

	// Create Prometheus registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	providerMetrics := provider.NewMetrics(registry)
	activeSessions := promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "brewing_dashboard",
		Name:      "sessions_active",
		Help:      "Number of live dashboard sessions",
	})

	factory, err := newSelectorFactory(cfg, logger, providerMetrics)
	if err != nil {
		return err
	}

	sessions := session.NewManager(factory, cfg.Session.TTL, logger, session.WithActiveGauge(activeSessions))

	router, err := newRouter(cfg, logger, registry, sessions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, cfg.Session.SweepInterval)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited properly")
	return nil
}

// newRouter wires middleware, public routes and the session-protected API
func newRouter(cfg *config.Config, logger *zap.Logger, registry *prometheus.Registry, sessions *session.Manager) (*mux.Router, error) {
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	authMiddleware := auth.NewAuthMiddleware(jwtManager, sessions, logger)

	corsMiddleware := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins, logger)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger)
	metricsMiddleware := middleware.NewMetricsMiddleware(registry)

	controllerProxy, err := proxy.NewControllerProxy(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller proxy: %w", err)
	}

	router := mux.NewRouter()

	// Preflight requests must match a route for the middleware chain to run;
	// the CORS middleware answers them.
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Use(corsMiddleware.EnableCORS)
	router.Use(loggingMiddleware.LogRequest)
	router.Use(metricsMiddleware.CollectMetrics)

	health := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}
	router.HandleFunc("/health", health).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/health", health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	public := router.PathPrefix("/api/v1").Subrouter()
	handler.NewSessionHandler(sessions, jwtManager, logger).RegisterRoutes(public)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(authMiddleware.Authenticate)

	handler.NewDashboardHandler(logger).RegisterRoutes(apiV1)
	handler.NewStreamHandler(corsMiddleware.Allowed, logger).RegisterRoutes(apiV1)
	apiV1.Handle("/controller/data", controllerProxy)

	return router, nil
}
