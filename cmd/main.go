package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"product-service/internal/api"
	"product-service/internal/catalog"
	"product-service/internal/config"
	"product-service/internal/logger"
	"product-service/internal/metrics"
	"product-service/internal/orders"
	"product-service/internal/store"
)

const (
	defaultAppName = "ProductCatalogService" // App name for logger
)

func main() {
	if err := godotenv.Load(); err != nil {
		// The application can still proceed if environment variables are set in other ways.
		log.Info().Msg(".env file not found, relying on system environment variables")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("error loading configuration")
	}
	lg := logger.New(logger.Options{
		ServiceName: defaultAppName,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
	lg.Info().Str("app_env", cfg.AppEnv).Str("log_level", cfg.LogLevel).Msg("starting service")

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to initialize database connection")
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		lg.Fatal().Err(err).Msg("failed to ping database")
	}
	lg.Info().Msg("database connection established")
	pg := store.NewPostgres(db)

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(reg)
	catalogMetrics := metrics.NewCatalogMetrics(reg)

	// --- Catalog services ---
	products, media, feedback := pg.Products(), pg.Media(), pg.Feedback()
	covers := catalog.NewCoverImageResolver(catalog.NewStoreMediaLookup(media))
	orderClient := orders.NewClient(orders.Config{
		BaseURL:      cfg.OrderService.URL,
		Timeout:      cfg.OrderService.Timeout,
		MinRequests:  cfg.OrderService.BreakerMinRequests,
		FailureRatio: cfg.OrderService.BreakerFailureRatio,
		OpenTimeout:  cfg.OrderService.BreakerOpenTimeout,
	}, catalogMetrics)

	services := api.Services{
		Products:    catalog.NewProductService(products, covers),
		Media:       catalog.NewMediaService(media, products),
		Feedback:    catalog.NewFeedbackService(feedback, products),
		Aggregator:  catalog.NewFeedbackAggregator(feedback),
		Recommender: catalog.NewRecommendationEngine(products, orderClient, covers, catalogMetrics),
		Chat:        catalog.NewChatResponder(products, cfg.Chat.About, cfg.Chat.Promotions),
	}

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, lg, cfg.HttpServer.TimeoutRequest, httpMetrics)
	registerHealthCheck(httpRouter, pg)
	httpRouter.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	api.NewHTTPHandler(services, cfg.DefaultActor).RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		lg.Info().Str("port", cfg.HttpServer.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal().Err(err).Msg("HTTP server ListenAndServe error")
		}
		lg.Info().Msg("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(lg, api.NewGRPCHandler(services))
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		lg.Fatal().Err(err).Str("port", cfg.GrpcServer.Port).Msg("failed to listen for gRPC")
	}

	go func() {
		lg.Info().Str("port", cfg.GrpcServer.Port).Msg("gRPC server listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			lg.Fatal().Err(err).Msg("gRPC server Serve error")
		}
		lg.Info().Msg("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(lg, httpServer, grpcServer, pg, shutdownComplete)

	<-shutdownComplete
	lg.Info().Msg("service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux, lg zerolog.Logger, timeout time.Duration, m *metrics.HTTPMetrics) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.Middleware(lg))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(timeout))
	router.Use(m.Middleware)
}

func registerHealthCheck(router *chi.Mux, pg *store.Postgres) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := pg.Ping(ctx); err != nil {
			dbStatus = "unhealthy"
			logger.FromContext(r.Context()).Warn().Err(err).Msg("health check DB ping failed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200, but payload indicates detailed status
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
}

func setupGRPCServer(lg zerolog.Logger, handler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(api.UnaryLoggingInterceptor(lg)))

	api.RegisterRecommendationServer(s, handler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	lg.Info().Str("service", api.RecommendationServiceName).Msg("gRPC services registered")

	return s
}

func waitForShutdown(
	lg zerolog.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	pg *store.Postgres,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	lg.Info().Str("signal", receivedSignal.String()).Msg("starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// GracefulStop waits for in-flight RPCs; it is raced against shutdownCtx below.
	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Warn().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		lg.Info().Msg("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		lg.Info().Msg("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		lg.Warn().Err(shutdownCtx.Err()).Msg("gRPC graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	if err := pg.Close(); err != nil {
		lg.Warn().Err(err).Msg("error closing database connection")
	}
	lg.Info().Msg("graceful shutdown sequence completed")
}
