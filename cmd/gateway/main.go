package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/courseshop/internal/config"
	"github.com/joao-fontenele/courseshop/internal/gateway"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8080")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Require("SHOP_SERVICE_URL", "ADMIN_SERVICE_URL"); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	// Slip uploads and analysis can take a while downstream.
	httpClient := &http.Client{
		Timeout:   60 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	shopProxy := gateway.NewServiceProxy(cfg.ShopServiceURL, httpClient)
	adminProxy := gateway.NewServiceProxy(cfg.AdminServiceURL, httpClient)
	handler := gateway.NewHandler(shopProxy, adminProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", telemetry.WithHTTPRoute(handler.ServeHTTP))
	mux.HandleFunc("/uploads/", telemetry.WithHTTPRoute(handler.ServeHTTP))

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: gateway.CORS(cfg.AllowedOrigins()).Handler(
			otelhttp.NewHandler(mux, "gateway", otelhttp.WithSpanNameFormatter(telemetry.SpanName)),
		),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port, "shop", cfg.ShopServiceURL, "admin", cfg.AdminServiceURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
