package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/catalog"
	"github.com/joao-fontenele/courseshop/internal/config"
	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/gateway"
	"github.com/joao-fontenele/courseshop/internal/messaging"
	"github.com/joao-fontenele/courseshop/internal/orders"
	"github.com/joao-fontenele/courseshop/internal/payments"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8082")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Require("POSTGRES_URL", "REDIS_ADDR", "JWT_SECRET", "BANK_ACCOUNT_NUMBER"); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.EasySlipAPIKey == "" {
		logger.Warn("EASYSLIP_API_KEY is not set, slip analysis will fail")
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "admin", "0.1.0", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("admin", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	authn := auth.NewMiddleware(auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), auth.NewRedisRevoker(rdb), logger)

	orderRepo := orders.NewOrderRepository(db)
	deps := orders.Deps{
		Repo:     orderRepo,
		Products: catalog.NewProducts(db),
		Coupons:  coupons.NewValidator(coupons.NewRepository(db)),
		Metrics:  metrics,
		Bank: orders.BankAccount{
			BankName:      cfg.BankName,
			AccountName:   cfg.BankAccountName,
			AccountNumber: cfg.BankAccountNumber,
		},
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := messaging.NewProducer(brokers, cfg.OrderEventsTopic)
		defer func() { _ = producer.Close() }()
		deps.Events = producer
	}
	orderHandler := orders.NewHandler(orders.NewService(deps, logger), logger)

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	storage := payments.NewLocalStorage(cfg.UploadDir, cfg.PublicUploadPrefix)
	analyzer := payments.NewAnalyzer(
		orderRepo,
		storage,
		payments.NewEasySlip(cfg.EasySlipURL, cfg.EasySlipAPIKey, httpClient),
		payments.NewAnalysisRepository(db),
		cfg.BankAccountNumber,
		metrics,
		logger,
	)
	analysisHandler := payments.NewAnalysisHandler(analyzer, logger)

	mux := http.NewServeMux()
	admin := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(authn.RequireAdmin(h)))
	}

	mux.Handle("GET /metrics", metricsHandler)

	admin("GET /api/admin/orders", orderHandler.HandleAdminList)
	admin("POST /api/admin/orders/bulk", orderHandler.HandleBulk)
	admin("GET /api/admin/orders/{id}", orderHandler.HandleAdminGet)
	admin("PATCH /api/admin/orders/{id}", orderHandler.HandleAdminUpdate)

	admin("GET /api/admin/payments/analyze-slip", analysisHandler.HandleGet)
	admin("POST /api/admin/payments/analyze-slip", analysisHandler.HandleAnalyze)

	adminRoutes(admin, "/api/admin/categories", catalog.NewHandler(catalog.NewRepository(db, catalog.Categories), catalog.Categories, logger).AdminRoutes)
	adminRoutes(admin, "/api/admin/ebooks", catalog.NewHandler(catalog.NewRepository(db, catalog.Ebooks), catalog.Ebooks, logger).AdminRoutes)
	adminRoutes(admin, "/api/admin/courses", catalog.NewHandler(catalog.NewRepository(db, catalog.Courses), catalog.Courses, logger).AdminRoutes)
	adminRoutes(admin, "/api/admin/exams", catalog.NewHandler(catalog.NewRepository(db, catalog.Exams), catalog.Exams, logger).AdminRoutes)
	adminRoutes(admin, "/api/admin/coupons", catalog.NewHandler(catalog.NewRepository(db, catalog.Coupons), catalog.Coupons, logger).AdminRoutes)

	// Slips are payment evidence, so only admins may fetch them.
	uploads := strings.TrimRight(cfg.PublicUploadPrefix, "/")
	files := http.StripPrefix(uploads, http.FileServer(http.Dir(cfg.UploadDir)))
	admin("GET "+uploads+"/", files.ServeHTTP)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: gateway.CORS(cfg.AllowedOrigins()).Handler(
			otelhttp.NewHandler(mux, "admin", otelhttp.WithSpanNameFormatter(telemetry.SpanName)),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting admin service", "port", cfg.Port)
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

func adminRoutes(route func(string, http.HandlerFunc), base string, routes func(string) map[string]http.HandlerFunc) {
	for pattern, h := range routes(base) {
		route(pattern, h)
	}
}
