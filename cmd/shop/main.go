package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/cart"
	"github.com/joao-fontenele/courseshop/internal/catalog"
	"github.com/joao-fontenele/courseshop/internal/config"
	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/gateway"
	"github.com/joao-fontenele/courseshop/internal/httpx"
	"github.com/joao-fontenele/courseshop/internal/messaging"
	"github.com/joao-fontenele/courseshop/internal/orders"
	"github.com/joao-fontenele/courseshop/internal/payments"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8081")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Require("POSTGRES_URL", "REDIS_ADDR", "JWT_SECRET", "BANK_NAME", "BANK_ACCOUNT_NAME", "BANK_ACCOUNT_NUMBER"); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "shop", "0.1.0", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("shop", "0.1.0")
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

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	revoker := auth.NewRedisRevoker(rdb)
	authn := auth.NewMiddleware(tokens, revoker, logger)
	authService := auth.NewService(auth.NewUserRepository(db), tokens, revoker, logger)

	products := catalog.NewProducts(db)
	carts := cart.NewRedisCarts(rdb)
	validator := coupons.NewValidator(coupons.NewRepository(db))

	deps := orders.Deps{
		Repo:     orders.NewOrderRepository(db),
		Products: products,
		Coupons:  validator,
		Carts:    carts,
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
	orderService := orders.NewService(deps, logger)

	storage := payments.NewLocalStorage(cfg.UploadDir, cfg.PublicUploadPrefix)

	authHandler := auth.NewHandler(authService, logger)
	cartHandler := cart.NewHandler(carts, products, logger)
	couponHandler := coupons.NewHandler(validator, logger)
	orderHandler := orders.NewHandler(orderService, logger)
	uploadHandler := payments.NewUploadHandler(orderService, storage, metrics, logger)

	loginLimiter := httpx.NewRateLimiter(10, 5)
	slipLimiter := httpx.NewRateLimiter(cfg.SlipUploadsPerMinute, cfg.SlipUploadsPerMinute)

	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}

	mux.Handle("GET /metrics", metricsHandler)

	route("POST /api/auth/register", authHandler.HandleRegister)
	route("POST /api/auth/login", loginLimiter.Limit(httpx.ClientIP, authHandler.HandleLogin))
	route("POST /api/auth/logout", authn.Authenticate(authHandler.HandleLogout))
	route("GET /api/auth/me", authn.Authenticate(authHandler.HandleMe))

	route("GET /api/cart", authn.Authenticate(cartHandler.HandleGet))
	route("DELETE /api/cart", authn.Authenticate(cartHandler.HandleClear))
	route("POST /api/cart/items", authn.Authenticate(cartHandler.HandleAdd))
	route("PATCH /api/cart/items/{type}/{id}", authn.Authenticate(cartHandler.HandleUpdateQuantity))
	route("DELETE /api/cart/items/{type}/{id}", authn.Authenticate(cartHandler.HandleRemove))

	route("POST /api/coupons/validate", authn.Authenticate(couponHandler.HandleValidate))

	route("POST /api/orders", authn.Authenticate(orderHandler.HandleCreate))
	route("GET /api/orders", authn.Authenticate(orderHandler.HandleList))
	route("GET /api/orders/{id}", authn.Authenticate(orderHandler.HandleGet))
	route("POST /api/orders/{id}/cancel", authn.Authenticate(orderHandler.HandleCancel))
	route("GET /api/orders/{id}/payment", authn.Authenticate(orderHandler.HandleInstructions))
	route("GET /api/orders/{id}/receipt", authn.Authenticate(orderHandler.HandleReceipt))

	route("POST /api/payments/upload-slip", authn.Authenticate(slipLimiter.Limit(auth.UserKey, uploadHandler.HandleUpload)))

	publicRoutes(route, "/api/categories", catalog.NewHandler(catalog.NewRepository(db, catalog.Categories), catalog.Categories, logger).PublicRoutes)
	publicRoutes(route, "/api/ebooks", catalog.NewHandler(catalog.NewRepository(db, catalog.Ebooks), catalog.Ebooks, logger).PublicRoutes)
	publicRoutes(route, "/api/courses", catalog.NewHandler(catalog.NewRepository(db, catalog.Courses), catalog.Courses, logger).PublicRoutes)
	publicRoutes(route, "/api/exams", catalog.NewHandler(catalog.NewRepository(db, catalog.Exams), catalog.Exams, logger).PublicRoutes)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: gateway.CORS(cfg.AllowedOrigins()).Handler(
			otelhttp.NewHandler(mux, "shop", otelhttp.WithSpanNameFormatter(telemetry.SpanName)),
		),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting shop service", "port", cfg.Port)
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

func publicRoutes(route func(string, http.HandlerFunc), base string, routes func(string) map[string]http.HandlerFunc) {
	for pattern, h := range routes(base) {
		route(pattern, h)
	}
}
