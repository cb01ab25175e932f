package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/motocaz/xtractor-backend/internal/billing"
	"github.com/motocaz/xtractor-backend/internal/handlers"
	"github.com/motocaz/xtractor-backend/internal/identity"
	"github.com/motocaz/xtractor-backend/libs/config"
	"github.com/motocaz/xtractor-backend/libs/httpx"
	otelx "github.com/motocaz/xtractor-backend/libs/otel"
	"github.com/motocaz/xtractor-backend/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "xtractor-backend")
	port, err := config.Port("PORT", "8787")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	paymentsToken, err := config.RequiredString("PAYMENTS_ACCESS_TOKEN")
	if err != nil {
		panic(err)
	}
	paymentsEnv, err := config.Enum("PAYMENTS_ENV", billing.EnvSandbox, billing.EnvProduction)
	if err != nil {
		panic(err)
	}
	frontendURL := config.String("FRONTEND_URL", "http://localhost:3000")

	payments, err := billing.NewClient(logger, billing.Config{
		AccessToken:     paymentsToken,
		Environment:     paymentsEnv,
		APIBase:         config.String("PAYMENTS_API_BASE", ""),
		PortalReturnURL: frontendURL,
	})
	if err != nil {
		logger.Error("payments client setup failed", "err", err)
		panic(err)
	}

	identitySecret, err := config.RequiredString("IDENTITY_SECRET_KEY")
	if err != nil {
		panic(err)
	}
	users, err := identity.NewClient(identity.ClientConfig{
		BaseURL:   config.String("IDENTITY_API_URL", "https://api.identity.example.com"),
		SecretKey: identitySecret,
	})
	if err != nil {
		logger.Error("identity client setup failed", "err", err)
		panic(err)
	}

	jwksTTL := config.Int("IDENTITY_JWKS_CACHE_SECONDS", 300)
	if jwksTTL <= 0 {
		jwksTTL = 300
	}
	verifier := identity.NewVerifier(identity.VerifierConfig{
		JWKSURL:  config.String("IDENTITY_JWKS_URL", ""),
		JWKSTTL:  time.Duration(jwksTTL) * time.Second,
		HSSecret: config.String("IDENTITY_JWT_SECRET", "dev-secret"),
	})

	h := handlers.New(payments, users, logger, handlers.Config{
		WebhookSecret:           config.String("PAYMENTS_WEBHOOK_SECRET", ""),
		WebhookToleranceSeconds: config.Int("PAYMENTS_WEBHOOK_TOLERANCE_SECONDS", 300),
		FrontendURL:             frontendURL,
	})

	var readyChecks []runtime.ReadyCheck
	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	// Webhook auth is the provider signature, everything else under auth goes
	// through the bearer verifier.
	mux.HandleFunc("/webhook", h.Webhook)
	mux.HandleFunc("/api/products", h.ListProducts)
	mux.Handle("/test-auth", verifier.Require(http.HandlerFunc(h.TestAuth)))
	mux.Handle("/create-checkout", verifier.Require(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("/api/create-portal-session", verifier.Require(http.HandlerFunc(h.CreatePortalSession)))

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	bodyLimit := int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	requestTimeout := time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   []string{config.String("ALLOWED_ORIGIN", "http://localhost:3000")},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "payments_env", payments.Environment())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
