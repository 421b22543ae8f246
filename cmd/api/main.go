package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tanakrit-dev/backend-pos/internal/catalog"
	"github.com/tanakrit-dev/backend-pos/internal/checkout"
	"github.com/tanakrit-dev/backend-pos/internal/common"
	"github.com/tanakrit-dev/backend-pos/internal/config"
	"github.com/tanakrit-dev/backend-pos/internal/customer"
	"github.com/tanakrit-dev/backend-pos/internal/discount"
	"github.com/tanakrit-dev/backend-pos/internal/events"
	"github.com/tanakrit-dev/backend-pos/internal/health"
	"github.com/tanakrit-dev/backend-pos/internal/lock"
	"github.com/tanakrit-dev/backend-pos/internal/obs"
	"github.com/tanakrit-dev/backend-pos/internal/ratelimit"
	"github.com/tanakrit-dev/backend-pos/internal/receipt"
	"github.com/tanakrit-dev/backend-pos/internal/report"
	"github.com/tanakrit-dev/backend-pos/internal/security"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart {
		runMigrations(cfg, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	db := store.New(pool)

	bus := &events.Bus{Store: db}

	catalogSvc := &catalog.Service{
		Store: db,
		Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	}
	catalogHandler := &catalog.Handler{Service: catalogSvc}

	customerSvc := &customer.Service{Store: db}
	customerHandler := &customer.Handler{Service: customerSvc}

	discountSvc := &discount.Service{
		Store:      db,
		IsNotFound: func(err error) bool { return errors.Is(err, store.ErrNotFound) },
	}
	discountHandler := &discount.Handler{Service: discountSvc, Validate: validator.New()}

	checkoutSvc := &checkout.Service{
		Store:  db,
		Events: bus,
		Log:    logger,
		TaxBps: cfg.TaxBps,
	}
	checkoutHandler := &checkout.Handler{
		Service:   checkoutSvc,
		Catalog:   catalogSvc,
		Customers: customerSvc,
		Discounts: discountSvc,
	}

	receiptHandler := &receipt.Handler{
		Renderer: &receipt.Renderer{Store: db, StoreName: cfg.StoreName},
	}

	reportSvc := &report.Service{
		Store:    db,
		R:        redisClient,
		TodayTTL: cfg.ReportTodayTTL,
		PastTTL:  cfg.ReportPastTTL,
	}
	reportHandler := &report.Handler{Service: reportSvc}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	locker := lock.Locker{R: redisClient}
	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}
	// The sale routes get their own budget keyed by terminal, so registers
	// behind the store's NAT do not share one client-IP window.
	saleLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByTerminal,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("sale rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limiter.Middleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/scan", catalogHandler.Scan)
		v.Get("/products/{id}", catalogHandler.ProductDetail)

		v.Get("/customers", customerHandler.Lookup)
		v.Get("/customers/{id}", customerHandler.Get)
		v.Get("/loyalty/settings", customerHandler.Loyalty)

		v.Route("/discounts", func(d chi.Router) {
			d.Get("/", discountHandler.List)
			d.Post("/", discountHandler.Create)
			d.Patch("/{id}", discountHandler.SetActive)
			d.Post("/validate", discountHandler.ValidateCode)
		})

		v.Route("/sale/{terminal}", func(s chi.Router) {
			s.Use(obs.TerminalMiddleware(func(req *http.Request) string {
				return chi.URLParam(req, "terminal")
			}))
			s.Use(saleLimiter.Middleware)
			s.Get("/", checkoutHandler.Snapshot)
			s.Post("/items", checkoutHandler.AddItem)
			s.Patch("/items/{key}", checkoutHandler.UpdateItem)
			s.Delete("/items/{key}", checkoutHandler.RemoveItem)
			s.Delete("/items", checkoutHandler.ClearCart)
			s.Put("/customer", checkoutHandler.SetCustomer)
			s.Put("/discount", checkoutHandler.SetManualDiscount)
			s.Post("/code", checkoutHandler.ApplyCode)
			s.Delete("/code", checkoutHandler.RemoveCode)
			s.Put("/points", checkoutHandler.SetPoints)
			s.Post("/checkout", checkoutHandler.BeginPayment)
			s.Post("/cancel", checkoutHandler.CancelPayment)
			s.With(idem.Middleware).
				With(commitLock(locker, cfg.CommitLockTTL)).
				Post("/commit", checkoutHandler.Commit)
		})

		v.Get("/receipts/{number}", receiptHandler.Text)
		v.Get("/receipts/{number}/pdf", receiptHandler.PDF)

		v.Get("/reports/daily", reportHandler.Daily)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

// commitLock serialises sale commits per terminal so a double-tap cannot
// submit the same session twice.
func commitLock(locker lock.Locker, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminal := chi.URLParam(r, "terminal")
			if terminal == "" {
				next.ServeHTTP(w, r)
				return
			}
			err := locker.WithLock(r.Context(), lock.CommitKey(terminal), ttl, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				common.JSONError(w, http.StatusConflict, common.CodeCommitInProgress, "another commit is in progress for this terminal", nil)
			}
		})
	}
}

func runMigrations(cfg *config.Config, logger zerolog.Logger) {
	source := envOrDefault("MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.New(source, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrations")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Error().AnErr("source", srcErr).AnErr("db", dbErr).Msg("close migrations")
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("run migrations")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(gotPass), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
