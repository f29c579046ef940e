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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/catalog"
	"github.com/victor-muriuki/pos-api/internal/checkout"
	"github.com/victor-muriuki/pos-api/internal/common"
	"github.com/victor-muriuki/pos-api/internal/config"
	"github.com/victor-muriuki/pos-api/internal/document"
	"github.com/victor-muriuki/pos-api/internal/events"
	"github.com/victor-muriuki/pos-api/internal/health"
	"github.com/victor-muriuki/pos-api/internal/notify"
	"github.com/victor-muriuki/pos-api/internal/obs"
	"github.com/victor-muriuki/pos-api/internal/ratelimit"
	"github.com/victor-muriuki/pos-api/internal/resilience"
	"github.com/victor-muriuki/pos-api/internal/session"
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

	// Redis is optional: without it the catalog cache, idempotency and rate
	// limiting middlewares degrade to pass-through.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Msg("ping redis, continuing without cache")
			redisClient = nil
		}
		cancel()
	}

	backendBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("inventory-backend").
		WithLogger(logger)
	readClient := resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.BackendTimeout},
		Breaker:     backendBreaker,
		BaseBackoff: cfg.BackendBaseBackoff,
		MaxAttempts: cfg.BackendMaxRetries,
	}
	// Sale submissions and quotation emails never retry: a lost response
	// must surface as a failure, not a second POST.
	writeClient := resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.BackendTimeout},
		Breaker:     backendBreaker,
		MaxAttempts: 1,
	}

	var catalogCache *catalog.Cache
	if redisClient != nil {
		catalogCache = catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	}
	catalogSvc := &catalog.Service{
		Source: catalog.HTTPSource{BaseURL: cfg.BackendBaseURL, Client: readClient},
		Cache:  catalogCache,
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	eventLog := events.NewMemoryStore(envInt("EVENT_LOG_CAPACITY", 1024))
	bus := &events.Bus{
		Store:     eventLog,
		Notifiers: []events.Notifier{notify.LogNotifier{Logger: logger}},
	}
	eventsHandler := events.Handler{Store: eventLog}

	// A settled sale changes stock on the backend; drop the cached list so
	// the next read refetches.
	stopInvalidation := catalogSvc.InvalidateOnSettlement(context.Background(), bus)
	defer stopInvalidation()

	holder := &session.Holder{Events: bus}
	sessionHandler := session.Handler{Holder: holder}

	cartSvc := &cart.Service{TTL: cfg.CartTTL}
	cartHandler := &cart.Handler{Svc: cartSvc, Catalog: catalogSvc}

	committer := &checkout.Committer{
		Carts:    cartSvc,
		Backend:  checkout.HTTPSubmitter{BaseURL: cfg.BackendBaseURL, Client: writeClient},
		Events:   bus,
		Currency: cfg.Currency,
	}
	checkoutHandler := &checkout.Handler{Svc: committer}

	docSvc := &document.Service{
		Shop: document.ShopInfo{
			Name:    cfg.ShopName,
			Address: cfg.ShopAddress,
			Email:   cfg.ShopEmail,
			Footer:  document.DefaultFooter(),
		},
		Currency:   cfg.Currency,
		Carts:      cartSvc,
		Committer:  committer,
		Sender:     notify.Client{BaseURL: cfg.BackendBaseURL, HTTP: writeClient},
		Events:     bus,
		ClearDelay: cfg.ReceiptClear,
	}
	docHandler := &document.Handler{Svc: docSvc}

	idem := common.Idem{R: redisClient, TTL: envDurationMillis("IDEMPOTENCY_TTL_MS", 600000)}
	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: time.Minute,
			Max:    envInt("RATE_LIMIT_PER_MINUTE", 300),
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter")
		},
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
	r.Use(holder.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker: health.Probe{
			BackendURL: cfg.BackendBaseURL,
			HTTPClient: &http.Client{Timeout: cfg.BackendTimeout},
			Redis:      redisClient,
		},
		BackendTimeout: envDurationMillis("HEALTH_READY_BACKEND_TIMEOUT_MS", 500),
		RedisTimeout:   envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limiter.Middleware)

		v.Get("/items", catalogHandler.List)
		v.Get("/items/by-code/{code}", catalogHandler.ByBarcode)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{id}", cartHandler.Get)
			c.Get("/{id}/commit/state", checkoutHandler.State)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Post("/{id}/scan", cartHandler.Scan)
				g.Patch("/{id}/items/{itemId}", cartHandler.UpdateItem)
				g.Delete("/{id}/items/{itemId}", cartHandler.RemoveItem)
				g.Delete("/{id}/items", cartHandler.Clear)
				g.Post("/{id}/commit", checkoutHandler.Commit)
				g.Post("/{id}/commit/ack", checkoutHandler.Acknowledge)
			})
			c.Post("/{id}/quotation", docHandler.Quotation)
			c.With(idem.Middleware).Post("/{id}/send-quotation", docHandler.SendQuotation)
		})

		v.Route("/transactions/{txID}", func(tx chi.Router) {
			tx.Get("/", checkoutHandler.Snapshot)
			tx.Get("/receipt", docHandler.Receipt)
			tx.Post("/print", docHandler.Print)
		})

		v.Route("/session", func(s chi.Router) {
			s.Get("/", sessionHandler.Current)
			s.Put("/", sessionHandler.Set)
			s.Delete("/", sessionHandler.Delete)
		})

		v.Get("/events", eventsHandler.Recent)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
