package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/cache"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/fitness/api"
	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/store"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"
)

const (
	maxRequestBodyBytes  = 1 << 20
	sessionsCleanupEvery = time.Hour
	snapshotCacheSizeMB  = 8
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config        *config.Config
	store         store.Store
	snapshotCache cache.Cache

	redisClient   *redis.Client
	loginChecker  *auth.LoginChecker
	authService   *auth.Service
	csrf          *auth.CSRF
	cookies       auth.SessionCookies
	adminUsername string

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	AdminUsername           string
	AdminPasswordHash       string
	SessionSecret           string
	RedisPassword           string
	HoneycombTracingEnabled bool
	// Store overrides the configured storage backend when set.
	Store store.Store
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fittrack-backend")
	if err != nil {
		return nil, fmt.Errorf("tracing setup: %w", err)
	}

	fitnessStore := params.Store
	if fitnessStore == nil {
		fitnessStore, err = store.Open(ctx, store.ParamsFromConfig(cfg, params.HoneycombTracingEnabled))
		if err != nil {
			otelShutdown()
			return nil, fmt.Errorf("open %s store: %w", cfg.StorageBackend, err)
		}
	}

	promRegistry := metrics.SetupPrometheus(store.MetricsCollector(fitnessStore))
	metricsManager := metrics.NewManager("fittrack", "server", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	if params.HoneycombTracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	sessionTTL := cfg.SessionTTL.Duration
	if sessionTTL <= 0 {
		sessionTTL = auth.DefaultTTL
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, sessionTTL, rdb)
	go func() {
		ticker := time.NewTicker(sessionsCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authService.ScanAndClean(ctx)
			}
		}
	}()

	return &Server{
		config: cfg,
		store:  fitnessStore,
		snapshotCache: cache.NewSnapshotCache(
			snapshotCacheSizeMB,
			time.Duration(cfg.SnapshotCacheTTLSeconds)*time.Second,
		),

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(sessionTTL, rdb),
		csrf:         auth.NewCSRF(params.SessionSecret),
		cookies: auth.SessionCookies{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
			TTL:    sessionTTL,
		},
		adminUsername: params.AdminUsername,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("fittrack-router"))

	authHandler := auth.NewHandler(s.authService, s.csrf, s.cookies, s.metricsManager)
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	loginRateLimit := middleware.RateLimit(
		reqRateLimiter,
		"login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	)
	r.Handle("/login", loginRateLimit(http.HandlerFunc(authHandler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")
	r.HandleFunc("/logout", authHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")

	fitnessHandler := api.NewHandler(s.store, s.snapshotCache, s.metricsManager, s.adminUsername)
	r.HandleFunc("/api/data", fitnessHandler.HandleGetData).Methods("GET", "OPTIONS").Name("data")
	r.HandleFunc("/api/update-food-log", fitnessHandler.HandleUpdateFoodLog).Methods("POST", "OPTIONS").Name("update-food-log")
	r.HandleFunc("/api/update-nutrition", fitnessHandler.HandleUpdateNutrition).Methods("POST", "OPTIONS").Name("update-nutrition")
	r.HandleFunc("/api/log-workout", fitnessHandler.HandleLogWorkout).Methods("POST", "OPTIONS").Name("log-workout")
	r.HandleFunc("/api/sets/{id}", fitnessHandler.HandleDeleteSet).Methods("DELETE", "OPTIONS").Name("delete-set")
	r.HandleFunc("/api/update-user", fitnessHandler.HandleUpdateUser).Methods("POST", "OPTIONS").Name("update-user")
	r.HandleFunc("/api/user", fitnessHandler.HandleGetUser).Methods("GET", "OPTIONS").Name("user")
	r.HandleFunc("/api/stats", fitnessHandler.HandleGetStats).Methods("GET", "OPTIONS").Name("stats")
	r.HandleFunc("/api/activities", fitnessHandler.HandleListActivities).Methods("GET", "OPTIONS").Name("list-activities")
	r.HandleFunc("/api/activities", fitnessHandler.HandleAddActivity).Methods("POST").Name("new-activity")
	r.HandleFunc("/api/routine/today", fitnessHandler.HandleRoutineToday).Methods("GET", "OPTIONS").Name("routine-today")
	r.HandleFunc("/api/routine/{day}", fitnessHandler.HandleRoutineForDay).Methods("GET", "OPTIONS").Name("routine")
	r.HandleFunc("/api/calendar/{year}/{month}", fitnessHandler.HandleCalendar).Methods("GET", "OPTIONS").Name("calendar")

	// unknown api paths still go through the auth check
	r.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, http.StatusNotFound, "Not found")
	}).Name("unknown-api")

	if s.config.PublicDir != "" {
		log.Debugf("serving static files from: %s", s.config.PublicDir)
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.PublicDir))).Methods("GET", "HEAD").Name("static")
	}

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker, s.cookies)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.CSRFCheck(s.csrf, s.cookies, s.metricsManager))
	r.Use(middleware.DrainAndCloseRequest(maxRequestBodyBytes))

	return r
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:           s.routerSetup(),
		Addr:              ipAndPort,
		WriteTimeout:      time.Minute,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
		}
	}

	if s.store != nil {
		log.Debugln("closing store ...")
		if closeErr := s.store.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close store: %w", closeErr))
		}
		log.Debugln("store closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	for _, e := range multierr.Errors(err) {
		log.Errorf(" >>> graceful shutdown: %s", e)
	}
}
