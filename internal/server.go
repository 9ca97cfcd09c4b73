package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/knwebagency/backend/internal/admin"
	"github.com/knwebagency/backend/internal/auth"
	"github.com/knwebagency/backend/internal/config"
	"github.com/knwebagency/backend/internal/contact"
	"github.com/knwebagency/backend/internal/dashboard"
	"github.com/knwebagency/backend/internal/db"
	"github.com/knwebagency/backend/internal/geoip"
	"github.com/knwebagency/backend/internal/leads"
	"github.com/knwebagency/backend/internal/middleware"
	"github.com/knwebagency/backend/internal/misc"
	"github.com/knwebagency/backend/internal/offers"
	"github.com/knwebagency/backend/internal/qrcode"
	"github.com/knwebagency/backend/internal/realtime"
	"github.com/knwebagency/backend/internal/settings"
	"github.com/knwebagency/backend/internal/sitemetrics"
	"github.com/knwebagency/backend/internal/telemetry/metrics"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool
	geoIp  *geoip.Api

	redisClient *redis.Client
	authService *auth.Service
	allowList   *auth.AllowList

	notifier        *realtime.Notifier
	dashboardHub    *dashboard.Hub
	dashboardSyncer *dashboard.Syncer

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminEmails             string
	RedisPassword           string
	IpInfoAPIKey            string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "kn_web_agency_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewService(
		auth.NewUsersRepo(dbPool),
		auth.NewSessionCache(auth.DefaultCacheTTL),
		auth.DefaultSessionTTL,
		rdb,
		params.Config.LoginAccountAttemptsPerMin,
	)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	allowList := auth.NewAllowList(params.AdminEmails, params.Config.AllowAllWhenEmptyAllowList)
	if allowList.Size() == 0 {
		log.Warnln("admin allow-list is empty")
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "main-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	s := &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,
		geoIp:       geoip.NewApi(params.IpInfoAPIKey, tracedHttpClient, rdb),

		redisClient: rdb,
		authService: authService,
		allowList:   allowList,

		notifier: realtime.NewNotifier(rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	return s, nil
}

func (s *Server) routerSetup(ctx context.Context) *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)

	miscHandler := misc.NewHandler(s.geoIp, s.versionInfo)
	miscHandler.SetupRoutes(r)

	// repos, shared between public handlers and the dashboard
	contactRepo := contact.NewRepo(s.dbPool, s.notifier)
	leadsRepo := leads.NewRepo(s.dbPool, s.notifier)
	offersRepo := offers.NewRepo(s.dbPool, s.notifier)
	settingsRepo := settings.NewRepo(s.dbPool)
	metricsService := sitemetrics.NewService(sitemetrics.NewRepo(s.dbPool), s.geoIp, s.metricsManager)

	// public api
	contactHandler := contact.NewHandler(contactRepo, s.metricsManager)
	contactRouter := r.PathPrefix("/api/contact").Subrouter()
	contactHandler.SetupPublicRoutes(contactRouter)
	contactRouter.Use(middleware.RateLimit(
		reqRateLimiter, s.metricsManager,
		"contact", s.config.ContactRateLimitAllowedPerMin,
	))

	leadsHandler := leads.NewHandler(leadsRepo, metricsService, s.metricsManager)
	leadsHandler.SetupPublicRoutes(r.PathPrefix("/api/newsletter").Subrouter())

	sitemetrics.NewHandler(metricsService).SetupRoutes(r.PathPrefix("/api/metrics").Subrouter())

	offersHandler := offers.NewHandler(offersRepo)
	offersHandler.SetupPublicRoutes(r.PathPrefix("/api/offers").Subrouter())

	settingsHandler := settings.NewHandler(settingsRepo)
	settingsHandler.SetupPublicRoutes(r.PathPrefix("/api/settings").Subrouter())

	// admin session endpoints, reachable without a session
	adminSessionRouter := r.PathPrefix("/admin/api").Subrouter()
	admin.NewHandler(
		s.authService,
		s.allowList,
		s.metricsManager,
		auth.DefaultSessionTTL,
		s.config.IsProduction(),
	).SetupRoutes(adminSessionRouter)
	adminSessionRouter.Use(middleware.RateLimit(
		reqRateLimiter, s.metricsManager,
		"login", s.config.LoginRateLimitAllowedPerMin,
	))

	// guarded admin area
	s.dashboardHub = dashboard.NewHub(s.metricsManager)
	statsService := dashboard.NewStatsService(contactRepo, leadsRepo, offersRepo, metricsService)
	s.dashboardSyncer = dashboard.NewSyncer(s.redisClient, statsService, s.dashboardHub, s.metricsManager)

	go s.dashboardHub.Run(ctx)
	go s.dashboardSyncer.Run(ctx)

	dashboardHandler := dashboard.NewHandler(statsService, contactRepo, s.dashboardHub)
	dashboardHandler.SetupRoutes(r.PathPrefix("/admin/api/dashboard").Subrouter())

	contactHandler.SetupAdminRoutes(r.PathPrefix("/admin/api/messages").Subrouter())
	leadsHandler.SetupAdminRoutes(r.PathPrefix("/admin/api/leads").Subrouter())
	settingsHandler.SetupAdminRoutes(r.PathPrefix("/admin/api/settings").Subrouter())
	offersHandler.SetupAdminRoutes(r.PathPrefix("/admin/api/offers").Subrouter())
	qrcode.NewHandler(s.config.SiteBaseURL).SetupRoutes(r.PathPrefix("/admin/api/qrcodes").Subrouter())

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	adminGuard := middleware.NewAdminGuard(s.authService, s.allowList)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(adminGuard.Gate())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup(ctx)

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
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

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
