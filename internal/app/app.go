// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/statusboard/api/openapi"
	"github.com/bissquit/statusboard/internal/analytics"
	"github.com/bissquit/statusboard/internal/catalog"
	"github.com/bissquit/statusboard/internal/config"
	"github.com/bissquit/statusboard/internal/identity"
	"github.com/bissquit/statusboard/internal/incidents"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/bissquit/statusboard/internal/pkg/periodic"
	"github.com/bissquit/statusboard/internal/pkg/postgres"
	"github.com/bissquit/statusboard/internal/probe"
	"github.com/bissquit/statusboard/internal/reconcile"
	"github.com/bissquit/statusboard/internal/servermetrics"
	"github.com/bissquit/statusboard/internal/store"
	"github.com/bissquit/statusboard/internal/store/memory"
	storepostgres "github.com/bissquit/statusboard/internal/store/postgres"
	"github.com/bissquit/statusboard/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const statusMetricsInterval = 15 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	repo          store.Repository
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc

	syncer  *reconcile.Syncer
	locker  *reconcile.RedisLocker
	workers []*periodic.Runner
}

// New creates a new application instance. An empty database URL selects the
// in-memory store.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.openStore(); err != nil {
		return nil, err
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	app.metricsCancel = metricsCancel

	if app.db != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	router, err := app.setupRouter(metricsCtx)
	if err != nil {
		app.stopWorkers()
		metricsCancel()
		if app.locker != nil {
			_ = app.locker.Close()
		}
		app.closeStore()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func (a *App) openStore() error {
	cfg := a.config.Database
	if cfg.URL == "" {
		a.logger.Warn("database url is empty, using in-memory store: data is lost on restart")
		a.repo = memory.New()
		return nil
	}

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.URL); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectAttempts: cfg.ConnectAttempts,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	a.db = db
	a.repo = storepostgres.NewRepository(db)
	return nil
}

func (a *App) closeStore() {
	if a.db != nil {
		a.db.Close()
	}
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Background writers stop before the store goes away.
	a.stopWorkers()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	a.closeStore()

	return errors.Join(errs...)
}

func (a *App) stopWorkers() {
	if a.syncer != nil {
		a.syncer.Stop()
	}
	for _, w := range a.workers {
		w.Stop()
	}
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectStatusMetrics(ctx context.Context, services *catalog.Service) {
	record := func() {
		list, err := services.ListServices(ctx)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Error("failed to list services for metrics", "error", err)
			}
			return
		}
		metrics.RecordServiceStatuses(list)
	}

	record()

	ticker := time.NewTicker(statusMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Syncer returns the sync worker, or nil when the upstream is not configured.
func (a *App) Syncer() *reconcile.Syncer {
	return a.syncer
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)
	r.Get("/docs", docsHandler)

	catalogService := catalog.NewService(a.repo)
	if err := a.seed(ctx, catalogService); err != nil {
		return nil, err
	}
	go a.collectStatusMetrics(ctx, catalogService)

	incidentsService := incidents.NewService(a.repo)
	samplesService := servermetrics.NewService(a.repo)
	analyticsService, err := a.analyticsService()
	if err != nil {
		return nil, err
	}

	prober := probe.New(probe.Config{
		Timeout:     a.config.Probe.Timeout,
		Method:      a.config.Probe.Method,
		RateLimit:   a.config.Probe.RateLimit,
		Burst:       a.config.Probe.Burst,
		Concurrency: a.config.Probe.Concurrency,
	})

	source, err := a.setupSync(ctx, catalogService)
	if err != nil {
		return nil, err
	}

	a.setupCollectors(ctx, samplesService, catalogService)

	auth, err := identity.NewAuthenticator(a.config.Admin.Username, a.config.Admin.Password, 0)
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}
	if !auth.Enabled() {
		a.logger.Warn("admin password is empty: admin routes will reject every request")
	}

	catalogHandler := catalog.NewHandler(catalogService)
	incidentsHandler := incidents.NewHandler(incidentsService)
	samplesHandler := servermetrics.NewHandler(samplesService)
	probeHandler := probe.NewHandler(prober, catalogService)
	syncHandler := reconcile.NewHandler(a.syncer, source)
	analyticsHandler := analytics.NewHandler(analyticsService)
	identityHandler := identity.NewHandler()

	requireAdmin := identity.Middleware(auth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", openapiHandler)

		catalogHandler.RegisterRoutes(r)
		incidentsHandler.RegisterRoutes(r)
		samplesHandler.RegisterRoutes(r)
		probeHandler.RegisterRoutes(r, requireAdmin)
		syncHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			catalogHandler.RegisterAdminRoutes(r)
			incidentsHandler.RegisterAdminRoutes(r)
			syncHandler.RegisterAdminRoutes(r)
			identityHandler.RegisterAdminRoutes(r)
		})
	})

	return r, nil
}

func (a *App) analyticsService() (*analytics.Service, error) {
	loc, err := a.config.Analytics.Location()
	if err != nil {
		return nil, fmt.Errorf("load analytics timezone: %w", err)
	}
	return analytics.NewService(a.repo, loc), nil
}

// setupSync builds the reconciliation chain when the upstream is configured and
// starts its schedule when sync is enabled. The returned source is nil otherwise.
func (a *App) setupSync(ctx context.Context, services *catalog.Service) (reconcile.Source, error) {
	cfg := a.config.Sync
	if !cfg.Configured() {
		a.logger.Info("sync source is not configured: status reconciliation disabled")
		return nil, nil
	}

	upstream, err := reconcile.NewPrometheusSource(reconcile.PrometheusConfig{
		URL:            cfg.URL,
		Token:          cfg.Token,
		DatasourcePath: cfg.DatasourcePath,
		Query:          cfg.Query,
		Timeout:        cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create sync source: %w", err)
	}

	source := reconcile.NewBreakerSource(upstream, reconcile.BreakerConfig{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
	})

	var locker reconcile.Locker
	if cfg.RedisURL != "" {
		redisLocker, err := reconcile.NewRedisLocker(ctx, cfg.RedisURL, cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("connect sync lock: %w", err)
		}
		a.locker = redisLocker
		locker = redisLocker
	}

	a.syncer = reconcile.NewSyncer(reconcile.NewReconciler(source, services), locker, periodic.Config{
		Name:         "status-sync",
		Interval:     cfg.Interval,
		InitialDelay: cfg.InitialDelay,
	})

	if cfg.Enabled {
		a.syncer.Start(ctx)
	} else {
		a.logger.Info("scheduled sync disabled: manual trigger only")
	}

	return source, nil
}

func (a *App) setupCollectors(ctx context.Context, samples *servermetrics.Service, services *catalog.Service) {
	cfg := a.config.Collector

	if cfg.MetricsAPIURL != "" {
		collector := servermetrics.NewCollector(servermetrics.CollectorConfig{
			BaseURL:     cfg.MetricsAPIURL,
			Timeout:     cfg.Timeout,
			ApplyStatus: cfg.ApplyStatus,
		}, samples, services)
		a.startWorker(ctx, periodic.Config{Name: "metrics-collector", Interval: cfg.Interval}, collector.Run)
	}

	if cfg.HostServiceID != "" {
		sampler := servermetrics.NewHostSampler(cfg.HostServiceID, samples, nil)
		a.startWorker(ctx, periodic.Config{Name: "host-sampler", Interval: cfg.HostInterval}, sampler.Run)
	}
}

func (a *App) startWorker(ctx context.Context, cfg periodic.Config, job periodic.Job) {
	runner := periodic.New(cfg, job)
	runner.Start(ctx)
	a.workers = append(a.workers, runner)
}

// seed imports the configured file. Records that already exist are skipped,
// so seeding on every start is safe.
func (a *App) seed(ctx context.Context, services *catalog.Service) error {
	path := a.config.Seed.ImportFile
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var payload catalog.ImportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	ctx, logger := ctxlog.With(ctx, "seed_file", path)
	result, err := services.Import(ctx, payload)
	if err != nil {
		return fmt.Errorf("import seed file: %w", err)
	}

	logger.Info("seed imported", "imported", result.Imported, "skipped", result.Skipped)
	return nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.repo.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func openapiHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(openapi.Spec)
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Statusboard API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
