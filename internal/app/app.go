package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/escola/internal/config"
	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/gateway"
	"github.com/simp-lee/escola/internal/jobs"
	"github.com/simp-lee/escola/internal/middleware"
	"github.com/simp-lee/escola/internal/module/auth"
	"github.com/simp-lee/escola/internal/module/finance"
	"github.com/simp-lee/escola/internal/module/guardian"
	"github.com/simp-lee/escola/internal/module/journal"
	"github.com/simp-lee/escola/internal/module/records"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/screen"
	"github.com/simp-lee/escola/internal/session"
	"github.com/simp-lee/escola/web"
)

const (
	jobTimeout      = time.Minute
	bucketIdle      = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

// App holds the wired HTTP engine and everything that must be released on
// shutdown.
type App struct {
	engine    *gin.Engine
	cfg       *config.Config
	logger    *logger.Logger
	scheduler *jobs.Scheduler
	// closers run in reverse order after the server stops.
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      2 * timeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New wires the application from cfg: logger, metrics registry, API gateway,
// session store, screen registry, housekeeping jobs, middleware, templates
// and the feature modules.
func New(cfg *config.Config) (a *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	a = &App{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.close()
			_ = log.Close()
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("debug mode listening on 0.0.0.0: templates are read from disk and errors are verbose")
	}

	reg := prometheus.NewRegistry()
	var gwOpts []gateway.Option
	gwOpts = append(gwOpts, gateway.WithLogger(log.Logger))
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gwOpts = append(gwOpts, gateway.WithMetrics(gateway.NewMetrics(reg)))
	}
	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Timeout: config.Duration(cfg.Gateway.Timeout),
	}, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("setup gateway: %w", err)
	}

	store, err := a.openSessionStore(log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup session store: %w", err)
	}
	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		TTL:        config.Duration(cfg.Session.TTL),
	})

	screens := screen.NewRegistry()
	dropScreens := func(sessionID string) {
		if n := screens.Drop(sessionID); n > 0 {
			log.Debug("screen state dropped", slog.Int("controllers", n))
		}
	}
	guard := navigation.NewGuard(sessions, dropScreens)

	confirmer, err := screen.NewSecretConfirmer(cfg.Auth.ConfirmSecretHash)
	if err != nil {
		return nil, err
	}

	var loginLimit gin.HandlerFunc
	if cfg.Server.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, bucketIdle)
		a.closers = append(a.closers, closer{"rate limiter", limiter.Close})
		loginLimit = limiter.Middleware()
	}

	janitor := jobs.Janitor{
		Sessions:   sessions,
		Screens:    screens,
		ScreenIdle: config.Duration(cfg.Session.ScreenIdleTTL),
		Log:        log.Logger,
	}
	a.scheduler = jobs.New(log.Logger, jobTimeout)
	if err := a.scheduler.Add("janitor", cfg.Session.SweepSchedule, janitor.Run); err != nil {
		return nil, err
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestID(middleware.RequestIDConfig{}),
		middleware.Logger(log.Logger),
	)
	if cfg.Metrics.Enabled {
		engine.Use(middleware.NewHTTPMetrics(reg).Middleware())
	}

	webFS := fs.FS(web.EmbeddedFS)
	if cfg.Server.Mode == gin.DebugMode {
		if webFS, err = resolveDebugWebFS(); err != nil {
			return nil, fmt.Errorf("resolve debug web fs: %w", err)
		}
	}
	renderer, err := NewTemplateRenderer(webFS, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	csrfSecret, err := resolveCSRFSecret(cfg.Server.CSRFSecret, cfg.Server.Mode, log.Logger)
	if err != nil {
		return nil, err
	}

	pageSize := cfg.List.PageSize
	modules := []Module{
		auth.NewModule(auth.NewHandler(auth.NewService(gw), sessions, dropScreens), loginLimit),
		records.NewModule(records.NewHandler(gw, screens, confirmer, guard, pageSize), guard),
		finance.NewModule(finance.NewHandler(gw, guard), guard),
		journal.NewModule(journal.NewHandler(gw, screens, guard), guard),
		guardian.NewModule(guardian.NewHandler(gw, screens, guard, pageSize), guard),
	}

	deps := &RouteDeps{
		Modules:     modules,
		Guard:       guard,
		Web:         webFS,
		CacheStatic: cfg.Server.Mode == gin.ReleaseMode,
		Checks: []HealthCheck{
			{Name: "sessions", Target: sessions},
			{Name: "gateway", Target: gw},
		},
		CSRFSecret: csrfSecret,
		CORS:       resolveCORSConfig(cfg.Server.Mode, &cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		deps.MetricsPath = cfg.Metrics.Path
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	a.engine = engine
	log.Info("app ready",
		slog.String("gateway", cfg.Gateway.BaseURL),
		slog.String("session_store", cfg.Session.Store),
		slog.Int("page_size", pageSize),
	)
	return a, nil
}

// openSessionStore builds the store selected by session.store and records
// its connection for closing.
func (a *App) openSessionStore(log *slog.Logger) (domain.SessionStore, error) {
	switch a.cfg.Session.Store {
	case config.StoreDatabase:
		db, err := config.SetupDatabase(&a.cfg.Database, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"database", sqlDB.Close})
		return session.NewGormStore(db)
	case config.StoreRedis:
		client, err := config.SetupRedis(context.Background(), &a.cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"redis", client.Close})
		return session.NewRedisStore(client), nil
	default:
		store := session.NewMemoryStore()
		a.closers = append(a.closers, closer{"session cache", store.Close})
		return store, nil
	}
}

// resolveCSRFSecret replaces a missing or placeholder secret with a random
// one outside release mode. Release configs are rejected by config.Validate
// before getting here.
func resolveCSRFSecret(secret, mode string, log *slog.Logger) (string, error) {
	if !isPlaceholderCSRFSecret(secret) {
		return strings.TrimSpace(secret), nil
	}
	if mode == gin.ReleaseMode {
		return "", errors.New("server.csrf_secret must be a non-placeholder value in release mode")
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	log.Warn("no csrf_secret configured, using a random one (forms break on restart)")
	return hex.EncodeToString(b), nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	switch strings.ToLower(strings.TrimSpace(secret)) {
	case "", "change-me-in-production", "change-me":
		return true
	default:
		return false
	}
}

// resolveCORSConfig applies the configured API CORS policy. With no origins
// configured, debug allows any origin and release allows none.
func resolveCORSConfig(mode string, cfg *config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	switch {
	case len(cfg.AllowOrigins) > 0:
		out.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		out.AllowOrigins = nil
	}
	if len(cfg.AllowMethods) > 0 {
		out.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		out.AllowHeaders = cfg.AllowHeaders
	}
	out.AllowCredentials = cfg.AllowCredentials
	if d := config.Duration(cfg.MaxAge); d > 0 {
		out.MaxAge = strconv.Itoa(int(d.Seconds()))
	}
	return out
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		dir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return os.DirFS(dir), nil
		}
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "web")
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return os.DirFS(dir), nil
		}
	}
	return nil, errors.New("debug web directory not found")
}

// Handler exposes the engine, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Run starts the scheduler and the HTTP server and blocks until SIGINT or
// SIGTERM, then shuts down gracefully and releases every connection.
func (a *App) Run() error {
	if a == nil || a.cfg == nil || a.engine == nil {
		return errors.New("app is not initialised")
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, config.Duration(a.cfg.Server.Timeout))

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", slog.Any("error", err))
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Error("scheduler stop error", slog.Any("error", err))
		}
	}

	a.close()
	a.logger.Info("server stopped")
	if err := a.logger.Close(); err != nil {
		slog.Error("logger close error", slog.Any("error", err))
	}
	return runErr
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Error(c.name+" close error", slog.Any("error", err))
			continue
		}
		a.logger.Info(c.name + " closed")
	}
	a.closers = nil
}
