package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/terminal-bench/civicsim/internal/analysis/authenticity"
	"github.com/terminal-bench/civicsim/internal/analysis/procurement"
	"github.com/terminal-bench/civicsim/internal/config"
	"github.com/terminal-bench/civicsim/internal/handlers"
	"github.com/terminal-bench/civicsim/internal/logging"
	"github.com/terminal-bench/civicsim/internal/middleware"
	"github.com/terminal-bench/civicsim/internal/models"
	"github.com/terminal-bench/civicsim/internal/repository"
	"github.com/terminal-bench/civicsim/internal/services/auth"
	"github.com/terminal-bench/civicsim/internal/services/documents"
	"github.com/terminal-bench/civicsim/internal/services/events"
	"github.com/terminal-bench/civicsim/internal/services/explain"
	"github.com/terminal-bench/civicsim/internal/services/metrics"
	"github.com/terminal-bench/civicsim/internal/services/notification"
	"github.com/terminal-bench/civicsim/internal/services/simulations"
	"github.com/terminal-bench/civicsim/internal/services/storage"
	"github.com/terminal-bench/civicsim/internal/services/transparency"
	"github.com/terminal-bench/civicsim/pkg/crypto"
)

const (
	serviceName     = "civicsim"
	shutdownTimeout = 5 * time.Second
	loginWindow     = time.Minute
	loginAttempts   = 10
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Init(serviceName, cfg.LogLevel, cfg.LogJSON)
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid config", err)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := build(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "failed to start", err)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(ctx, cfg, app, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.transparency.Stop(shutdownCtx); err != nil {
			logger.Warn("budget refresh did not stop in time", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fatal(logger, "server error", err)
	}
	logger.Info("server exiting")
}

type application struct {
	feedback      *repository.FeedbackRepository
	auth          *auth.Service
	documents     *documents.Service
	simulations   *simulations.Service
	transparency  *transparency.Service
	notifications *notification.Service
}

// build connects the backing services and assembles the application. The
// returned cleanup closes every connection it opened.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*application, func(), error) {
		cleanup()
		return nil, nil, err
	}

	shutdownMetrics, err := metrics.InitProvider(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("metrics export disabled", "error", err)
	} else {
		closers = append(closers, func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdownMetrics(sctx)
		})
	}
	rec, err := metrics.NewGlobal()
	if err != nil {
		return fail(err)
	}

	db, err := repository.Open(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { db.Close() })

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}

	rdb, err := newRedis(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	var (
		notifyStore notification.Store = notification.NewMemoryStore()
		budgetCache transparency.Cache
	)
	if rdb != nil {
		closers = append(closers, func() { rdb.Close() })
		notifyStore = notification.NewRedisStore(rdb)
		budgetCache = transparency.NewRedisCache(rdb)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(events.Config{
			URL:            cfg.NATSURL,
			Name:           serviceName,
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  -1,
			ConnectTimeout: 5 * time.Second,
		}, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, nc.Close)
		publisher = nc
	}

	var upstream explain.Explainer
	if client := explain.NewClient(cfg.AI, logger); client != nil {
		upstream = client
	} else {
		logger.Info("AI explanations disabled, using templated text")
	}
	explainer := explain.WithFallback(upstream, logger, rec)

	rules, err := loadRules(ctx, cfg.RulesFile, logger)
	if err != nil {
		return fail(err)
	}

	notifications := notification.NewService(notifyStore, logger)
	users := repository.NewUserRepository(db)

	app := &application{
		feedback:      repository.NewFeedbackRepository(db),
		auth:          auth.NewService(users, cfg.JWTSecret, cfg.TokenTTL, logger),
		notifications: notifications,
		documents: documents.NewService(documents.Options{
			Repo:         repository.NewDocumentRepository(db),
			Storage:      store,
			Scorer:       authenticity.NewScorer(),
			Assessor:     procurement.NewAssessor(cfg.ScoringSeed, rules),
			Explainer:    explainer,
			Events:       publisher,
			Notifier:     notifications,
			Metrics:      rec,
			Logger:       logger,
			Seed:         cfg.ScoringSeed,
			MaxFileSize:  cfg.MaxFileSize,
			AllowedTypes: cfg.FileTypeAllowed,
		}),
		simulations: simulations.NewService(repository.NewSimulationRepository(db), explainer, publisher, notifications, rec, logger),
		transparency: transparency.NewService(
			transparency.UnionBudget{}, budgetCache, cfg.BudgetCacheTTL, cfg.ScoringSeed, logger),
	}
	if err := app.transparency.StartRefresh(cfg.BudgetRefreshSpec); err != nil {
		return fail(err)
	}
	return app, cleanup, nil
}

// newStorage returns the MinIO-backed store, or an in-memory one when no
// endpoint is configured.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Service, error) {
	var enc *crypto.Encryptor
	if cfg.EncryptionKey != "" {
		var err error
		if enc, err = crypto.NewEncryptor(cfg.EncryptionKey); err != nil {
			return nil, err
		}
	}

	if cfg.Minio.Endpoint == "" {
		logger.Warn("no object store configured, keeping uploads in memory")
		return storage.NewService(storage.NewMemoryBackend(), enc), nil
	}
	backend, err := storage.NewMinioBackend(cfg.Minio)
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return storage.NewService(backend, enc), nil
}

// newRedis returns nil when Redis is unreachable; notifications then stay in
// memory and budget data is not cached.
func newRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, falling back to in-memory notifications", "error", err)
		rdb.Close()
		return nil, nil
	}
	return rdb, nil
}

func loadRules(ctx context.Context, path string, logger *slog.Logger) (*procurement.RuleSet, error) {
	if path == "" {
		return nil, nil
	}
	rules, err := procurement.LoadRuleSet(path, logger)
	if err != nil {
		return nil, err
	}
	if err := rules.Watch(ctx, path); err != nil {
		logger.Warn("procurement rules will not hot-reload", "error", err)
	}
	logger.Info("procurement rules loaded", "path", path, "rules", rules.Len())
	return rules, nil
}

func setupRouter(ctx context.Context, cfg *config.Config, app *application, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxFileSize

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS)
	limiter.StartCleanup(ctx, time.Minute)
	loginLimiter := middleware.NewSlidingWindowLimiter(loginWindow, loginAttempts)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RateLimit(limiter))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	authHandler := handlers.NewAuthHandler(app.auth)
	docHandler := handlers.NewDocumentHandler(app.documents, cfg.MaxFileSize)
	simHandler := handlers.NewSimulationHandler(app.simulations)
	feedbackHandler := handlers.NewFeedbackHandler(app.feedback)
	transparencyHandler := handlers.NewTransparencyHandler(app.transparency)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, middleware.OriginChecker(cfg.AllowedOrigins), logger)

	requireAuth := middleware.Auth(cfg.JWTSecret)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.POST("/auth/register", middleware.OptionalAuth(cfg.JWTSecret), authHandler.Register)
		public.POST("/auth/login", loginLimiter.Limit(), authHandler.Login)
		public.POST("/feedback", middleware.OptionalAuth(cfg.JWTSecret), feedbackHandler.Submit)
		public.GET("/simulations/scenarios", simHandler.Scenarios)
		public.GET("/documents/red-flags", docHandler.RedFlags)

		tr := public.Group("/transparency")
		tr.GET("/budget-overview", transparencyHandler.BudgetOverview)
		tr.GET("/ministry-spending", transparencyHandler.MinistrySpending)
		tr.GET("/search-datasets", transparencyHandler.SearchDatasets)
		tr.GET("/transparency-metrics", transparencyHandler.Metrics)
		tr.GET("/ministries", transparencyHandler.Ministries)
	}

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(requireAuth)
	{
		api.GET("/auth/me", authHandler.Me)
		api.PUT("/auth/me", authHandler.UpdateMe)
		api.POST("/auth/logout", authHandler.Logout)

		api.POST("/documents/verify", docHandler.Verify)
		api.POST("/documents/analyze-text", docHandler.AnalyzeText)
		api.POST("/documents/procurement", docHandler.Procurement)
		api.POST("/documents/procurement/text", docHandler.ProcurementText)
		api.GET("/documents/ministry-overview", docHandler.MinistryOverview)
		api.GET("/documents", docHandler.List)
		api.GET("/documents/:id", docHandler.Get)
		api.DELETE("/documents/:id", docHandler.Delete)

		api.POST("/simulations", simHandler.Run)
		api.GET("/simulations", simHandler.List)
		api.GET("/simulations/:id", simHandler.Get)
		api.DELETE("/simulations/:id", simHandler.Delete)

		api.GET("/feedback/mine", feedbackHandler.Mine)
		admin := api.Group("/feedback", middleware.RequireRole(models.RoleAdmin))
		admin.GET("/reports", feedbackHandler.Report)
		admin.PUT("/:id", feedbackHandler.UpdateStatus)

		api.GET("/dashboard/budget-data", transparencyHandler.BudgetData)
		api.GET("/dashboard/transparency-scores", transparencyHandler.Scores)
		api.GET("/dashboard/sector-breakdown/:sector", transparencyHandler.SectorBreakdown)

		api.GET("/notifications", notificationHandler.List)
	}

	router.GET("/ws", middleware.QueryToken(), requireAuth, notificationHandler.Stream)

	return router
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
