package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/cache"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/handler"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/auth/firebase"
	"github.com/catalogpilot/catalogpilot/internal/auth/jwt"
	"github.com/catalogpilot/catalogpilot/internal/bigcommerce"
	"github.com/catalogpilot/catalogpilot/internal/billing"
	"github.com/catalogpilot/catalogpilot/internal/catalog"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/catalogpilot/catalogpilot/internal/mail"
	"github.com/catalogpilot/catalogpilot/internal/session"
	"github.com/catalogpilot/catalogpilot/internal/workorder"
	"github.com/catalogpilot/catalogpilot/pkg/logger"
	"github.com/catalogpilot/catalogpilot/pkg/metrics"
	"github.com/catalogpilot/catalogpilot/pkg/trace"
	"github.com/catalogpilot/catalogpilot/pkg/version"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

var (
	configPath string
	runOnce    bool

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	executorCmd = &cobra.Command{
		Use:   "executor",
		Short: "Run the work order executor without the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecutor(cmd.Context())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Catalog Pilot API Server",
		Long:  `Catalog Pilot API Server manages BigCommerce catalogs, scheduled price work orders and company accounts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "apiserver.yaml", "path to configuration file")
	executorCmd.Flags().BoolVar(&runOnce, "once", false, "execute due work orders once and exit")
	rootCmd.AddCommand(versionCmd, executorCmd)
}

// App holds every long lived dependency of the apiserver
type App struct {
	cfg      *config.APIServerConfig
	logger   *zap.Logger
	db       database.Database
	sessions session.Store
	redis    *redis.Client
	jwt      *jwt.Service
	i18n     *i18n.I18n
	errs     *errorx.ErrorHandler
	metrics  *metrics.Metrics
	catalog  *catalog.Service
	orders   *workorder.Service
	executor *workorder.Executor
	billing  *billing.Service
	mailer   mail.Mailer
	identity *firebase.Client

	shutdownTracing trace.ShutdownFunc
}

func initLogger(cfg *config.APIServerConfig) *zap.Logger {
	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		lg = zap.NewExample()
		lg.Warn("falling back to the example logger", zap.Error(err))
	}
	return lg
}

func initDatabase(lg *zap.Logger, cfg *config.DatabaseConfig) (database.Database, error) {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s database: %w", cfg.Type, err)
	}
	lg.Info("database ready", zap.String("type", cfg.Type))
	return db, nil
}

func initI18n(cfg *config.I18nConfig) (*i18n.I18n, error) {
	return i18n.New(cfg.DefaultLang, cfg.Path)
}

// initCache returns the category cache, backed by redis when an address is configured
func initCache(cfg *config.APIServerConfig, rdb *redis.Client, lg *zap.Logger) cache.Cache {
	mc := cache.MultiLayerCacheConfig{KeyPrefix: "catalogpilot:cache:", L1TTL: cfg.Catalog.CategoryCacheTTL}
	if rdb != nil {
		mc.RedisClient = rdb
	}
	return cache.NewMultiLayerCache(mc, lg)
}

// NewApp loads the configuration and builds every service
func NewApp(ctx context.Context, path string) (*App, error) {
	cfg, cfgPath, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration %s: %w", cfgPath, err)
	}

	a := &App{cfg: cfg, logger: initLogger(cfg)}
	a.logger.Info("configuration loaded", zap.String("path", cfgPath), zap.String("version", version.Get()))

	if a.shutdownTracing, err = trace.InitTracing(ctx, &cfg.Tracing, a.logger); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	if a.db, err = initDatabase(a.logger, &cfg.Database); err != nil {
		a.Close()
		return nil, err
	}
	if a.sessions, err = session.NewStore(ctx, a.logger, cfg, a.db); err != nil {
		a.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if a.jwt, err = jwt.NewService(jwt.Config{SecretKey: cfg.JWT.SecretKey, Duration: cfg.JWT.Duration}); err != nil {
		a.Close()
		return nil, fmt.Errorf("init jwt: %w", err)
	}
	if a.i18n, err = initI18n(&cfg.I18n); err != nil {
		a.Close()
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	a.errs = errorx.NewErrorHandler(a.logger, a.i18n)
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics)
	}

	a.identity = firebase.NewClient(&cfg.Firebase, a.logger)
	a.catalog = catalog.NewService(a.db, bigcommerce.NewFactory(cfg.BigCommerce, a.logger),
		initCache(cfg, a.redis, a.logger), cfg.Catalog, a.metrics, a.logger)
	a.orders = workorder.NewService(a.db, a.catalog, a.logger)
	a.executor = workorder.NewExecutor(a.orders, a.i18n, cfg.I18n.DefaultLang, cfg.Executor.Interval, a.metrics, a.logger)
	a.billing = billing.NewService(a.db, billing.NewStripeClient(cfg.Stripe, a.logger), cfg.Stripe.Prices, a.logger)
	a.mailer = mail.New(cfg.SendGrid, a.logger)
	return a, nil
}

// Router builds the gin engine with the middleware chain and every route
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.cfg.Server.Mode)
	r := gin.New()
	r.Use(a.errs.RecoveryMiddleware(), a.errs.ErrorMiddleware())
	r.NoRoute(a.errs.NoRoute())
	if a.cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(a.cfg.Tracing.ServiceName))
	}
	if a.metrics != nil {
		r.Use(a.metrics.Middleware())
		r.GET(a.cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logger(a.logger),
		middleware.CORS(a.cfg.Server.AllowedOrigins),
		middleware.Language(a.i18n),
	)

	h := handler.New(handler.Deps{
		DB:         a.db,
		JWT:        a.jwt,
		Sessions:   a.sessions,
		Identity:   a.identity,
		Catalog:    a.catalog,
		WorkOrders: a.orders,
		Billing:    a.billing,
		Mailer:     a.mailer,
		I18n:       a.i18n,
		Errors:     a.errs,
		Server:     a.cfg.Server,
		Invites:    a.cfg.Invitations,
		Logger:     a.logger,
	})
	h.Register(r, middleware.NewAuthenticator(a.jwt, a.sessions, a.db, a.errs))
	return r
}

// Close releases resources in reverse construction order
func (a *App) Close() {
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Warn("failed to close session store", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.cfg.Executor.Enabled {
		app.executor.Start(ctx)
		defer app.executor.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("Starting apiserver", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down apiserver")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runExecutor(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	if runOnce {
		sum, err := app.executor.RunOnce(ctx)
		if err != nil {
			return err
		}
		app.logger.Info("executor pass finished",
			zap.Int("due", sum.Due),
			zap.Int("completed", sum.Completed),
			zap.Int("failed", sum.Failed),
			zap.Int("skipped", sum.Skipped))
		return nil
	}

	app.executor.Start(ctx)
	<-ctx.Done()
	app.executor.Stop()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
