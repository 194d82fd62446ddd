package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/account"
	"github.com/frahmantamala/expense-approval/internal/approval"
	approvalpg "github.com/frahmantamala/expense-approval/internal/approval/postgres"
	"github.com/frahmantamala/expense-approval/internal/auth"
	authpg "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/lock"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensepg "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/notification"
	tenantpg "github.com/frahmantamala/expense-approval/internal/tenant/postgres"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Redis      *redis.Client
	Router     *chi.Mux
	Metrics    *metrics.Metrics
	EventBus   *events.EventBus
	Dispatcher *notification.Dispatcher
	Logger     *slog.Logger

	AuthService    *auth.Service
	AccountService *account.Service
	ExpenseService *expense.Service
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// detached so Close can drain the queue after the signal
	deps.Dispatcher.Start(context.WithoutCancel(ctx))
	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		deps.Logger.Info("Received signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			exitCode = 1
		}
	}

	deps.Close()
	deps.Logger.Info("Server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// Close waits for in-flight event handlers, drains queued mail and releases
// the connections.
func (d *Dependencies) Close() {
	d.EventBus.Wait()
	d.Dispatcher.Stop()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config

	checks := map[string]rest.CheckFunc{
		"postgres": deps.DB.PingContext,
	}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	handlers := rest.Handlers{
		Auth:    auth.NewHandler(deps.AuthService),
		Account: account.NewHandler(deps.AccountService),
		Expense: expense.NewHandler(deps.ExpenseService, cfg.Expense.RecomputeTotals),
	}
	rest.RegisterAllRoutes(deps.Router, handlers, deps.Metrics, rest.Options{
		AllowedOrigins: cfg.Server.AllowedOriginList(),
		MetricsPath:    metricsPath,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   checks,
	}, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)

	if _, err := swagger.Load(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		Metrics:  metrics.New(),
		EventBus: events.NewEventBus(log),
		Logger:   log,
	}

	var locker lock.Locker = lock.NewLocalLocker(config.Redis.LockWait)
	if config.Redis.Addr != "" {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := deps.Redis.Ping(context.Background()).Err(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		redisLocker, err := lock.NewRedisLocker(deps.Redis, config.Redis.LockTTL, config.Redis.LockWait)
		if err != nil {
			_ = deps.Redis.Close()
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure redis locks: %w", err)
		}
		locker = redisLocker
		log.Info("using redis locks", "addr", config.Redis.Addr)
	}

	directory := tenantpg.NewDirectory(gormDB)
	transactor := database.NewTransactor(gormDB)
	hasher := auth.NewBcryptHasher(config.Security.BCryptCost)
	mailer := notification.NewMailer(config.Mail, log)

	deps.Dispatcher = notification.NewDispatcher(mailer, deps.Metrics, notification.Config{
		Workers:   config.Notification.Workers,
		QueueSize: config.Notification.QueueSize,
	}, log)
	notification.NewExpenseSubscriber(directory, deps.Dispatcher, log).Register(deps.EventBus)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	deps.AuthService = auth.NewService(
		authpg.NewRepository(gormDB),
		tokens,
		hasher,
		notification.NewPasswordResetNotifier(mailer, deps.Metrics, log),
		config.Security.ResetCodeTTL,
		log,
	)

	deps.AccountService = account.NewService(directory, transactor, locker, hasher, deps.AuthService, deps.EventBus, log)

	deps.ExpenseService = expense.NewService(
		expensepg.NewExpenseRepository(gormDB),
		approval.NewRecorder(approvalpg.NewApprovalRepository(gormDB), log),
		directory,
		transactor,
		deps.EventBus,
		deps.Metrics,
		expense.Options{EnforceApprovalLimit: config.Expense.EnforceApprovalLimit},
		log,
	)

	return deps, nil
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
}
