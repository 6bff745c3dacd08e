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

	"github.com/frahmantamala/plant-maintenance/api"
	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	authPostgres "github.com/frahmantamala/plant-maintenance/internal/auth/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/plant-maintenance/internal/dashboard/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/employee"
	employeePostgres "github.com/frahmantamala/plant-maintenance/internal/employee/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/machine"
	machinePostgres "github.com/frahmantamala/plant-maintenance/internal/machine/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/metrics"
	"github.com/frahmantamala/plant-maintenance/internal/notification"
	"github.com/frahmantamala/plant-maintenance/internal/part"
	partPostgres "github.com/frahmantamala/plant-maintenance/internal/part/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/store"
	"github.com/frahmantamala/plant-maintenance/internal/task"
	taskPostgres "github.com/frahmantamala/plant-maintenance/internal/task/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/transport/rest"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API and websocket requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Router     *chi.Mux
	Logger     *slog.Logger
	Bus        *events.EventBus
	Dispatcher *notification.Dispatcher
	Hub        *store.Hub
	OpenAPI    []byte
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.AppEnv)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		deps.Logger.Error("Server shutdown error", "error", err)
	}
	shutdownDependencies(ctx, deps)

	deps.Logger.Info("Server stopped")
}

// shutdownDependencies drains in-flight events into the notification queue before
// stopping its workers, then closes the database.
func shutdownDependencies(ctx context.Context, deps *Dependencies) {
	deps.Bus.Wait()
	deps.Dispatcher.Shutdown(ctx)
	if err := deps.DB.Close(); err != nil {
		deps.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	lg := deps.Logger

	authRepo := authPostgres.NewRepository(deps.DB)
	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, cfg.Security.BCryptCost, lg)
	authService.OnAuthStateChange(func(change auth.AuthStateChange) {
		metrics.AuthStateChanges.WithLabelValues(string(change.Event)).Inc()
		lg.Info("auth state changed", "event", change.Event, "user_id", change.UserID, "at", change.At)
	})

	threshold := cfg.Inventory.LowStockThreshold

	employeeService := employee.NewService(employeePostgres.NewEmployeeRepository(deps.Gorm), deps.Bus, cfg.Security.BCryptCost, lg)
	machineService := machine.NewService(machinePostgres.NewMachineRepository(deps.Gorm), deps.Bus, lg)
	partService := part.NewService(partPostgres.NewPartRepository(deps.Gorm), deps.Bus, threshold, lg)
	taskService := task.NewService(taskPostgres.NewTaskRepository(deps.Gorm), employeeService, deps.Bus, threshold, lg)
	dashboardService := dashboard.NewService(dashboardPostgres.NewRepository(deps.DB), taskService, threshold, lg)

	inbox := notification.NewInbox(cfg.Notification.InboxSize)
	deps.Dispatcher = notification.NewDispatcher(notification.Config{
		MaxWorkers:     cfg.Notification.MaxWorkers,
		JobQueueSize:   cfg.Notification.JobQueueSize,
		WorkerPoolSize: cfg.Notification.WorkerPoolSize,
	}, inbox, lg)
	notification.NewNotifier(deps.Dispatcher, lg).Register(deps.Bus)

	registerCollections(deps.Hub, taskService, partService, machineService, employeeService)
	deps.Hub.Listen(deps.Bus)

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health: rest.NewHealthHandler(map[string]rest.Check{
			"postgres": deps.DB.PingContext,
		}),
		Auth:         auth.NewHandler(authService),
		RBAC:         auth.NewRBACAuthorization(auth.NewPermissionChecker(), lg),
		Employee:     employee.NewHandler(employeeService),
		Machine:      machine.NewHandler(machineService),
		Part:         part.NewHandler(partService),
		Task:         task.NewHandler(taskService),
		Dashboard:    dashboard.NewHandler(dashboardService),
		Notification: notification.NewHandler(inbox),
		Websocket:    store.NewWebsocketHandler(deps.Hub, cfg.Server.Origins()),
	}, rest.Options{
		AllowedOrigins: cfg.Server.Origins(),
		LoginRequests:  cfg.RateLimit.LoginRequests,
		LoginWindow:    cfg.RateLimit.LoginWindow,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		OpenAPI:        deps.OpenAPI,
	}, lg)
}

// registerCollections exposes each service's visible list as a subscribable collection.
func registerCollections(hub *store.Hub, tasks *task.Service, parts *part.Service, machines *machine.Service, employees *employee.Service) {
	hub.Register(task.Collection, func(ctx context.Context, p *auth.Principal) (interface{}, error) {
		return tasks.List(ctx, p, task.ListFilter{})
	})
	hub.Register(part.Collection, func(ctx context.Context, p *auth.Principal) (interface{}, error) {
		return parts.List(ctx, p, part.ListFilter{})
	})
	hub.Register(machine.Collection, func(ctx context.Context, p *auth.Principal) (interface{}, error) {
		return machines.List(ctx, p, machine.ListFilter{})
	})
	hub.Register(employee.Collection, func(ctx context.Context, p *auth.Principal) (interface{}, error) {
		return employees.List(ctx, p, employee.ListFilter{})
	})
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.InitWithConfig(os.Stdout, config.Observability.Logging.Level, config.Observability.Logging.Format)

	if _, err := api.Load(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db, config.AppEnv)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Dependencies{
		Config:  config,
		Logger:  lg,
		DB:      db,
		Gorm:    gdb,
		Router:  chi.NewRouter(),
		Bus:     events.NewEventBus(lg),
		Hub:     store.NewHub(lg),
		OpenAPI: api.Spec,
	}, nil
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
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

func initGorm(db *sqlx.DB, env string) (*gorm.DB, error) {
	level := gormLogger.Warn
	if env == "development" {
		level = gormLogger.Info
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
	})
}
