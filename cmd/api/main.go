// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/sheetsense/internal/admin"
	"github.com/carterperez-dev/sheetsense/internal/auth"
	"github.com/carterperez-dev/sheetsense/internal/config"
	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/file"
	"github.com/carterperez-dev/sheetsense/internal/health"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
	"github.com/carterperez-dev/sheetsense/internal/server"
	"github.com/carterperez-dev/sheetsense/internal/storage"
	"github.com/carterperez-dev/sheetsense/internal/user"
)

// drainDelay gives load balancers time to see the failing readiness probe
// before the listener stops accepting connections.
const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("sheetsense exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting sheetsense",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config_file", configPath,
	)

	deps, err := openInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}

	svc := wireServices(cfg, deps, logger)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: deps.db},
		health.Dependency{Name: "redis", Checker: deps.redis, Optional: true},
		health.Dependency{Name: "uploads", Checker: deps.disk},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})
	mountRoutes(srv.Router(), cfg, deps, svc, healthHandler, logger)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		deps.close(context.Background(), logger)
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received", "drain", drainDelay)
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	deps.close(shutdownCtx, logger)

	logger.Info("sheetsense stopped")
	return nil
}

// infra is everything the services need that outlives a request.
type infra struct {
	telemetry *core.Telemetry
	db        *core.Database
	redis     *core.Redis
	disk      *storage.Disk
	tokens    *auth.JWTManager
}

// openInfra brings the backing services up in dependency order. Anything
// already opened is closed again if a later step fails.
func openInfra(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *infra, err error) {
	deps := &infra{}
	defer func() {
		if err != nil {
			deps.close(context.Background(), logger)
		}
	}()

	if deps.telemetry, err = core.NewTelemetry(ctx, cfg.Otel, cfg.App); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	logger.Info("tracing configured",
		"export", cfg.Otel.Enabled && cfg.Otel.Endpoint != "",
		"endpoint", cfg.Otel.Endpoint,
	)

	if deps.db, err = core.NewDatabase(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if err = deps.db.ApplySchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("database ready", "max_open_conns", cfg.Database.MaxOpenConns)

	if deps.disk, err = storage.NewDisk(cfg.Upload.Dir); err != nil {
		return nil, err
	}
	logger.Info("upload store ready", "dir", deps.disk.Dir())

	if deps.redis, err = core.NewRedis(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	logger.Info("redis ready", "pool_size", cfg.Redis.PoolSize)

	if cfg.JWT.GenerateKeys {
		created, keyErr := auth.EnsureKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
		if keyErr != nil {
			return nil, keyErr
		}
		if created {
			logger.Warn("generated a new signing key pair", "path", cfg.JWT.PrivateKeyPath)
		}
	}

	if deps.tokens, err = auth.NewJWTManager(cfg.JWT); err != nil {
		return nil, err
	}
	logger.Info("token signer ready",
		"kid", deps.tokens.GetKeyID(),
		"ttl", deps.tokens.ExpiresIn(),
	)

	return deps, nil
}

// close releases in reverse order of opening. Nil members were never opened.
func (i *infra) close(ctx context.Context, logger *slog.Logger) {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			logger.Error("close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}
	if err := i.telemetry.Shutdown(ctx); err != nil {
		logger.Error("flush telemetry", "error", err)
	}
}

type services struct {
	users *user.Service
	auth  *auth.Service
	files *file.Service
	admin *admin.Service
}

func wireServices(cfg *config.Config, deps *infra, logger *slog.Logger) services {
	users := user.NewService(user.NewRepository(deps.db.DB))
	files := file.NewService(
		file.NewRepository(deps.db.DB),
		deps.disk,
		cfg.Upload.MaxFileSize,
		logger,
	)

	return services{
		users: users,
		auth:  auth.NewService(deps.tokens, users),
		files: files,
		admin: admin.NewService(users, files, logger),
	}
}

func mountRoutes(
	router chi.Router,
	cfg *config.Config,
	deps *infra,
	svc services,
	healthHandler *health.Handler,
	logger *slog.Logger,
) {
	router.Use(
		middleware.RequestID,
		middleware.Tracing,
		middleware.Logger(logger),
		middleware.NewRateLimiter(deps.redis.Client, middleware.Policy{
			Name: "api",
			Limit: middleware.Per(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			Skip:     isProbe,
			FailOpen: true,
		}).Handler,
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(cfg.CORS),
	)

	healthHandler.RegisterRoutes(router)
	router.Get("/.well-known/jwks.json", deps.tokens.GetJWKSHandler())

	userGate := middleware.UserGate(deps.tokens, svc.users)
	gates := file.RouteGates{
		User:     userGate,
		Download: middleware.UserGate(deps.tokens, svc.users, middleware.WithQueryToken()),
		UploadLimit: middleware.UploadRateLimiter(
			deps.redis.Client,
			middleware.Per(
				cfg.RateLimit.UploadRequests,
				cfg.RateLimit.UploadBurst,
				cfg.RateLimit.Window,
			),
		),
	}

	probe := admin.SystemProbe{
		DBStats:     deps.db.Stats,
		DBPing:      deps.db.Ping,
		RedisStats:  deps.redis.PoolStats,
		RedisPing:   deps.redis.Ping,
		UploadsPing: deps.disk.Ping,
		UploadsDir:  deps.disk.Dir(),
	}

	router.Route("/api", func(r chi.Router) {
		auth.NewHandler(svc.auth).RegisterRoutes(r, userGate)
		user.NewHandler(svc.users).RegisterRoutes(r, userGate)
		file.NewHandler(svc.files, cfg.Upload.MaxFormBytes).RegisterRoutes(r, gates)
		admin.NewHandler(svc.admin, probe).RegisterRoutes(r, middleware.AdminGate(deps.tokens))
	})
}

// isProbe keeps orchestrator health checks out of the client rate limit.
func isProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/livez", "/readyz":
		return true
	}
	return false
}

// newLogger accepts any level slog understands ("debug", "warn", "error+2").
// An unknown level falls back to info.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
