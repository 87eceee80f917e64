package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cycletracker/internal/auth"
	"cycletracker/internal/cache"
	"cycletracker/internal/config"
	"cycletracker/internal/db"
	"cycletracker/internal/handler"
	"cycletracker/internal/logging"
	"cycletracker/internal/metrics"
	"cycletracker/internal/repository"
	"cycletracker/internal/router"
	"cycletracker/internal/service"
)

const (
	shutdownTimeout  = 5 * time.Second
	slowSQLThreshold = 200 * time.Millisecond
)

// App owns the HTTP server and the resources behind it.
type App struct {
	cfg   *config.Config
	log   zerolog.Logger
	db    *gorm.DB
	cache *cache.Client
	echo  *echo.Echo
}

// OpenDatabase connects with the configured driver and brings the schema up to date.
func OpenDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, logging.NewGormLogger(log, slowSQLThreshold))
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB set, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		_ = db.Close(gormDB)
		return nil, err
	}
	return gormDB, nil
}

// NewUserService builds the user service over gormDB. c may be nil.
func NewUserService(cfg *config.Config, gormDB *gorm.DB, c *cache.Client) service.UserService {
	return service.NewUserService(
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(cfg.BcryptCost),
		c,
		cfg.UserCacheTTL,
	)
}

// New wires repositories, services and handlers into an echo server.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	gormDB, err := OpenDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	var cacheClient *cache.Client
	if cfg.CacheEnabled() {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
		if err := cacheClient.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, identity cache degraded")
		}
	}

	m := metrics.New("cycletracker")
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	codec := auth.NewTokenCodec(cfg.SecretKey)

	userService := NewUserService(cfg, gormDB, cacheClient)
	periodService := service.NewPeriodService(
		repository.NewPeriodRepository(gormDB),
		repository.NewSymptomRepository(gormDB),
	)
	authService, err := service.NewAuthService(userService, codec, hasher, service.TokenLifetimes{
		Access:  cfg.AccessTokenTTL(),
		Refresh: cfg.RefreshTokenTTL(),
	}, m, log)
	if err != nil {
		_ = db.Close(gormDB)
		return nil, err
	}

	e := echo.New()
	router.Register(e, cfg, log, m, authService, router.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.CookieOptions{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTokenTTL(),
			RefreshTTL: cfg.RefreshTokenTTL(),
		}),
		User:   handler.NewUserHandler(userService),
		Period: handler.NewPeriodHandler(periodService),
	})

	return &App{cfg: cfg, log: log, db: gormDB, cache: cacheClient, echo: e}, nil
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.ServerPort).Str("api_prefix", a.cfg.APIPrefix).Msg("server starting")
		errCh <- a.echo.Start(":" + a.cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases the database pool and the cache connection.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close cache")
		}
	}
	if a.db != nil {
		if err := db.Close(a.db); err != nil {
			a.log.Warn().Err(err).Msg("close database")
		}
	}
}
