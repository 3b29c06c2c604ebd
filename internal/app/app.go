// Package app assembles the HTTP server and its dependencies from config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"findash/internal/auth"
	"findash/internal/cache"
	"findash/internal/config"
	"findash/internal/db"
	"findash/internal/handler"
	"findash/internal/marketdata"
	"findash/internal/repository"
	"findash/internal/router"
	"findash/internal/service"
	"findash/internal/ws"
)

// App is a fully wired server.
type App struct {
	Echo   *echo.Echo
	DB     *gorm.DB
	Cache  *cache.Client
	Users  service.UserService
	Auth   service.AuthService
	Stocks service.StockService
	Hub    *ws.Hub
	log    *logrus.Logger
}

// New opens the database and cache named by cfg, migrates the schema and
// builds the server.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	gormDB, err := db.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		_ = db.Close(gormDB)
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if cacheClient.Enabled() {
		if err := cacheClient.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, token revocation disabled until it recovers")
		}
	} else {
		log.Info("REDIS_ADDR not set, logout will not revoke tokens")
	}

	a, err := Build(cfg, log, gormDB, cacheClient)
	if err != nil {
		_ = db.Close(gormDB)
		_ = cacheClient.Close()
		return nil, err
	}
	return a, nil
}

// Build wires services and routes on top of an open database and cache.
// cacheClient may be nil.
func Build(cfg *config.Config, log *logrus.Logger, gormDB *gorm.DB, cacheClient *cache.Client) (*App, error) {
	jwtService, err := auth.NewJWTService(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokenStore := auth.NewTokenStore(cacheClient)

	userRepo := repository.NewUserRepository(gormDB)
	priceRepo := repository.NewStockPriceRepository(gormDB)

	provider := marketdata.NewAlphaVantageClient(cfg.AlphaVantageURL, cfg.AlphaVantageKey, cfg.MarketDataTimeout, log)

	userService := service.NewUserService(userRepo, hasher, log)
	authService := service.NewAuthService(userRepo, hasher, jwtService, tokenStore, log)
	stockService := service.NewStockService(priceRepo, provider, log)
	hub := ws.NewHub(log)

	e := echo.New()
	router.Register(e, log, router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Users:       handler.NewUserHandler(userService),
		Stocks:      handler.NewStockHandler(stockService),
		WebSocket:   ws.NewHandler(hub, log),
		AuthService: authService,
	})

	return &App{
		Echo:   e,
		DB:     gormDB,
		Cache:  cacheClient,
		Users:  userService,
		Auth:   authService,
		Stocks: stockService,
		Hub:    hub,
		log:    log,
	}, nil
}

// Shutdown stops the HTTP server and releases the database and cache.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	if err := db.Close(a.DB); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}
	return errors.Join(errs...)
}
