package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "lprwatch/backend/libs/redis"
	"lprwatch/backend/services/lpr-service/internal/config"
	"lprwatch/backend/services/lpr-service/internal/db"
	httpserver "lprwatch/backend/services/lpr-service/internal/http"
	"lprwatch/backend/services/lpr-service/internal/http/handlers"
	"lprwatch/backend/services/lpr-service/internal/http/middleware"
	redisstore "lprwatch/backend/services/lpr-service/internal/redis"
	"lprwatch/backend/services/lpr-service/internal/repository/postgres"
	"lprwatch/backend/services/lpr-service/internal/service"
	"lprwatch/backend/services/lpr-service/internal/similarity"
)

// App wires lpr-service dependencies.
type App struct {
	server      *httpserver.Server
	pool        *pgxpool.Pool
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database schema up to date")
	}

	opts := []service.Option{
		service.WithScanner(similarity.NewScanner(cfg.Similarity.Threshold, cfg.Similarity.Limit)),
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
		opts = append(opts, service.WithPlateIndex(redisstore.NewPlateIndex(redisClient, cfg.Redis.Key)))
	} else {
		logger.Info("redis not configured, similar plate scans read from postgres")
	}

	store := postgres.NewStore(pool)
	lprService := service.NewLPRService(store, logger, opts...)
	lprHandler := handlers.NewLPRHandler(lprService, logger)

	routes := httpserver.Routes{
		SubmitEvent:    lprHandler.HandleSubmitEvent,
		History:        lprHandler.HandleHistory,
		ActiveSessions: lprHandler.HandleActiveSessions,
		SimilarPlates:  lprHandler.HandleSimilarPlates,
		Health:         handlers.NewHealthHandler(),
	}

	router := middleware.RequestLogger(logger)(httpserver.NewRouter(routes))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger, cfg.HTTP.ShutdownTimeout)

	return &App{
		server:      server,
		pool:        pool,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
