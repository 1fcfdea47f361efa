package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RetryConfig - сколько раз и с какой паузой пытаться подключиться.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// PostgresConfig - параметры пула.
type PostgresConfig struct {
	DSN         string
	MaxConns    int
	IdleTimeout time.Duration
}

// SetupPostgres создает пул соединений, повторяя попытки до успешного ping.
func SetupPostgres(ctx context.Context, cfg PostgresConfig, retry RetryConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	logger.Info("Attempting to connect to PostgreSQL", zap.Int("max_retries", retry.MaxRetries), zap.Duration("retry_delay", retry.Delay))

	var lastErr error
	for attempt := 1; attempt <= retry.MaxRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err == nil {
				logger.Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}

		lastErr = err
		logger.Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Error(err),
		)
		if err := sleep(ctx, attempt, retry); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", retry.MaxRetries, lastErr)
}

// SetupRedis создает клиент Redis, повторяя попытки до успешного ping.
func SetupRedis(ctx context.Context, opts *redis.Options, retry RetryConfig, logger *zap.Logger) (*redis.Client, error) {
	logger.Info("Attempting to connect and ping Redis", zap.String("address", opts.Addr), zap.Int("db", opts.DB))

	var lastErr error
	for attempt := 1; attempt <= retry.MaxRetries; attempt++ {
		client := redis.NewClient(opts)

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()
		if err == nil {
			logger.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Error(err),
		)
		if err := sleep(ctx, attempt, retry); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", retry.MaxRetries, lastErr)
}

func sleep(ctx context.Context, attempt int, retry RetryConfig) error {
	if attempt >= retry.MaxRetries {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retry.Delay):
		return nil
	}
}
