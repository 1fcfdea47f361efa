package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quest-maker/internal/interfaces"
	"quest-maker/internal/models"
	"quest-maker/internal/play"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ interfaces.SessionRepository = (*redisSessionRepository)(nil)

const sessionKeyPrefix = "play_session:"

type redisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionRepository хранит снимки прохождения в Redis. ttl <= 0 - без срока жизни.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.SessionRepository {
	return &redisSessionRepository{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSessionRepo"),
	}
}

func sessionKey(workspaceID string) string {
	return sessionKeyPrefix + workspaceID
}

func (r *redisSessionRepository) SaveSnapshot(ctx context.Context, workspaceID string, session play.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal play session: %w", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, sessionKey(workspaceID), data, ttl).Err(); err != nil {
		r.logger.Error("Failed to save play snapshot", zap.String("workspaceID", workspaceID), zap.Error(err))
		return fmt.Errorf("failed to save play snapshot: %w", err)
	}
	r.logger.Debug("Play snapshot saved",
		zap.String("workspaceID", workspaceID),
		zap.Int("historyIndex", session.HistoryIndex),
		zap.Duration("ttl", ttl),
	)
	return nil
}

func (r *redisSessionRepository) GetSnapshot(ctx context.Context, workspaceID string) (*play.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(workspaceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSnapshotNotFound
		}
		r.logger.Error("Failed to get play snapshot", zap.String("workspaceID", workspaceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get play snapshot: %w", err)
	}

	var session play.Session
	if err := json.Unmarshal(data, &session); err != nil {
		r.logger.Warn("Stored play snapshot is corrupted", zap.String("workspaceID", workspaceID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", play.ErrInvalidSession, err)
	}
	return &session, nil
}

func (r *redisSessionRepository) DeleteSnapshot(ctx context.Context, workspaceID string) error {
	if err := r.client.Del(ctx, sessionKey(workspaceID)).Err(); err != nil {
		r.logger.Error("Failed to delete play snapshot", zap.String("workspaceID", workspaceID), zap.Error(err))
		return fmt.Errorf("failed to delete play snapshot: %w", err)
	}
	return nil
}
