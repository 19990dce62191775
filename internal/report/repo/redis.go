package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

// RedisResultRepository keeps every stored result of a session in one hash,
// keyed by domain, so a single DEL ends the session.
type RedisResultRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisResultRepository(rdb redis.Cmdable, ttl time.Duration) *RedisResultRepository {
	return &RedisResultRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisResultRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:results", sessionID)
}

func (r *RedisResultRepository) Load(ctx context.Context, sessionID string, domain model.Domain) (*model.StoredResult, error) {
	key := r.sessionKey(sessionID)

	raw, err := r.rdb.HGet(ctx, key, domain.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Str("domain", domain.String()).Msg("failed to load result from redis")
		return nil, errx.WrapRedis(err)
	}

	var res model.StoredResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		logx.Error().Err(err).Str("key", key).Str("domain", domain.String()).Msg("failed to unmarshal stored result")
		return nil, fmt.Errorf("unmarshal stored result: %w", err)
	}
	return &res, nil
}

func (r *RedisResultRepository) Save(ctx context.Context, sessionID string, result *model.StoredResult) error {
	if result == nil {
		return errors.New("stored result is nil")
	}
	b, err := json.Marshal(result)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to marshal stored result")
		return fmt.Errorf("marshal stored result: %w", err)
	}
	key := r.sessionKey(sessionID)

	if err := r.rdb.HSet(ctx, key, result.Domain.String(), b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save result to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on session key")
		}
	}
	return nil
}

func (r *RedisResultRepository) Delete(ctx context.Context, sessionID string, domain model.Domain) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.HDel(ctx, key, domain.String()).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Str("domain", domain.String()).Msg("failed to delete result from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisResultRepository) DeleteSession(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ResultRepository = (*RedisResultRepository)(nil)
