package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
)

// ResultSetStore keeps materialized result sets in Redis for the retention
// window. Expiry is enforced by the key TTL; fulfillment requests after
// expiry see a plain miss.
type ResultSetStore struct {
	cache     *RedisCache
	retention time.Duration
}

// NewResultSetStore builds a result set store with the given retention
func NewResultSetStore(cache *RedisCache, retention time.Duration) *ResultSetStore {
	return &ResultSetStore{cache: cache, retention: retention}
}

func resultSetKey(id string) string {
	return KeyResultSetPrefix + id
}

// SaveResultSet stores a result set under its id for the retention window
func (s *ResultSetStore) SaveResultSet(ctx context.Context, rs *models.ResultSet) error {
	if err := s.cache.SetJSON(ctx, resultSetKey(rs.ID), rs, s.retention); err != nil {
		return fmt.Errorf("failed to save result set %s: %w", rs.ID, err)
	}
	return nil
}

// GetResultSet retrieves a result set by id
func (s *ResultSetStore) GetResultSet(ctx context.Context, id string) (*models.ResultSet, error) {
	var rs models.ResultSet
	if err := s.cache.GetJSON(ctx, resultSetKey(id), &rs); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, taxii.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result set %s: %w", id, err)
	}
	return &rs, nil
}

// SetLastPartReturned advances the fulfillment pointer without resetting
// the retention clock
func (s *ResultSetStore) SetLastPartReturned(ctx context.Context, id string, part int) error {
	rs, err := s.GetResultSet(ctx, id)
	if err != nil {
		return err
	}
	if part <= rs.LastPartReturned {
		return nil
	}
	rs.LastPartReturned = part

	ttl, err := s.cache.TTL(ctx, resultSetKey(id))
	if err != nil || ttl <= 0 {
		ttl = s.retention
	}
	return s.cache.SetJSON(ctx, resultSetKey(id), rs, ttl)
}
