package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/opsdesk/reportgen/internal/report/model"
)

// MemoryResultRepository is the in-process store used when no Redis is configured.
// Entries expire after the session TTL; zero keeps them until the process exits.
type MemoryResultRepository struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewMemoryResultRepository(ttl time.Duration) *MemoryResultRepository {
	expiration := ttl
	cleanup := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &MemoryResultRepository{c: cache.New(expiration, cleanup), ttl: expiration}
}

func (r *MemoryResultRepository) key(sessionID string, domain model.Domain) string {
	return sessionID + "|" + domain.String()
}

func (r *MemoryResultRepository) Load(_ context.Context, sessionID string, domain model.Domain) (*model.StoredResult, error) {
	v, ok := r.c.Get(r.key(sessionID, domain))
	if !ok {
		return nil, nil
	}
	res := v.(model.StoredResult)
	return &res, nil
}

func (r *MemoryResultRepository) Save(_ context.Context, sessionID string, result *model.StoredResult) error {
	if result == nil {
		return errors.New("stored result is nil")
	}
	r.c.Set(r.key(sessionID, result.Domain), *result, r.ttl)
	return nil
}

func (r *MemoryResultRepository) Delete(_ context.Context, sessionID string, domain model.Domain) error {
	r.c.Delete(r.key(sessionID, domain))
	return nil
}

func (r *MemoryResultRepository) DeleteSession(_ context.Context, sessionID string) error {
	prefix := sessionID + "|"
	for k := range r.c.Items() {
		if strings.HasPrefix(k, prefix) {
			r.c.Delete(k)
		}
	}
	return nil
}

var _ model.ResultRepository = (*MemoryResultRepository)(nil)
