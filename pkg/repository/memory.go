package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const latestKey = "kite:session:latest"

// memorySessionRepository keeps the current session in process memory.
// It is used when no database is configured; a cold start loses it.
type memorySessionRepository struct {
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewMemorySessionRepository creates a go-cache backed session repository.
func NewMemorySessionRepository(logger *zap.Logger) SessionRepository {
	return &memorySessionRepository{
		cache:  cache.New(cache.NoExpiration, 10*time.Minute),
		logger: logger,
		now:    time.Now,
	}
}

func (r *memorySessionRepository) Name() string { return "memory" }

func (r *memorySessionRepository) Save(_ context.Context, session *Session) error {
	now := r.now()
	prepare(session, now)

	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		// Already expired: nothing worth keeping.
		return nil
	}

	stored := *session
	r.cache.Set(latestKey, &stored, ttl)

	r.logger.Info("Kite session cached",
		zap.String("id", session.ID.String()),
		zap.String("user_id", session.UserID),
		zap.Duration("ttl", ttl))
	return nil
}

func (r *memorySessionRepository) Latest(_ context.Context, now time.Time) (*Session, error) {
	v, ok := r.cache.Get(latestKey)
	if !ok {
		return nil, ErrNoSession
	}
	session := *v.(*Session)
	if session.Expired(now) {
		return nil, ErrNoSession
	}
	return &session, nil
}

func (r *memorySessionRepository) Health(context.Context) error {
	return nil
}
