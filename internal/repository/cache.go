package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/domain"
)

const emailCachePrefix = "registration:email:"

// CachedRepository decorates a RegistrationRepository with a read-through
// Redis cache on email lookups. Every write invalidates the cached entry so
// status changes are never served stale.
type CachedRepository struct {
	inner  RegistrationRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRepository wraps inner with an email-lookup cache.
func NewCachedRepository(inner RegistrationRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	return &CachedRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *CachedRepository) Create(ctx context.Context, reg *domain.Registration) error {
	if err := r.inner.Create(ctx, reg); err != nil {
		return err
	}
	r.invalidate(ctx, reg.Email)
	return nil
}

func (r *CachedRepository) Update(ctx context.Context, reg *domain.Registration) error {
	if err := r.inner.Update(ctx, reg); err != nil {
		return err
	}
	r.invalidate(ctx, reg.Email)
	return nil
}

func (r *CachedRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *CachedRepository) GetByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	key := emailCacheKey(email)

	if payload, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var reg domain.Registration
		if err := json.Unmarshal(payload, &reg); err == nil {
			return &reg, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("registration cache read failed", zap.Error(err))
	}

	reg, err := r.inner.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(reg); err == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("registration cache write failed", zap.Error(err))
		}
	}
	return reg, nil
}

func (r *CachedRepository) List(ctx context.Context, filter StatusFilter) ([]domain.Registration, error) {
	return r.inner.List(ctx, filter)
}

func (r *CachedRepository) UpdateStatusFrom(ctx context.Context, reg *domain.Registration, expected domain.RegistrationStatus) error {
	if err := r.inner.UpdateStatusFrom(ctx, reg, expected); err != nil {
		return err
	}
	r.invalidate(ctx, reg.Email)
	return nil
}

func (r *CachedRepository) invalidate(ctx context.Context, email string) {
	if err := r.client.Del(ctx, emailCacheKey(email)).Err(); err != nil {
		r.logger.Warn("registration cache invalidation failed", zap.Error(err))
	}
}

func emailCacheKey(email string) string {
	return emailCachePrefix + domain.NormalizeEmail(email)
}
