package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carvio/pkg/logger"
	"carvio/pkg/model"
)

// cachedCarRepository is a read-through cache in front of the Mongo
// repository. Only FindByID is cached; list results churn with every write
// and are served from Mongo directly. Cache failures degrade to the inner
// repository, never to an error.
type cachedCarRepository struct {
	inner  CarRepository
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewCachedCarRepository(inner CarRepository, client *redis.Client, ttl time.Duration, log *logger.Logger) CarRepository {
	return &cachedCarRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func carCacheKey(id string) string {
	return fmt.Sprintf("car:%s", id)
}

func (r *cachedCarRepository) Create(ctx context.Context, car *model.Car) (string, error) {
	return r.inner.Create(ctx, car)
}

func (r *cachedCarRepository) FindByID(ctx context.Context, id string) (*model.Car, error) {
	key := carCacheKey(id)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var car model.Car
		if err := json.Unmarshal(raw, &car); err == nil {
			return &car, nil
		}
		// Corrupt entry, drop it and fall through.
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("car cache read failed", "car_id", id, "error", err)
	}

	car, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(car); err == nil {
		if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.logger.Warn("car cache write failed", "car_id", id, "error", err)
		}
	}

	return car, nil
}

func (r *cachedCarRepository) FindAll(ctx context.Context, filter CarFilter) ([]model.Car, error) {
	return r.inner.FindAll(ctx, filter)
}

func (r *cachedCarRepository) Update(ctx context.Context, id string, update *model.CarUpdate) (*model.Car, error) {
	car, err := r.inner.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return car, nil
}

func (r *cachedCarRepository) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// IncrementBookingCount runs inside the booking transaction, so the
// invalidation here precedes the commit and a concurrent FindByID can
// re-cache the pre-commit count. Callers close that window with
// InvalidateCache after the transaction commits.
func (r *cachedCarRepository) IncrementBookingCount(ctx context.Context, id string, delta int64) (int64, error) {
	count, err := r.inner.IncrementBookingCount(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, id)
	return count, nil
}

// InvalidateCache drops the cached entry for a car.
func (r *cachedCarRepository) InvalidateCache(ctx context.Context, id string) {
	r.invalidate(ctx, id)
}

func (r *cachedCarRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, carCacheKey(id)).Err(); err != nil {
		r.logger.Warn("car cache invalidation failed", "car_id", id, "error", err)
	}
}
