package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	bookingerrors "carvio/internal/bookings/errors"
	"carvio/pkg/logger"
	"carvio/pkg/model"
)

const locksCollection = "booking_locks"

// BookingLockRepository implements an advisory lock per (car, user) pair.
// Acquire relies on the unique _id index: the second concurrent insert for
// the same key fails with a duplicate key error.
type BookingLockRepository interface {
	Acquire(ctx context.Context, carID, userEmail string) error
	Release(ctx context.Context, carID, userEmail string) error
}

type mongoBookingLockRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
	logger     *logger.Logger
}

func NewMongoBookingLockRepository(db *mongo.Database, ttl time.Duration, log *logger.Logger) BookingLockRepository {
	return &mongoBookingLockRepository{
		collection: db.Collection(locksCollection),
		ttl:        ttl,
		logger:     log,
	}
}

func lockKey(carID, userEmail string) string {
	return fmt.Sprintf("car:%s:user:%s", carID, userEmail)
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, carID, userEmail string) error {
	key := lockKey(carID, userEmail)
	now := time.Now().UTC()

	// Expired locks from crashed requests are cleared first so they don't
	// wedge the pair forever.
	_, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return fmt.Errorf("failed to clear expired lock: %w", err)
	}

	lock := model.BookingLock{
		ID:        key,
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	}

	_, err = r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingerrors.ErrLockNotAcquired
		}
		r.logger.Error("failed to acquire booking lock", "key", key, "error", err)
		return fmt.Errorf("failed to acquire booking lock: %w", err)
	}

	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, carID, userEmail string) error {
	key := lockKey(carID, userEmail)

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		r.logger.Error("failed to release booking lock", "key", key, "error", err)
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}
