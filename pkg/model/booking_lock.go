package model

import "time"

// BookingLock is an advisory lock document keyed by (car, user). It closes
// the check-then-insert race when two requests try to book the same car for
// the same user concurrently.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
