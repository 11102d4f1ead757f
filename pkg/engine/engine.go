// Package engine owns the booking lifecycle on the consumer side: creating
// a booking against a car, modifying its date range, cancelling it, and
// reconciling the car's booking counter — with the remote rentals API as
// the source of truth. Views call into it and render whatever state it
// returns; it never reads ambient session state, every operation takes the
// caller's identity explicitly.
package engine

import (
	"context"
	"sync"
	"time"

	"carvio/pkg/logger"
	"carvio/pkg/model"
)

type Engine struct {
	api     RentalAPI
	catalog *Catalog
	log     *logger.Logger

	mu       sync.RWMutex
	bookings []model.Booking

	// opLocks serializes modify/cancel per booking id. Operations on
	// distinct bookings proceed independently.
	opLocks sync.Map
}

func New(api RentalAPI, catalog *Catalog, log *logger.Logger) *Engine {
	return &Engine{
		api:     api,
		catalog: catalog,
		log:     log,
	}
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Bookings returns a snapshot of the locally cached booking collection, in
// the order the backend returned it.
func (e *Engine) Bookings() []model.Booking {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Booking, len(e.bookings))
	copy(out, e.bookings)
	return out
}

// CreateBooking reserves carID for the given identity and returns the car's
// new booking count. The backend enforces the one-booking-per-(car, user)
// rule; a duplicate surfaces as a KindConflict error. The catalog is only
// touched after a confirmed success: the backend-reported count is
// preferred, previousCount+1 is the fallback when the success body was
// unparsable.
func (e *Engine) CreateBooking(ctx context.Context, carID string, identity model.Identity) (int64, error) {
	if identity.IsZero() {
		return 0, NewError(KindUnauthenticated, "you need to be signed in to book a car")
	}

	car, ok := e.catalog.Get(carID)
	if !ok {
		return 0, NewError(KindValidation, "unknown car: "+carID)
	}

	conf, err := e.api.CreateBooking(ctx, carID, identity.Email)
	if err != nil {
		e.log.Warn("Booking creation failed", "car_id", carID, "error", err)
		return 0, err
	}

	newCount := conf.BookingCount
	if !conf.CountKnown {
		newCount = car.BookingCount + 1
	}
	e.catalog.setBookingCount(carID, newCount)

	e.log.Info("Booking created", "car_id", carID, "booking_count", newCount)
	return newCount, nil
}

// ListBookings fetches the user's bookings fresh from the backend and
// replaces the local collection with the result. Each call is a full
// snapshot; there is no incremental sync and no canonical ordering beyond
// the backend's.
func (e *Engine) ListBookings(ctx context.Context, email string) ([]model.Booking, error) {
	if email == "" {
		return nil, NewError(KindUnauthenticated, "you need to be signed in to view bookings")
	}

	bookings, err := e.api.ListBookings(ctx, email)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.bookings = bookings
	e.mu.Unlock()

	return e.Bookings(), nil
}

// ModifyBooking sends a new date range to the backend and, on success,
// replaces the whole local record with the server's payload — the server
// recomputes the total price, so no field-by-field patching happens here.
// A malformed range fails fast with KindValidation and no network call.
func (e *Engine) ModifyBooking(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
	unlock := e.lockBooking(bookingID)
	defer unlock()

	if newStart.IsZero() || newEnd.IsZero() {
		return nil, NewError(KindValidation, "both start and end dates are required")
	}
	if newStart.After(newEnd) {
		return nil, NewError(KindValidation, "start date must not be after end date")
	}

	updated, err := e.api.ModifyBooking(ctx, bookingID, newStart, newEnd)
	if err != nil {
		e.log.Warn("Booking modification failed", "booking_id", bookingID, "error", err)
		return nil, err
	}

	e.replaceBooking(*updated)
	e.log.Info("Booking dates updated", "booking_id", bookingID)
	return updated, nil
}

// CancelBooking requests the Active -> Canceled transition. On success only
// the status of the local record flips; dates and price stay frozen. The
// engine does not pre-check the current status — the backend rejects a
// repeat cancel and that surfaces as KindConflict.
func (e *Engine) CancelBooking(ctx context.Context, bookingID string) error {
	unlock := e.lockBooking(bookingID)
	defer unlock()

	if err := e.api.CancelBooking(ctx, bookingID); err != nil {
		e.log.Warn("Booking cancellation failed", "booking_id", bookingID, "error", err)
		return err
	}

	e.mu.Lock()
	for i := range e.bookings {
		if e.bookings[i].ID == bookingID {
			e.bookings[i].Status = model.StatusCanceled
			break
		}
	}
	e.mu.Unlock()

	e.log.Info("Booking canceled", "booking_id", bookingID)
	return nil
}

// replaceBooking substitutes the local entry matching the record's id with
// the authoritative server version.
func (e *Engine) replaceBooking(updated model.Booking) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.bookings {
		if e.bookings[i].ID == updated.ID {
			e.bookings[i] = updated
			return
		}
	}
	e.bookings = append(e.bookings, updated)
}

func (e *Engine) lockBooking(id string) func() {
	v, _ := e.opLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
