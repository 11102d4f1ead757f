package engine

import (
	"context"
	"time"

	"carvio/pkg/model"
)

// BookingConfirmation is the result of a successful create-booking call.
// CountKnown is false when the backend returned 2xx but the body could not
// be parsed as JSON; the engine then falls back to previousCount+1.
type BookingConfirmation struct {
	BookingCount int64
	CountKnown   bool
}

// RentalAPI is the backend collaborator. Implementations translate
// transport and payload failures into typed *Error values; in particular
// the fragile substring matching on error bodies ("already booked",
// "already canceled") is confined to the implementation, never done here.
type RentalAPI interface {
	CreateBooking(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error)
	ListBookings(ctx context.Context, email string) ([]model.Booking, error)
	ModifyBooking(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
}
