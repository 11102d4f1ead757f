package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingerrors "carvio/internal/bookings/errors"
	"carvio/internal/bookings/events"
	"carvio/internal/bookings/repository"
	bookingvalidator "carvio/internal/bookings/validator"
	carerrors "carvio/internal/cars/errors"
	carrepository "carvio/internal/cars/repository"
	mongodb "carvio/pkg/db/mongo"
	apperrors "carvio/pkg/errors"
	"carvio/pkg/logger"
	"carvio/pkg/model"
)

// BookingService owns the booking lifecycle. Creation is the critical
// path: the duplicate check, the booking insert, and the car counter
// increment run in one Mongo transaction, guarded by an advisory lock per
// (car, user) pair so concurrent requests for the same pair cannot both
// pass the check.
type BookingService interface {
	Create(ctx context.Context, carID, userEmail string) (*model.Booking, int64, error)
	ListByEmail(ctx context.Context, email string) ([]model.Booking, error)
	ModifyDates(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID string) (*model.Booking, error)
}

// carCacheInvalidator is satisfied by the cached car repository. The
// booking transaction moves the car's counter before commit, so the cache
// entry must be dropped once more after a successful commit.
type carCacheInvalidator interface {
	InvalidateCache(ctx context.Context, id string)
}

type bookingService struct {
	bookings  repository.BookingRepository
	locks     repository.BookingLockRepository
	cars      carrepository.CarRepository
	txManager mongodb.TransactionManager
	validator *bookingvalidator.BookingValidator
	publisher events.Publisher
	logger    *logger.Logger
}

func NewBookingService(
	bookings repository.BookingRepository,
	locks repository.BookingLockRepository,
	cars carrepository.CarRepository,
	txManager mongodb.TransactionManager,
	v *bookingvalidator.BookingValidator,
	publisher events.Publisher,
	log *logger.Logger,
) BookingService {
	return &bookingService{
		bookings:  bookings,
		locks:     locks,
		cars:      cars,
		txManager: txManager,
		validator: v,
		publisher: publisher,
		logger:    log,
	}
}

func (s *bookingService) Create(ctx context.Context, carID, userEmail string) (*model.Booking, int64, error) {
	if userEmail == "" {
		return nil, 0, apperrors.Unauthorized("an authenticated user email is required to book a car")
	}

	car, err := s.cars.FindByID(ctx, carID)
	if err != nil {
		return nil, 0, mapCarLookupError(carID, err)
	}

	if err := s.locks.Acquire(ctx, carID, userEmail); err != nil {
		if errors.Is(err, bookingerrors.ErrLockNotAcquired) {
			return nil, 0, apperrors.Conflict(bookingerrors.ErrAlreadyBooked.Error())
		}
		return nil, 0, apperrors.Internal("failed to reserve booking slot", err)
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), carID, userEmail); err != nil {
			s.logger.Warn("failed to release booking lock", "car_id", carID, "user_email", userEmail, "error", err)
		}
	}()

	now := time.Now().UTC()
	booking := &model.Booking{
		CarID:       carID,
		CarModel:    car.CarModel,
		CarImage:    car.Image,
		UserEmail:   userEmail,
		BookingDate: now,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, 1),
		Status:      model.StatusActive,
	}
	booking.TotalPrice = car.DailyRentalPrice * float64(nights(booking.StartDate, booking.EndDate))

	if err := s.validator.Validate(booking); err != nil {
		return nil, 0, apperrors.Validation(err.Error(), nil)
	}

	var bookingCount int64
	err = s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.bookings.FindActiveByCarAndUser(sessCtx, carID, userEmail)
		if err != nil && !errors.Is(err, bookingerrors.ErrNotFound) {
			return apperrors.Internal("failed to check existing booking", err)
		}
		if existing != nil {
			return apperrors.Conflict(bookingerrors.ErrAlreadyBooked.Error())
		}

		if _, err := s.bookings.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("failed to create booking", err)
		}

		count, err := s.cars.IncrementBookingCount(sessCtx, carID, 1)
		if err != nil {
			return apperrors.Internal("failed to update booking count", err)
		}
		bookingCount = count
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// The counter moved inside the transaction and the cache decorator
	// invalidated before commit; drop the entry again so a read that
	// re-cached the pre-commit count does not stick around.
	if inv, ok := s.cars.(carCacheInvalidator); ok {
		inv.InvalidateCache(ctx, carID)
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"car_id", carID,
		"user_email", userEmail,
		"booking_count", bookingCount,
	)
	s.publisher.Publish(ctx, events.EventBookingCreated, booking, bookingCount)

	return booking, bookingCount, nil
}

func (s *bookingService) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	if email == "" {
		return nil, apperrors.Unauthorized("an authenticated user email is required to list bookings")
	}

	bookings, err := s.bookings.FindByUserEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("failed to list bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) ModifyDates(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
	if err := s.validator.ValidateDates(newStart, newEnd); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingLookupError(bookingID, err)
	}
	if booking.Status != model.StatusActive {
		return nil, apperrors.Conflict(bookingerrors.ErrAlreadyCanceled.Error())
	}

	totalPrice := s.recomputePrice(ctx, booking, newStart, newEnd)

	updated, err := s.bookings.UpdateDates(ctx, bookingID, newStart, newEnd, totalPrice)
	if err != nil {
		return nil, mapBookingLookupError(bookingID, err)
	}

	s.logger.Info("booking dates modified",
		"booking_id", bookingID,
		"start_date", newStart,
		"end_date", newEnd,
		"total_price", totalPrice,
	)
	s.publisher.Publish(ctx, events.EventBookingModified, updated, 0)

	return updated, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID string) (*model.Booking, error) {
	// The counter stays put: it records bookings ever made, not active ones.
	updated, err := s.bookings.UpdateStatus(ctx, bookingID, model.StatusActive, model.StatusCanceled)
	if err != nil {
		switch {
		case errors.Is(err, bookingerrors.ErrAlreadyCanceled):
			return nil, apperrors.Conflict(bookingerrors.ErrAlreadyCanceled.Error())
		case errors.Is(err, bookingerrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("booking", bookingID)
		case errors.Is(err, bookingerrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("invalid booking ID format")
		default:
			return nil, apperrors.Internal("failed to cancel booking", err)
		}
	}

	s.logger.Info("booking canceled", "booking_id", bookingID)
	s.publisher.Publish(ctx, events.EventBookingCanceled, updated, 0)

	return updated, nil
}

// recomputePrice derives the nightly rate from the car when it still
// exists, otherwise from the booking's own price so modifying a booking
// for a deleted car keeps working.
func (s *bookingService) recomputePrice(ctx context.Context, booking *model.Booking, newStart, newEnd time.Time) float64 {
	newNights := nights(newStart, newEnd)

	car, err := s.cars.FindByID(ctx, booking.CarID)
	if err == nil {
		return car.DailyRentalPrice * float64(newNights)
	}

	oldNights := nights(booking.StartDate, booking.EndDate)
	dailyRate := booking.TotalPrice / float64(oldNights)
	return dailyRate * float64(newNights)
}

// nights is the billable night count for a date range. Same-day rentals
// bill one night.
func nights(start, end time.Time) int64 {
	hours := end.Sub(start).Hours()
	n := int64(math.Ceil(hours / 24))
	if n < 1 {
		return 1
	}
	return n
}

func mapCarLookupError(carID string, err error) error {
	switch {
	case errors.Is(err, carerrors.ErrNotFound):
		return apperrors.NotFoundWithID("car", carID)
	case errors.Is(err, carerrors.ErrInvalidID):
		return apperrors.InvalidInput("invalid car ID format")
	default:
		return apperrors.Internal("failed to load car", err)
	}
}

func mapBookingLookupError(bookingID string, err error) error {
	switch {
	case errors.Is(err, bookingerrors.ErrNotFound):
		return apperrors.NotFoundWithID("booking", bookingID)
	case errors.Is(err, bookingerrors.ErrInvalidID):
		return apperrors.InvalidInput("invalid booking ID format")
	default:
		return apperrors.Internal("booking operation failed", err)
	}
}
