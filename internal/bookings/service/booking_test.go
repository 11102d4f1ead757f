package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingerrors "carvio/internal/bookings/errors"
	"carvio/internal/bookings/events"
	bookingvalidator "carvio/internal/bookings/validator"
	carerrors "carvio/internal/cars/errors"
	carrepository "carvio/internal/cars/repository"
	mongodb "carvio/pkg/db/mongo"
	apperrors "carvio/pkg/errors"
	"carvio/pkg/logger"
	"carvio/pkg/model"
)

const (
	testCarID     = "64f1a0000000000000000001"
	testBookingID = "64f1a0000000000000000099"
	testEmail     = "rita@example.com"
)

type mockBookingRepo struct {
	createFn       func(ctx context.Context, booking *model.Booking) (string, error)
	findByIDFn     func(ctx context.Context, id string) (*model.Booking, error)
	findByEmailFn  func(ctx context.Context, email string) ([]model.Booking, error)
	findActiveFn   func(ctx context.Context, carID, email string) (*model.Booking, error)
	updateDatesFn  func(ctx context.Context, id string, start, end time.Time, totalPrice float64) (*model.Booking, error)
	updateStatusFn func(ctx context.Context, id string, fromStatus, toStatus string) (*model.Booking, error)

	createCalls int
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) (string, error) {
	m.createCalls++
	return m.createFn(ctx, booking)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockBookingRepo) FindByUserEmail(ctx context.Context, email string) ([]model.Booking, error) {
	return m.findByEmailFn(ctx, email)
}

func (m *mockBookingRepo) FindActiveByCarAndUser(ctx context.Context, carID, email string) (*model.Booking, error) {
	return m.findActiveFn(ctx, carID, email)
}

func (m *mockBookingRepo) UpdateDates(ctx context.Context, id string, start, end time.Time, totalPrice float64) (*model.Booking, error) {
	return m.updateDatesFn(ctx, id, start, end, totalPrice)
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, fromStatus, toStatus string) (*model.Booking, error) {
	return m.updateStatusFn(ctx, id, fromStatus, toStatus)
}

type mockLockRepo struct {
	acquireErr   error
	acquired     int
	released     int
	releaseAfter func()
}

func (m *mockLockRepo) Acquire(ctx context.Context, carID, userEmail string) error {
	if m.acquireErr != nil {
		return m.acquireErr
	}
	m.acquired++
	return nil
}

func (m *mockLockRepo) Release(ctx context.Context, carID, userEmail string) error {
	m.released++
	if m.releaseAfter != nil {
		m.releaseAfter()
	}
	return nil
}

type mockCarRepo struct {
	findByIDFn      func(ctx context.Context, id string) (*model.Car, error)
	incrementFn     func(ctx context.Context, id string, delta int64) (int64, error)
	incrementCall   int
	invalidateCalls int
}

func (m *mockCarRepo) Create(ctx context.Context, car *model.Car) (string, error) {
	panic("not used")
}

func (m *mockCarRepo) FindByID(ctx context.Context, id string) (*model.Car, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockCarRepo) FindAll(ctx context.Context, filter carrepository.CarFilter) ([]model.Car, error) {
	panic("not used")
}

func (m *mockCarRepo) Update(ctx context.Context, id string, update *model.CarUpdate) (*model.Car, error) {
	panic("not used")
}

func (m *mockCarRepo) Delete(ctx context.Context, id string) error {
	panic("not used")
}

func (m *mockCarRepo) IncrementBookingCount(ctx context.Context, id string, delta int64) (int64, error) {
	m.incrementCall++
	return m.incrementFn(ctx, id, delta)
}

func (m *mockCarRepo) InvalidateCache(ctx context.Context, id string) {
	m.invalidateCalls++
}

type mockTxManager struct{}

func (mockTxManager) ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT})
}

func newService(bookings *mockBookingRepo, locks *mockLockRepo, cars *mockCarRepo) BookingService {
	log := testLogger()
	return NewBookingService(
		bookings,
		locks,
		cars,
		mockTxManager{},
		bookingvalidator.NewBookingValidator(log),
		events.NewNopPublisher(),
		log,
	)
}

func testCar() *model.Car {
	return &model.Car{
		ID:               testCarID,
		CarModel:         "Audi A4",
		DailyRentalPrice: 80,
		Availability:     model.Available,
		Location:         "Berlin",
		UserEmail:        "owner@example.com",
		Image:            "https://cdn.example.com/a4.jpg",
		BookingCount:     5,
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.StatusCode()
}

func TestCreateBookingSuccess(t *testing.T) {
	bookings := &mockBookingRepo{
		findActiveFn: func(ctx context.Context, carID, email string) (*model.Booking, error) {
			return nil, bookingerrors.ErrNotFound
		},
		createFn: func(ctx context.Context, booking *model.Booking) (string, error) {
			booking.ID = testBookingID
			return testBookingID, nil
		},
	}
	locks := &mockLockRepo{}
	cars := &mockCarRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Car, error) {
			return testCar(), nil
		},
		incrementFn: func(ctx context.Context, id string, delta int64) (int64, error) {
			if delta != 1 {
				t.Fatalf("expected delta 1, got %d", delta)
			}
			return 6, nil
		},
	}

	booking, count, err := newService(bookings, locks, cars).Create(context.Background(), testCarID, testEmail)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 6 {
		t.Errorf("expected booking count 6, got %d", count)
	}
	if booking.Status != model.StatusActive {
		t.Errorf("expected status %q, got %q", model.StatusActive, booking.Status)
	}
	if booking.CarModel != "Audi A4" {
		t.Errorf("expected car model snapshot, got %q", booking.CarModel)
	}
	if booking.TotalPrice != 80 {
		t.Errorf("expected one-night price 80, got %v", booking.TotalPrice)
	}
	if locks.acquired != 1 || locks.released != 1 {
		t.Errorf("expected lock acquired and released once, got %d/%d", locks.acquired, locks.released)
	}
	// The in-transaction invalidation ran before commit; the decorator
	// entry must be dropped again afterwards.
	if cars.invalidateCalls != 1 {
		t.Errorf("expected one post-commit cache invalidation, got %d", cars.invalidateCalls)
	}
}

func TestCreateBookingDuplicateConflicts(t *testing.T) {
	bookings := &mockBookingRepo{
		findActiveFn: func(ctx context.Context, carID, email string) (*model.Booking, error) {
			return &model.Booking{ID: testBookingID, Status: model.StatusActive}, nil
		},
		createFn: func(ctx context.Context, booking *model.Booking) (string, error) {
			return "", nil
		},
	}
	cars := &mockCarRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Car, error) {
			return testCar(), nil
		},
		incrementFn: func(ctx context.Context, id string, delta int64) (int64, error) {
			return 0, nil
		},
	}

	_, _, err := newService(bookings, &mockLockRepo{}, cars).Create(context.Background(), testCarID, testEmail)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if status := statusOf(t, err); status != http.StatusConflict {
		t.Errorf("expected 409, got %d", status)
	}
	if !strings.Contains(err.Error(), bookingerrors.ErrAlreadyBooked.Error()) {
		t.Errorf("expected %q in message, got %q", bookingerrors.ErrAlreadyBooked, err.Error())
	}
	if bookings.createCalls != 0 {
		t.Errorf("expected no insert on duplicate, got %d", bookings.createCalls)
	}
	if cars.incrementCall != 0 {
		t.Errorf("expected counter untouched on duplicate, got %d increments", cars.incrementCall)
	}
	if cars.invalidateCalls != 0 {
		t.Errorf("expected no cache invalidation on duplicate, got %d", cars.invalidateCalls)
	}
}

func TestCreateBookingRequiresEmail(t *testing.T) {
	_, _, err := newService(&mockBookingRepo{}, &mockLockRepo{}, &mockCarRepo{}).Create(context.Background(), testCarID, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if status := statusOf(t, err); status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", status)
	}
}

func TestCreateBookingUnknownCar(t *testing.T) {
	cars := &mockCarRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Car, error) {
			return nil, carerrors.ErrNotFound
		},
	}

	_, _, err := newService(&mockBookingRepo{}, &mockLockRepo{}, cars).Create(context.Background(), testCarID, testEmail)
	if err == nil {
		t.Fatal("expected error")
	}
	if status := statusOf(t, err); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestCreateBookingLockContention(t *testing.T) {
	cars := &mockCarRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Car, error) {
			return testCar(), nil
		},
	}
	locks := &mockLockRepo{acquireErr: bookingerrors.ErrLockNotAcquired}

	_, _, err := newService(&mockBookingRepo{}, locks, cars).Create(context.Background(), testCarID, testEmail)
	if err == nil {
		t.Fatal("expected error")
	}
	if status := statusOf(t, err); status != http.StatusConflict {
		t.Errorf("expected 409, got %d", status)
	}
}

func TestModifyDatesRecomputesPriceFromCar(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	oldEnd := start.AddDate(0, 0, 2)
	newEnd := start.AddDate(0, 0, 3)

	var gotPrice float64
	bookings := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{
				ID:         testBookingID,
				CarID:      testCarID,
				StartDate:  start,
				EndDate:    oldEnd,
				TotalPrice: 160,
				Status:     model.StatusActive,
			}, nil
		},
		updateDatesFn: func(ctx context.Context, id string, s, e time.Time, totalPrice float64) (*model.Booking, error) {
			gotPrice = totalPrice
			return &model.Booking{
				ID:         id,
				CarID:      testCarID,
				StartDate:  s,
				EndDate:    e,
				TotalPrice: totalPrice,
				Status:     model.StatusActive,
			}, nil
		},
	}
	cars := &mockCarRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Car, error) {
			car := testCar()
			car.DailyRentalPrice = 100
			return car, nil
		},
	}

	updated, err := newService(bookings, &mockLockRepo{}, cars).ModifyDates(context.Background(), testBookingID, start, newEnd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPrice != 300 {
		t.Errorf("expected recomputed price 300 (3 nights x 100), got %v", gotPrice)
	}
	if updated.TotalPrice != 300 {
		t.Errorf("expected updated booking price 300, got %v", updated.TotalPrice)
	}
}

func TestModifyDatesDerivesRateWhenCarGone(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	var gotPrice float64
	bookings := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{
				ID:         testBookingID,
				CarID:      testCarID,
				StartDate:  start,
				EndDate:    start.AddDate(0, 0, 2),
				TotalPrice: 160,
				Status:     model.StatusActive,
			}, nil
		},
		updateDatesFn: func(ctx context.Context, id string, s, e time.Time, totalPrice float64) (*model.Booking, error) {
			gotPrice = totalPrice
			return &model.Booking{ID: id, TotalPrice: totalPrice, Status: model.StatusActive}, nil
		},
	}
	cars := &mockCarRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Car, error) {
			return nil, carerrors.ErrNotFound
		},
	}

	_, err := newService(bookings, &mockLockRepo{}, cars).ModifyDates(context.Background(), testBookingID, start, start.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 160 over 2 nights is 80/night, times 3 nights.
	if gotPrice != 240 {
		t.Errorf("expected derived price 240, got %v", gotPrice)
	}
}

func TestModifyDatesRejectsInvertedRange(t *testing.T) {
	bookings := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			t.Fatal("no lookup expected for invalid range")
			return nil, nil
		},
	}

	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	_, err := newService(bookings, &mockLockRepo{}, &mockCarRepo{}).ModifyDates(context.Background(), testBookingID, start, start.AddDate(0, 0, -1))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if status := statusOf(t, err); status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", status)
	}
}

func TestModifyDatesCanceledBookingConflicts(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	bookings := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: testBookingID, Status: model.StatusCanceled}, nil
		},
	}

	_, err := newService(bookings, &mockLockRepo{}, &mockCarRepo{}).ModifyDates(context.Background(), testBookingID, start, start.AddDate(0, 0, 2))
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !strings.Contains(err.Error(), bookingerrors.ErrAlreadyCanceled.Error()) {
		t.Errorf("expected %q in message, got %q", bookingerrors.ErrAlreadyCanceled, err.Error())
	}
}

func TestCancelSuccessKeepsCounter(t *testing.T) {
	bookings := &mockBookingRepo{
		updateStatusFn: func(ctx context.Context, id string, fromStatus, toStatus string) (*model.Booking, error) {
			if fromStatus != model.StatusActive || toStatus != model.StatusCanceled {
				t.Fatalf("unexpected transition %s -> %s", fromStatus, toStatus)
			}
			return &model.Booking{ID: id, Status: model.StatusCanceled}, nil
		},
	}
	cars := &mockCarRepo{}

	updated, err := newService(bookings, &mockLockRepo{}, cars).Cancel(context.Background(), testBookingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusCanceled {
		t.Errorf("expected canceled status, got %q", updated.Status)
	}
	if cars.incrementCall != 0 {
		t.Errorf("cancel must not touch the booking counter, got %d increments", cars.incrementCall)
	}
}

func TestCancelRepeatConflicts(t *testing.T) {
	bookings := &mockBookingRepo{
		updateStatusFn: func(ctx context.Context, id string, fromStatus, toStatus string) (*model.Booking, error) {
			return nil, bookingerrors.ErrAlreadyCanceled
		},
	}

	_, err := newService(bookings, &mockLockRepo{}, &mockCarRepo{}).Cancel(context.Background(), testBookingID)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if status := statusOf(t, err); status != http.StatusConflict {
		t.Errorf("expected 409, got %d", status)
	}
	if !strings.Contains(err.Error(), bookingerrors.ErrAlreadyCanceled.Error()) {
		t.Errorf("expected %q in message, got %q", bookingerrors.ErrAlreadyCanceled, err.Error())
	}
}

func TestListByEmailRequiresEmail(t *testing.T) {
	_, err := newService(&mockBookingRepo{}, &mockLockRepo{}, &mockCarRepo{}).ListByEmail(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if status := statusOf(t, err); status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", status)
	}
}

func TestNights(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int64
	}{
		{"same day", base, base, 1},
		{"one night", base, base.AddDate(0, 0, 1), 1},
		{"three nights", base, base.AddDate(0, 0, 3), 3},
		{"partial day rounds up", base, base.Add(25 * time.Hour), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nights(tt.start, tt.end); got != tt.want {
				t.Errorf("nights(%v, %v) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
