package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvio/pkg/logger"
	"carvio/pkg/model"
)

type mockAPI struct {
	createFn func(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error)
	listFn   func(ctx context.Context, email string) ([]model.Booking, error)
	modifyFn func(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error)
	cancelFn func(ctx context.Context, bookingID string) error

	createCalls int32
	modifyCalls int32
	cancelCalls int32
}

func (m *mockAPI) CreateBooking(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error) {
	atomic.AddInt32(&m.createCalls, 1)
	return m.createFn(ctx, carID, userEmail)
}

func (m *mockAPI) ListBookings(ctx context.Context, email string) ([]model.Booking, error) {
	return m.listFn(ctx, email)
}

func (m *mockAPI) ModifyBooking(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
	atomic.AddInt32(&m.modifyCalls, 1)
	return m.modifyFn(ctx, bookingID, newStart, newEnd)
}

func (m *mockAPI) CancelBooking(ctx context.Context, bookingID string) error {
	atomic.AddInt32(&m.cancelCalls, 1)
	return m.cancelFn(ctx, bookingID)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT})
}

func newTestEngine(api RentalAPI, cars ...model.Car) *Engine {
	catalog := NewCatalog()
	catalog.PutAll(cars)
	return New(api, catalog, testLogger())
}

var testIdentity = model.Identity{Email: "rita@example.com", Name: "Rita"}

func TestCreateBookingIncrementsCounter(t *testing.T) {
	api := &mockAPI{
		createFn: func(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error) {
			return &BookingConfirmation{BookingCount: 8, CountKnown: true}, nil
		},
	}
	eng := newTestEngine(api, model.Car{ID: "car1", CarModel: "Audi A4", BookingCount: 7})

	count, err := eng.CreateBooking(context.Background(), "car1", testIdentity)
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)

	car, ok := eng.Catalog().Get("car1")
	require.True(t, ok)
	assert.Equal(t, int64(8), car.BookingCount)
}

func TestCreateBookingFallsBackWhenCountUnknown(t *testing.T) {
	api := &mockAPI{
		createFn: func(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error) {
			// Backend succeeded but the body was unparsable.
			return &BookingConfirmation{CountKnown: false}, nil
		},
	}
	eng := newTestEngine(api, model.Car{ID: "car1", CarModel: "Audi A4", BookingCount: 3})

	count, err := eng.CreateBooking(context.Background(), "car1", testIdentity)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	car, _ := eng.Catalog().Get("car1")
	assert.Equal(t, int64(4), car.BookingCount)
}

func TestCreateBookingRequiresIdentity(t *testing.T) {
	api := &mockAPI{
		createFn: func(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error) {
			t.Fatal("no network call expected for anonymous caller")
			return nil, nil
		},
	}
	eng := newTestEngine(api, model.Car{ID: "car1", BookingCount: 3})

	_, err := eng.CreateBooking(context.Background(), "car1", model.Identity{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthenticated))
	assert.Zero(t, api.createCalls)
}

func TestCreateBookingUnknownCar(t *testing.T) {
	api := &mockAPI{
		createFn: func(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error) {
			return &BookingConfirmation{BookingCount: 1, CountKnown: true}, nil
		},
	}
	eng := newTestEngine(api)

	_, err := eng.CreateBooking(context.Background(), "nope", testIdentity)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, api.createCalls)
}

func TestCreateBookingConflictLeavesCounterUntouched(t *testing.T) {
	api := &mockAPI{
		createFn: func(ctx context.Context, carID, userEmail string) (*BookingConfirmation, error) {
			return nil, NewError(KindConflict, "car is already booked by this user")
		},
	}
	eng := newTestEngine(api, model.Car{ID: "car1", BookingCount: 5})

	_, err := eng.CreateBooking(context.Background(), "car1", testIdentity)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))

	car, _ := eng.Catalog().Get("car1")
	assert.Equal(t, int64(5), car.BookingCount)
}

func TestListBookingsReplacesCollection(t *testing.T) {
	first := []model.Booking{{ID: "b1", Status: model.StatusActive}}
	second := []model.Booking{
		{ID: "b2", Status: model.StatusActive},
		{ID: "b3", Status: model.StatusCanceled},
	}
	calls := 0
	api := &mockAPI{
		listFn: func(ctx context.Context, email string) ([]model.Booking, error) {
			calls++
			if calls == 1 {
				return first, nil
			}
			return second, nil
		},
	}
	eng := newTestEngine(api)

	got, err := eng.ListBookings(context.Background(), testIdentity.Email)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = eng.ListBookings(context.Background(), testIdentity.Email)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID)
	assert.Equal(t, got, eng.Bookings())
}

func TestListBookingsRequiresEmail(t *testing.T) {
	eng := newTestEngine(&mockAPI{})

	_, err := eng.ListBookings(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthenticated))
}

func TestModifyBookingReplacesLocalRecord(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	updated := model.Booking{
		ID:         "b1",
		StartDate:  start,
		EndDate:    end,
		TotalPrice: 240,
		Status:     model.StatusActive,
	}
	api := &mockAPI{
		listFn: func(ctx context.Context, email string) ([]model.Booking, error) {
			return []model.Booking{{ID: "b1", TotalPrice: 80, Status: model.StatusActive}}, nil
		},
		modifyFn: func(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
			return &updated, nil
		},
	}
	eng := newTestEngine(api)
	_, err := eng.ListBookings(context.Background(), testIdentity.Email)
	require.NoError(t, err)

	got, err := eng.ModifyBooking(context.Background(), "b1", start, end)
	require.NoError(t, err)
	// The server's recomputed price wins, never a local calculation.
	assert.Equal(t, float64(240), got.TotalPrice)

	local := eng.Bookings()
	require.Len(t, local, 1)
	assert.Equal(t, updated, local[0])
}

func TestModifyBookingRejectsInvertedRangeWithoutNetworkCall(t *testing.T) {
	api := &mockAPI{
		modifyFn: func(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
			return nil, nil
		},
	}
	eng := newTestEngine(api)

	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -2)

	_, err := eng.ModifyBooking(context.Background(), "b1", start, end)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, api.modifyCalls)
}

func TestModifyBookingRejectsZeroDates(t *testing.T) {
	api := &mockAPI{}
	eng := newTestEngine(api)

	_, err := eng.ModifyBooking(context.Background(), "b1", time.Time{}, time.Now())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, api.modifyCalls)
}

func TestCancelBookingFlipsStatusOnly(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	api := &mockAPI{
		listFn: func(ctx context.Context, email string) ([]model.Booking, error) {
			return []model.Booking{{
				ID:         "b1",
				StartDate:  start,
				EndDate:    start.AddDate(0, 0, 2),
				TotalPrice: 160,
				Status:     model.StatusActive,
			}}, nil
		},
		cancelFn: func(ctx context.Context, bookingID string) error {
			return nil
		},
	}
	eng := newTestEngine(api)
	_, err := eng.ListBookings(context.Background(), testIdentity.Email)
	require.NoError(t, err)

	require.NoError(t, eng.CancelBooking(context.Background(), "b1"))

	local := eng.Bookings()
	require.Len(t, local, 1)
	assert.Equal(t, model.StatusCanceled, local[0].Status)
	// Dates and price stay frozen.
	assert.Equal(t, start, local[0].StartDate)
	assert.Equal(t, float64(160), local[0].TotalPrice)
}

func TestSameBookingOperationsAreSerialized(t *testing.T) {
	var inFlight, overlapped int32
	enter := func() {
		if atomic.AddInt32(&inFlight, 1) > 1 {
			atomic.StoreInt32(&overlapped, 1)
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	api := &mockAPI{
		modifyFn: func(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
			enter()
			return &model.Booking{ID: bookingID, StartDate: newStart, EndDate: newEnd, Status: model.StatusActive}, nil
		},
		cancelFn: func(ctx context.Context, bookingID string) error {
			enter()
			return nil
		},
	}
	eng := newTestEngine(api)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = eng.ModifyBooking(context.Background(), "b1", start, start.AddDate(0, 0, 2))
	}()
	go func() {
		defer wg.Done()
		_ = eng.CancelBooking(context.Background(), "b1")
	}()
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlapped), "modify and cancel on the same booking ran concurrently")
	assert.EqualValues(t, 1, api.modifyCalls)
	assert.EqualValues(t, 1, api.cancelCalls)
}

func TestDistinctBookingOperationsInterleave(t *testing.T) {
	arrived := make(chan string, 2)
	release := make(chan struct{})
	api := &mockAPI{
		cancelFn: func(ctx context.Context, bookingID string) error {
			arrived <- bookingID
			<-release
			return nil
		},
	}
	eng := newTestEngine(api)

	var wg sync.WaitGroup
	wg.Add(2)
	for _, id := range []string{"b1", "b2"} {
		go func(id string) {
			defer wg.Done()
			_ = eng.CancelBooking(context.Background(), id)
		}(id)
	}

	// Both cancels must be in flight at once; if one booking's lock blocked
	// the other, the second arrival never happens.
	for i := 0; i < 2; i++ {
		select {
		case <-arrived:
		case <-time.After(2 * time.Second):
			t.Fatal("operations on distinct bookings blocked each other")
		}
	}
	close(release)
	wg.Wait()
}

func TestCancelBookingRepeatSurfacesConflict(t *testing.T) {
	calls := 0
	api := &mockAPI{
		listFn: func(ctx context.Context, email string) ([]model.Booking, error) {
			return []model.Booking{{ID: "b1", Status: model.StatusActive}}, nil
		},
		cancelFn: func(ctx context.Context, bookingID string) error {
			calls++
			if calls == 1 {
				return nil
			}
			return NewError(KindConflict, "booking is already canceled")
		},
	}
	eng := newTestEngine(api)
	_, err := eng.ListBookings(context.Background(), testIdentity.Email)
	require.NoError(t, err)

	require.NoError(t, eng.CancelBooking(context.Background(), "b1"))

	err = eng.CancelBooking(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))

	local := eng.Bookings()
	assert.Equal(t, model.StatusCanceled, local[0].Status)
}
