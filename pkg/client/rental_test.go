package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvio/pkg/engine"
	"carvio/pkg/model"
)

func TestCreateBookingParsesCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/cars/car1/booking", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rita@example.com", body["userEmail"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"bookingCount": 12})
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	conf, err := c.CreateBooking(context.Background(), "car1", "rita@example.com")
	require.NoError(t, err)
	assert.True(t, conf.CountKnown)
	assert.Equal(t, int64(12), conf.BookingCount)
}

func TestCreateBookingUnparsableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("booked!"))
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	conf, err := c.CreateBooking(context.Background(), "car1", "rita@example.com")
	require.NoError(t, err)
	assert.False(t, conf.CountKnown)
}

func TestCreateBookingAlreadyBookedMapsToConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Car is already booked by this user"})
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	_, err := c.CreateBooking(context.Background(), "car1", "rita@example.com")
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindConflict))
	assert.Contains(t, err.Error(), "already booked")
}

func TestCancelBookingAlreadyCanceledMapsToConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "Booking is already canceled"})
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	err := c.CancelBooking(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindConflict))
}

func TestUnknownErrorBodyMapsToServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("something broke"))
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	err := c.CancelBooking(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindServer))
	assert.Contains(t, err.Error(), "something broke")
}

func TestListBookingsDecodesWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rita@example.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"b1","carId":"car1","carModel":"Audi A4","userEmail":"rita@example.com","totalPrice":160,"status":"Active"}]`))
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	bookings, err := c.ListBookings(context.Background(), "rita@example.com")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "car1", bookings[0].CarID)
	assert.Equal(t, "Audi A4", bookings[0].CarModel)
	assert.Equal(t, float64(160), bookings[0].TotalPrice)
}

func TestModifyBookingSendsISODates(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/b1/modify", r.URL.Path)

		var body model.DateRange
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-09-01T00:00:00Z", body.NewStartDate)
		assert.Equal(t, "2026-09-04T00:00:00Z", body.NewEndDate)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(model.Booking{
			ID:         "b1",
			StartDate:  start,
			EndDate:    end,
			TotalPrice: 240,
			Status:     model.StatusActive,
		})
	}))
	defer srv.Close()

	c := NewRentalClient(srv.URL)
	booking, err := c.ModifyBooking(context.Background(), "b1", start, end)
	require.NoError(t, err)
	assert.Equal(t, float64(240), booking.TotalPrice)
}

func TestNetworkFailureMapsToNetworkKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewRentalClient(srv.URL)
	_, err := c.ListBookings(context.Background(), "rita@example.com")
	require.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindNetwork))
}
