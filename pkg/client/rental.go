package client

import (
	"context"
	"net/url"
	"strings"
	"time"

	"carvio/pkg/engine"
	"carvio/pkg/model"
)

// RentalClient implements engine.RentalAPI against the rentals REST
// contract. All mapping from response bodies to typed engine errors lives
// here, so the substring checks on backend error text stay in one place.
type RentalClient struct {
	httpClient *HttpClient
}

func NewRentalClient(baseURL string) *RentalClient {
	return &RentalClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *RentalClient) CreateBooking(ctx context.Context, carID, userEmail string) (*engine.BookingConfirmation, error) {
	path := "/api/cars/" + url.PathEscape(carID) + "/booking"
	resp, err := c.httpClient.PATCH(ctx, path, map[string]string{"userEmail": userEmail})
	if err != nil {
		return nil, engine.WrapError(engine.KindNetwork, "booking request failed", err)
	}
	if !resp.IsSuccess() {
		return nil, mapAPIError(resp)
	}

	var payload struct {
		BookingCount int64 `json:"bookingCount"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		// Malformed success body (e.g. plain text). The engine reconciles
		// the counter from its previous value instead.
		return &engine.BookingConfirmation{CountKnown: false}, nil
	}
	return &engine.BookingConfirmation{BookingCount: payload.BookingCount, CountKnown: true}, nil
}

func (c *RentalClient) ListBookings(ctx context.Context, email string) ([]model.Booking, error) {
	q := url.Values{}
	q.Set("email", email)

	resp, err := c.httpClient.GET(ctx, "/api/bookings?"+q.Encode())
	if err != nil {
		return nil, engine.WrapError(engine.KindNetwork, "listing bookings failed", err)
	}
	if !resp.IsSuccess() {
		return nil, mapAPIError(resp)
	}

	var bookings []model.Booking
	if err := resp.DecodeJSON(&bookings); err != nil {
		return nil, engine.WrapError(engine.KindServer, "could not decode booking list", err)
	}
	return bookings, nil
}

func (c *RentalClient) ModifyBooking(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*model.Booking, error) {
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/modify"
	body := model.DateRange{
		NewStartDate: newStart.Format(time.RFC3339),
		NewEndDate:   newEnd.Format(time.RFC3339),
	}

	resp, err := c.httpClient.PATCH(ctx, path, body)
	if err != nil {
		return nil, engine.WrapError(engine.KindNetwork, "modify request failed", err)
	}
	if !resp.IsSuccess() {
		return nil, mapAPIError(resp)
	}

	var booking model.Booking
	if err := resp.DecodeJSON(&booking); err != nil {
		return nil, engine.WrapError(engine.KindServer, "could not decode updated booking", err)
	}
	return &booking, nil
}

func (c *RentalClient) CancelBooking(ctx context.Context, bookingID string) error {
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/cancel"
	resp, err := c.httpClient.PATCH(ctx, path, nil)
	if err != nil {
		return engine.WrapError(engine.KindNetwork, "cancel request failed", err)
	}
	if !resp.IsSuccess() {
		return mapAPIError(resp)
	}
	// Success body may be the booking record or plain text; neither is
	// needed, the engine applies a status-only merge.
	return nil
}

// mapAPIError turns a non-2xx response into a typed engine error. Known
// business-rule rejections become conflicts carrying the backend text
// verbatim; everything else is a server error with best-effort text.
func mapAPIError(resp *Response) *engine.Error {
	text := errorText(resp)

	lower := strings.ToLower(text)
	if strings.Contains(lower, "already booked") || strings.Contains(lower, "already canceled") {
		return engine.NewError(engine.KindConflict, text)
	}
	return engine.NewError(engine.KindServer, text)
}

// errorText extracts a human-readable message from an error body, which may
// be JSON ({error} or {message}) or plain text.
func errorText(resp *Response) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := resp.DecodeJSON(&payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := strings.TrimSpace(string(resp.Body)); text != "" {
		return text
	}
	return resp.Status
}
