package model

import (
	"time"
)

// Booking status values. Active is implicit on creation, Canceled is
// terminal: no transition leaves it. Date modification does not change
// status.
const (
	StatusActive   = "Active"
	StatusCanceled = "Canceled"
)

// Booking is one user's reservation of one car for a date range. CarModel
// and CarImage are snapshots taken at booking time so the row stays
// renderable if the car is later edited or deleted. TotalPrice is computed
// server-side (daily price x nights) and must never be recomputed by
// clients.
type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CarID       string    `json:"carId" bson:"car_id" validate:"required,mongodb"`
	CarModel    string    `json:"carModel" bson:"car_model" validate:"omitempty,max=100"`
	CarImage    string    `json:"carImage,omitempty" bson:"car_image" validate:"omitempty,url"`
	UserEmail   string    `json:"userEmail" bson:"user_email" validate:"required,email"`
	BookingDate time.Time `json:"bookingDate" bson:"booking_date" validate:"omitempty"`
	StartDate   time.Time `json:"startDate" bson:"start_date" validate:"required"`
	EndDate     time.Time `json:"endDate" bson:"end_date" validate:"required,gtefield=StartDate"`
	TotalPrice  float64   `json:"totalPrice" bson:"total_price" validate:"omitempty,gte=0"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=Active Canceled"`
}

// DateRange is the payload of a modify request. Dates travel as ISO-8601
// strings on the wire; the server recomputes the total price from them.
type DateRange struct {
	NewStartDate string `json:"newStartDate" validate:"required"`
	NewEndDate   string `json:"newEndDate" validate:"required"`
}

// Identity is the authenticated caller, passed explicitly into every
// operation that requires one instead of being read from ambient session
// state.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (i Identity) IsZero() bool {
	return i.Email == ""
}
