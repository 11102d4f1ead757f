package model

import (
	"time"
)

// Car availability values. Availability is advisory metadata only: a car may
// show Available with any booking count, no capacity ceiling is modeled.
const (
	Available   = "Available"
	Unavailable = "Unavailable"
)

type Car struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CarModel         string    `json:"carModel" bson:"car_model" validate:"required,min=2,max=100"`
	DailyRentalPrice float64   `json:"dailyRentalPrice" bson:"daily_rental_price" validate:"required,gt=0"`
	Availability     string    `json:"availability" bson:"availability" validate:"required,oneof=Available Unavailable"`
	Location         string    `json:"location" bson:"location" validate:"required,min=2,max=100"`
	Features         []string  `json:"features" bson:"features" validate:"omitempty,dive,min=1,max=50"`
	Description      string    `json:"description" bson:"description" validate:"omitempty,max=2000"`
	Image            string    `json:"image" bson:"image" validate:"omitempty,url"`
	UserEmail        string    `json:"userEmail" bson:"user_email" validate:"required,email"`
	UserName         string    `json:"userName" bson:"user_name" validate:"omitempty,max=100"`
	DateAdded        time.Time `json:"dateAdded" bson:"date_added" validate:"omitempty"`
	BookingCount     int64     `json:"bookingCount" bson:"booking_count" validate:"omitempty,min=0"`
}

type CarUpdate struct {
	CarModel         string    `json:"carModel,omitempty" validate:"omitempty,min=2,max=100"`
	DailyRentalPrice *float64  `json:"dailyRentalPrice,omitempty" validate:"omitempty,gt=0"`
	Availability     string    `json:"availability,omitempty" validate:"omitempty,oneof=Available Unavailable"`
	Location         string    `json:"location,omitempty" validate:"omitempty,min=2,max=100"`
	Features         *[]string `json:"features,omitempty" validate:"omitempty,dive,min=1,max=50"`
	Description      *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Image            string    `json:"image,omitempty" validate:"omitempty,url"`
}
