package validator

import (
	"strings"
	"testing"
	"time"

	"carvio/pkg/logger"
	"carvio/pkg/model"
)

func newValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}))
}

func validBooking() *model.Booking {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &model.Booking{
		CarID:     "64f1a0000000000000000001",
		CarModel:  "Audi A4",
		UserEmail: "rita@example.com",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 2),
		Status:    model.StatusActive,
	}
}

func TestValidateAcceptsValidBooking(t *testing.T) {
	if err := newValidator().Validate(validBooking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadEmail(t *testing.T) {
	b := validBooking()
	b.UserEmail = "not-an-email"

	err := newValidator().Validate(b)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "UserEmail") {
		t.Errorf("expected UserEmail in message, got %q", err.Error())
	}
}

func TestValidateRejectsEndBeforeStart(t *testing.T) {
	b := validBooking()
	b.EndDate = b.StartDate.AddDate(0, 0, -1)

	if err := newValidator().Validate(b); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	b := validBooking()
	b.Status = "Pending"

	if err := newValidator().Validate(b); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateDates(t *testing.T) {
	v := newValidator()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"valid range", base, base.AddDate(0, 0, 3), false},
		{"same day allowed", base, base, false},
		{"inverted range", base, base.AddDate(0, 0, -1), true},
		{"zero start", time.Time{}, base, true},
		{"zero end", base, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDates(tt.start, tt.end)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
