package events

import (
	"context"
	"time"

	"carvio/pkg/kafka"
	"carvio/pkg/logger"
	"carvio/pkg/model"
)

const (
	EventBookingCreated  = "booking.created"
	EventBookingModified = "booking.modified"
	EventBookingCanceled = "booking.canceled"
)

const (
	eventSource        = "rentals"
	eventSchemaVersion = "1"
)

// BookingEvent is the payload published for every booking state change.
// Events are keyed by car ID so consumers see per-car changes in order.
type BookingEvent struct {
	Type         string    `json:"type"`
	BookingID    string    `json:"bookingId"`
	CarID        string    `json:"carId"`
	UserEmail    string    `json:"userEmail"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	TotalPrice   float64   `json:"totalPrice"`
	Status       string    `json:"status"`
	BookingCount int64     `json:"bookingCount,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher emits booking events. Publishing is best effort: the booking
// transaction has already committed, so failures are logged and swallowed.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking, bookingCount int64)
}

type kafkaPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		logger:   log,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking, bookingCount int64) {
	event := BookingEvent{
		Type:         eventType,
		BookingID:    booking.ID,
		CarID:        booking.CarID,
		UserEmail:    booking.UserEmail,
		StartDate:    booking.StartDate,
		EndDate:      booking.EndDate,
		TotalPrice:   booking.TotalPrice,
		Status:       booking.Status,
		BookingCount: bookingCount,
		OccurredAt:   time.Now().UTC(),
	}

	msg, err := kafka.NewMessage(booking.CarID, eventType, event)
	if err != nil {
		p.logger.Error("failed to build booking event", "type", eventType, "booking_id", booking.ID, "error", err)
		return
	}
	msg.WithHeader(kafka.HeaderSource, eventSource).WithHeader(kafka.HeaderSchemaVersion, eventSchemaVersion)

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Error("failed to publish booking event", "type", eventType, "booking_id", booking.ID, "error", err)
		return
	}

	p.logger.Debug("booking event published", "type", eventType, "booking_id", booking.ID)
}

type nopPublisher struct{}

// NewNopPublisher is used when Kafka is not configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, string, *model.Booking, int64) {}
