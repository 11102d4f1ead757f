package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingerrors "carvio/internal/bookings/errors"
	"carvio/pkg/logger"
	"carvio/pkg/model"
)

const bookingsCollection = "bookings"

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) (string, error)
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUserEmail(ctx context.Context, email string) ([]model.Booking, error)
	FindActiveByCarAndUser(ctx context.Context, carID, email string) (*model.Booking, error)
	UpdateDates(ctx context.Context, id string, start, end time.Time, totalPrice float64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, fromStatus, toStatus string) (*model.Booking, error)
}

type mongoBookingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewMongoBookingRepository(db *mongo.Database, log *logger.Logger) BookingRepository {
	return &mongoBookingRepository{
		collection: db.Collection(bookingsCollection),
		logger:     log,
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) (string, error) {
	if booking.BookingDate.IsZero() {
		booking.BookingDate = time.Now().UTC()
	}

	carOID, err := primitive.ObjectIDFromHex(booking.CarID)
	if err != nil {
		return "", bookingerrors.ErrInvalidID
	}

	doc := bson.M{
		"car_id":       carOID,
		"car_model":    booking.CarModel,
		"car_image":    booking.CarImage,
		"user_email":   booking.UserEmail,
		"booking_date": booking.BookingDate,
		"start_date":   booking.StartDate,
		"end_date":     booking.EndDate,
		"total_price":  booking.TotalPrice,
		"status":       booking.Status,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Error("failed to insert booking", "car_id", booking.CarID, "error", err)
		return "", fmt.Errorf("failed to insert booking: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}

	booking.ID = oid.Hex()
	return booking.ID, nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, bookingerrors.ErrInvalidID
	}

	var doc bookingDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingerrors.ErrNotFound
		}
		r.logger.Error("failed to find booking", "booking_id", id, "error", err)
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return doc.toModel(), nil
}

func (r *mongoBookingRepository) FindByUserEmail(ctx context.Context, email string) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "booking_date", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_email": email}, opts)
	if err != nil {
		r.logger.Error("failed to list bookings", "user_email", email, "error", err)
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]model.Booking, 0, len(docs))
	for i := range docs {
		bookings = append(bookings, *docs[i].toModel())
	}
	return bookings, nil
}

// FindActiveByCarAndUser is the duplicate check for booking creation. It
// runs inside the creation transaction so a concurrent insert is either
// visible here or conflicts on commit.
func (r *mongoBookingRepository) FindActiveByCarAndUser(ctx context.Context, carID, email string) (*model.Booking, error) {
	carOID, err := primitive.ObjectIDFromHex(carID)
	if err != nil {
		return nil, bookingerrors.ErrInvalidID
	}

	var doc bookingDocument
	err = r.collection.FindOne(ctx, bson.M{
		"car_id":     carOID,
		"user_email": email,
		"status":     model.StatusActive,
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to check existing booking: %w", err)
	}

	return doc.toModel(), nil
}

func (r *mongoBookingRepository) UpdateDates(ctx context.Context, id string, start, end time.Time, totalPrice float64) (*model.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, bookingerrors.ErrInvalidID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookingDocument
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"start_date":  start,
			"end_date":    end,
			"total_price": totalPrice,
		}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingerrors.ErrNotFound
		}
		r.logger.Error("failed to update booking dates", "booking_id", id, "error", err)
		return nil, fmt.Errorf("failed to update booking dates: %w", err)
	}

	return doc.toModel(), nil
}

// UpdateStatus flips status only when the current status matches
// fromStatus. A no-document result on an existing booking means the guard
// failed, which callers surface as an already-canceled conflict.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, fromStatus, toStatus string) (*model.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, bookingerrors.ErrInvalidID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookingDocument
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "status": fromStatus},
		bson.M{"$set": bson.M{"status": toStatus}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a missing booking from a status mismatch.
			if _, findErr := r.FindByID(ctx, id); findErr == nil {
				return nil, bookingerrors.ErrAlreadyCanceled
			}
			return nil, bookingerrors.ErrNotFound
		}
		r.logger.Error("failed to update booking status", "booking_id", id, "error", err)
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	return doc.toModel(), nil
}

type bookingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CarID       primitive.ObjectID `bson:"car_id"`
	CarModel    string             `bson:"car_model,omitempty"`
	CarImage    string             `bson:"car_image,omitempty"`
	UserEmail   string             `bson:"user_email"`
	BookingDate time.Time          `bson:"booking_date"`
	StartDate   time.Time          `bson:"start_date"`
	EndDate     time.Time          `bson:"end_date"`
	TotalPrice  float64            `bson:"total_price"`
	Status      string             `bson:"status"`
}

func (d *bookingDocument) toModel() *model.Booking {
	return &model.Booking{
		ID:          d.ID.Hex(),
		CarID:       d.CarID.Hex(),
		CarModel:    d.CarModel,
		CarImage:    d.CarImage,
		UserEmail:   d.UserEmail,
		BookingDate: d.BookingDate,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		TotalPrice:  d.TotalPrice,
		Status:      d.Status,
	}
}
