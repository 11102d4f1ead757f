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

	carerrors "carvio/internal/cars/errors"
	"carvio/pkg/logger"
	"carvio/pkg/model"
)

const carsCollection = "cars"

// CarFilter narrows FindAll. Zero values mean "no constraint".
type CarFilter struct {
	Availability string
	OwnerEmail   string
	Limit        int64
	Offset       int64
}

type CarRepository interface {
	Create(ctx context.Context, car *model.Car) (string, error)
	FindByID(ctx context.Context, id string) (*model.Car, error)
	FindAll(ctx context.Context, filter CarFilter) ([]model.Car, error)
	Update(ctx context.Context, id string, update *model.CarUpdate) (*model.Car, error)
	Delete(ctx context.Context, id string) error
	IncrementBookingCount(ctx context.Context, id string, delta int64) (int64, error)
}

type mongoCarRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewMongoCarRepository(db *mongo.Database, log *logger.Logger) CarRepository {
	return &mongoCarRepository{
		collection: db.Collection(carsCollection),
		logger:     log,
	}
}

func (r *mongoCarRepository) Create(ctx context.Context, car *model.Car) (string, error) {
	if car.DateAdded.IsZero() {
		car.DateAdded = time.Now().UTC()
	}
	car.BookingCount = 0

	doc := carToDocument(car)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Error("failed to insert car", "error", err)
		return "", fmt.Errorf("failed to insert car: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted ID type %T", result.InsertedID)
	}

	car.ID = oid.Hex()
	return car.ID, nil
}

func (r *mongoCarRepository) FindByID(ctx context.Context, id string) (*model.Car, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, carerrors.ErrInvalidID
	}

	var doc carDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, carerrors.ErrNotFound
		}
		r.logger.Error("failed to find car", "car_id", id, "error", err)
		return nil, fmt.Errorf("failed to find car: %w", err)
	}

	return doc.toModel(), nil
}

func (r *mongoCarRepository) FindAll(ctx context.Context, filter CarFilter) ([]model.Car, error) {
	query := bson.M{}
	if filter.Availability != "" {
		query["availability"] = filter.Availability
	}
	if filter.OwnerEmail != "" {
		query["user_email"] = filter.OwnerEmail
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_added", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("failed to list cars", "error", err)
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []carDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cars: %w", err)
	}

	cars := make([]model.Car, 0, len(docs))
	for i := range docs {
		cars = append(cars, *docs[i].toModel())
	}
	return cars, nil
}

func (r *mongoCarRepository) Update(ctx context.Context, id string, update *model.CarUpdate) (*model.Car, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, carerrors.ErrInvalidID
	}

	set := bson.M{}
	if update.CarModel != "" {
		set["car_model"] = update.CarModel
	}
	if update.DailyRentalPrice != nil {
		set["daily_rental_price"] = *update.DailyRentalPrice
	}
	if update.Availability != "" {
		set["availability"] = update.Availability
	}
	if update.Location != "" {
		set["location"] = update.Location
	}
	if update.Features != nil {
		set["features"] = *update.Features
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Image != "" {
		set["image"] = update.Image
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc carDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, carerrors.ErrNotFound
		}
		r.logger.Error("failed to update car", "car_id", id, "error", err)
		return nil, fmt.Errorf("failed to update car: %w", err)
	}

	return doc.toModel(), nil
}

func (r *mongoCarRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return carerrors.ErrInvalidID
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("failed to delete car", "car_id", id, "error", err)
		return fmt.Errorf("failed to delete car: %w", err)
	}
	if result.DeletedCount == 0 {
		return carerrors.ErrNotFound
	}
	return nil
}

// IncrementBookingCount applies delta atomically and returns the new count.
// Callers run it inside the booking transaction so the counter moves with
// the booking insert or not at all.
func (r *mongoCarRepository) IncrementBookingCount(ctx context.Context, id string, delta int64) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, carerrors.ErrInvalidID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc carDocument
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"booking_count": delta}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, carerrors.ErrNotFound
		}
		r.logger.Error("failed to increment booking count", "car_id", id, "error", err)
		return 0, fmt.Errorf("failed to increment booking count: %w", err)
	}

	return doc.BookingCount, nil
}

// carDocument is the BSON shape. The _id round-trips as an ObjectID while
// the model carries it as a hex string.
type carDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	CarModel         string             `bson:"car_model"`
	DailyRentalPrice float64            `bson:"daily_rental_price"`
	Availability     string             `bson:"availability"`
	Location         string             `bson:"location"`
	Features         []string           `bson:"features,omitempty"`
	Description      string             `bson:"description,omitempty"`
	Image            string             `bson:"image,omitempty"`
	UserEmail        string             `bson:"user_email"`
	UserName         string             `bson:"user_name,omitempty"`
	DateAdded        time.Time          `bson:"date_added"`
	BookingCount     int64              `bson:"booking_count"`
}

func carToDocument(car *model.Car) bson.M {
	return bson.M{
		"car_model":          car.CarModel,
		"daily_rental_price": car.DailyRentalPrice,
		"availability":       car.Availability,
		"location":           car.Location,
		"features":           car.Features,
		"description":        car.Description,
		"image":              car.Image,
		"user_email":         car.UserEmail,
		"user_name":          car.UserName,
		"date_added":         car.DateAdded,
		"booking_count":      car.BookingCount,
	}
}

func (d *carDocument) toModel() *model.Car {
	return &model.Car{
		ID:               d.ID.Hex(),
		CarModel:         d.CarModel,
		DailyRentalPrice: d.DailyRentalPrice,
		Availability:     d.Availability,
		Location:         d.Location,
		Features:         d.Features,
		Description:      d.Description,
		Image:            d.Image,
		UserEmail:        d.UserEmail,
		UserName:         d.UserName,
		DateAdded:        d.DateAdded,
		BookingCount:     d.BookingCount,
	}
}
