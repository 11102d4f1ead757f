package main

import (
	"carvio/internal/bookings/events"
	bookinghandler "carvio/internal/bookings/handler"
	bookingrepository "carvio/internal/bookings/repository"
	bookingservice "carvio/internal/bookings/service"
	bookingvalidator "carvio/internal/bookings/validator"
	carhandler "carvio/internal/cars/handler"
	carrepository "carvio/internal/cars/repository"
	carservice "carvio/internal/cars/service"
	carvalidator "carvio/internal/cars/validator"
	"carvio/pkg/app"
	"carvio/pkg/config"
	"carvio/pkg/contracts"
	mongodb "carvio/pkg/db/mongo"
	"carvio/pkg/kafka"
)

const bookingEventsTopic = "booking-events"

func main() {
	cfg := config.Load("rentals")
	cfg.SetMongo()
	cfg.SetRedis()

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)

	var carRepo carrepository.CarRepository = carrepository.NewMongoCarRepository(db, cfg.Log)
	if cfg.Client.Redis != nil {
		carRepo = carrepository.NewCachedCarRepository(carRepo, cfg.Client.Redis, cfg.CarCacheTTL, cfg.Log)
	}

	bookingRepo := bookingrepository.NewMongoBookingRepository(db, cfg.Log)
	lockRepo := bookingrepository.NewMongoBookingLockRepository(db, cfg.BookingLockTTL, cfg.Log)
	txManager := mongodb.NewTransactionManager(cfg.Client.Mongo)

	publisher := events.NewNopPublisher()
	kafkaCfg := kafka.Load()
	if kafkaCfg.Enabled() {
		producer, err := kafka.NewProducer(kafkaCfg, bookingEventsTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer, cfg.Log)
		cfg.Log.Info("Kafka event publishing enabled", "topic", bookingEventsTopic)
	}

	carSvc := carservice.NewCarService(carRepo, carvalidator.NewCarValidator(cfg.Log), cfg.Log)
	bookingSvc := bookingservice.NewBookingService(
		bookingRepo,
		lockRepo,
		carRepo,
		txManager,
		bookingvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg.Log,
	)

	apiHandlers := []contracts.Handler{
		carhandler.NewCarHandler(carSvc, cfg.Log),
		bookinghandler.NewBookingHandler(bookingSvc, cfg.Log),
	}
	healthHandlers := []contracts.Handler{
		carhandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	}

	application := app.New(cfg, apiHandlers, healthHandlers)
	if err := application.Run(); err != nil {
		cfg.Log.Fatal("Application exited with error", "error", err)
	}
}
