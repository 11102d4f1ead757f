package engine

import (
	"sync"

	"carvio/pkg/model"
)

// Catalog is the in-process car store. The engine is its only writer; views
// read from it freely. Updates are merge-by-replace keyed by car id.
type Catalog struct {
	mu   sync.RWMutex
	cars map[string]model.Car
}

func NewCatalog() *Catalog {
	return &Catalog{
		cars: make(map[string]model.Car),
	}
}

// Put replaces the stored record for the car's id with the given snapshot.
func (c *Catalog) Put(car model.Car) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cars[car.ID] = car
}

func (c *Catalog) PutAll(cars []model.Car) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, car := range cars {
		c.cars[car.ID] = car
	}
}

func (c *Catalog) Get(id string) (model.Car, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	car, ok := c.cars[id]
	return car, ok
}

func (c *Catalog) List() []model.Car {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cars := make([]model.Car, 0, len(c.cars))
	for _, car := range c.cars {
		cars = append(cars, car)
	}
	return cars
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cars)
}

// setBookingCount applies a confirmed counter value to a loaded car. The
// counter never goes below zero.
func (c *Catalog) setBookingCount(id string, count int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	car, ok := c.cars[id]
	if !ok {
		return false
	}
	if count < 0 {
		count = 0
	}
	car.BookingCount = count
	c.cars[id] = car
	return true
}
