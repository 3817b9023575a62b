package pricestate

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"arbwatch/internal/domain/models"
)

// Store keeps the latest price per venue.
//
// Each venue owns one slot holding an atomic pointer to an immutable sample, so a
// Set publishes with release semantics and a Get observes it with acquire semantics.
// There is no cross-venue atomicity: readers may pair samples taken at different times.
type Store struct {
	slots sync.Map // models.Venue -> *atomic.Pointer[models.PriceSample]
	now   func() time.Time
}

// New creates a store with the given venues pre-registered as unset.
func New(venues ...models.Venue) *Store {
	s := &Store{now: time.Now}
	for _, v := range venues {
		s.slot(v)
	}
	return s
}

func (s *Store) slot(venue models.Venue) *atomic.Pointer[models.PriceSample] {
	if p, ok := s.slots.Load(venue); ok {
		return p.(*atomic.Pointer[models.PriceSample])
	}
	p, _ := s.slots.LoadOrStore(venue, new(atomic.Pointer[models.PriceSample]))
	return p.(*atomic.Pointer[models.PriceSample])
}

// Set records price as the latest value for venue, overwriting any prior value.
// Non-positive or non-finite prices are ignored so the slot never holds a fake price.
func (s *Store) Set(venue models.Venue, price float64) {
	s.Publish(models.PriceSample{Venue: venue, Price: price, ObservedAt: s.now()})
}

// Publish stores a complete sample.
func (s *Store) Publish(sample models.PriceSample) {
	if !models.ValidPrice(sample.Price) {
		return
	}
	s.slot(sample.Venue).Store(&sample)
}

// Get returns the latest price for venue, or ok == false while it is unset.
func (s *Store) Get(venue models.Venue) (float64, bool) {
	sample, ok := s.Sample(venue)
	return sample.Price, ok
}

// Sample returns the latest sample for venue.
func (s *Store) Sample(venue models.Venue) (models.PriceSample, bool) {
	p, ok := s.slots.Load(venue)
	if !ok {
		return models.PriceSample{}, false
	}
	sample := p.(*atomic.Pointer[models.PriceSample]).Load()
	if sample == nil {
		return models.PriceSample{}, false
	}
	return *sample, true
}

// Venues lists every venue known to the store, sorted.
func (s *Store) Venues() []models.Venue {
	var out []models.Venue
	s.slots.Range(func(k, _ any) bool {
		out = append(out, k.(models.Venue))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
