// Package catalog defines the flight and lodging lookup contracts together
// with a deterministic reference implementation and a live Amadeus adapter.
package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FlightOption is one priced flight offer.
type FlightOption struct {
	ID            string          `json:"id"`
	Airline       string          `json:"airline"`
	FlightNumber  string          `json:"flight_number,omitempty"`
	DepartureTime time.Time       `json:"departure_time"`
	ArrivalTime   time.Time       `json:"arrival_time"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Stops         int             `json:"stops"`
}

// Duration is the time between departure and arrival.
func (f FlightOption) Duration() time.Duration {
	return f.ArrivalTime.Sub(f.DepartureTime)
}

// LodgingOption is one priced stay covering the whole trip.
type LodgingOption struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Rating        float64         `json:"rating"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Currency      string          `json:"currency"`
	Amenities     []string        `json:"amenities"`
}

// NewLodgingOption builds a LodgingOption whose TotalPrice is PricePerNight × nights.
func NewLodgingOption(id, name string, rating float64, perNight decimal.Decimal, nights int, currency string, amenities []string) LodgingOption {
	if amenities == nil {
		amenities = []string{}
	}
	return LodgingOption{
		ID:            id,
		Name:          name,
		Rating:        rating,
		PricePerNight: perNight,
		TotalPrice:    perNight.Mul(decimal.NewFromInt(int64(nights))),
		Currency:      currency,
		Amenities:     amenities,
	}
}

// FlightCatalog searches priced round-trip flights.
// Implementations return options ordered as SortFlights does, and an empty
// slice (not an error) when origin or destination is empty.
type FlightCatalog interface {
	Search(ctx context.Context, origin, destination string, departure, ret time.Time) ([]FlightOption, error)
}

// LodgingCatalog searches priced stays for the given dates and party size.
// Implementations return options ordered as SortLodging does.
type LodgingCatalog interface {
	Search(ctx context.Context, destination string, departure, ret time.Time, travelers int) ([]LodgingOption, error)
}

// Nights returns the number of calendar nights between departure and ret, at least 1.
func Nights(departure, ret time.Time) int {
	d := civilDate(departure)
	r := civilDate(ret)
	n := int(r.Sub(d).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortFlights orders by price, then duration, then stops. ID breaks any remaining tie.
func SortFlights(opts []FlightOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		if a.Duration() != b.Duration() {
			return a.Duration() < b.Duration()
		}
		if a.Stops != b.Stops {
			return a.Stops < b.Stops
		}
		return a.ID < b.ID
	})
}

// SortLodging orders by total price ascending, then rating descending. ID breaks any remaining tie.
func SortLodging(opts []LodgingOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		a, b := opts[i], opts[j]
		if c := a.TotalPrice.Cmp(b.TotalPrice); c != 0 {
			return c < 0
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})
}

// FlightSearchFunc adapts a plain function to FlightCatalog.
type FlightSearchFunc func(ctx context.Context, origin, destination string, departure, ret time.Time) ([]FlightOption, error)

// Search implements FlightCatalog.
func (f FlightSearchFunc) Search(ctx context.Context, origin, destination string, departure, ret time.Time) ([]FlightOption, error) {
	return f(ctx, origin, destination, departure, ret)
}

// LodgingSearchFunc adapts a plain function to LodgingCatalog.
type LodgingSearchFunc func(ctx context.Context, destination string, departure, ret time.Time, travelers int) ([]LodgingOption, error)

// Search implements LodgingCatalog.
func (f LodgingSearchFunc) Search(ctx context.Context, destination string, departure, ret time.Time, travelers int) ([]LodgingOption, error) {
	return f(ctx, destination, departure, ret, travelers)
}
