// Package simulation turns a trip request into a priced itinerary estimate.
package simulation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neexbeast/tripsim/internal/catalog"
	"github.com/neexbeast/tripsim/internal/geo"
)

// EstimatedAttractions is how many of the top-ranked attractions are priced
// into TotalEstimate. The rest of the list is informational.
const EstimatedAttractions = 3

// Degraded categories reported in Result.Degraded.
const (
	DegradedFlights     = "flights"
	DegradedLodging     = "lodging"
	DegradedAttractions = "attractions"
	DegradedGeo         = "geo"
)

// Request is one trip to simulate.
type Request struct {
	Origin             string          `json:"origin"`
	OriginCountry      string          `json:"origin_country,omitempty"`
	Destination        string          `json:"destination"`
	DestinationCountry string          `json:"destination_country,omitempty"`
	DepartureDate      time.Time       `json:"departure_date"`
	ReturnDate         time.Time       `json:"return_date"`
	Budget             decimal.Decimal `json:"budget"`
	Travelers          int             `json:"travelers,omitempty"`
	Interests          []string        `json:"interests"`
	Currency           string          `json:"currency,omitempty"`
}

// Result is an immutable snapshot of one simulation. It is safe to cache under Request.Key.
type Result struct {
	FlightOptions []catalog.FlightOption  `json:"flight_options"`
	HotelOptions  []catalog.LodgingOption `json:"hotel_options"`
	Attractions   []geo.PointOfInterest   `json:"attractions"`
	TotalEstimate decimal.Decimal         `json:"total_estimate"`
	Currency      string                  `json:"currency"`
	Nights        int                     `json:"nights"`
	DistanceKm    *float64                `json:"distance_km,omitempty"`
	WithinBudget  bool                    `json:"within_budget"`
	Degraded      []string                `json:"degraded,omitempty"`
}

// ValidationError reports a malformed Request. No provider is called when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Record is a stored simulation: the request, its result and when it was composed.
type Record struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	Result    *Result   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord wraps res under req's ID.
func NewRecord(req Request, res *Result, now time.Time) *Record {
	return &Record{ID: req.ID(), Request: req, Result: res, CreatedAt: now.UTC()}
}
