// Package geo resolves place names to coordinates, measures great-circle
// distances and looks up points of interest around a coordinate.
package geo

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// EarthRadiusKm is the mean Earth radius used by Distance.
	EarthRadiusKm = 6371.0

	// DefaultRadiusMeters applies when Nearby is called with a radius <= 0.
	DefaultRadiusMeters = 1000.0

	// CategoryAny is the generic category. Every point of interest qualifies for it.
	CategoryAny = "attraction"
)

// Coordinate is an immutable latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate returns a Coordinate after range-checking both axes.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate (%f, %f) out of range", lat, lng)
	}
	return c, nil
}

// Valid reports whether latitude is within [-90, 90] and longitude within [-180, 180].
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180 &&
		!math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude)
}

// DistanceTo returns the great-circle distance to other in kilometers.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return Distance(c, other)
}

// Distance returns the haversine great-circle distance between a and b in kilometers.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Place is a free-text query successfully mapped to a coordinate.
type Place struct {
	Query      string     `json:"query"`
	Name       string     `json:"name,omitempty"`
	Coordinate Coordinate `json:"coordinate"`
}

// PointOfInterest is a single place returned by a nearby lookup.
type PointOfInterest struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	Coordinate     Coordinate       `json:"coordinate"`
	Rating         *float64         `json:"rating,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	Photos         []string         `json:"photos,omitempty"`
	DistanceMeters float64          `json:"distance_meters"`
}

// RatingOrZero returns the rating, or 0 when the provider gave none.
func (p PointOfInterest) RatingOrZero() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// PriceOrZero returns the price, or zero when the provider gave none.
func (p PointOfInterest) PriceOrZero() decimal.Decimal {
	if p.Price == nil {
		return decimal.Zero
	}
	return *p.Price
}

// Resolver is the pluggable geocoding and nearby-search backend.
//
// Resolve returns nil, nil when the query cannot be mapped to a coordinate;
// a non-nil error means the backend itself failed.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Place, error)
	Nearby(ctx context.Context, center Coordinate, category string, radiusMeters float64) ([]PointOfInterest, error)
}
