package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/neexbeast/tripsim/internal/geo"
)

var (
	flightNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tripsim/flight"))
	lodgingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tripsim/lodging"))
)

type carrier struct {
	name       string
	code       string
	number     int
	factor     decimal.Decimal
	departHour int
	connects   bool
}

var carriers = []carrier{
	{name: "LATAM", code: "LA", number: 3340, factor: decimal.RequireFromString("1.15"), departHour: 7},
	{name: "GOL", code: "G3", number: 1620, factor: decimal.RequireFromString("1.00"), departHour: 10},
	{name: "Azul", code: "AD", number: 4051, factor: decimal.RequireFromString("0.92"), departHour: 14, connects: true},
}

type stayTier struct {
	kind      string
	rating    float64
	base      decimal.Decimal
	amenities []string
}

var stayTiers = []stayTier{
	{kind: "Hostel", rating: 3.6, base: decimal.RequireFromString("95"), amenities: []string{"wifi", "shared kitchen"}},
	{kind: "Pousada", rating: 4.2, base: decimal.RequireFromString("210"), amenities: []string{"wifi", "breakfast"}},
	{kind: "Hotel", rating: 4.4, base: decimal.RequireFromString("340"), amenities: []string{"wifi", "breakfast", "pool"}},
	{kind: "Resort", rating: 4.7, base: decimal.RequireFromString("720"), amenities: []string{"wifi", "breakfast", "pool", "spa", "all inclusive"}},
}

var (
	baseFare      = decimal.NewFromInt(180)
	farePerKm     = decimal.RequireFromString("0.22")
	extraTraveler = decimal.RequireFromString("0.35")
)

const (
	cruiseKmH       = 800.0
	groundMinutes   = 35
	layoverMinutes  = 80
	connectAboveKm  = 800.0
	minRouteKm      = 50.0
	fallbackRouteKm = 400
	fallbackSpanKm  = 2600
)

// Reference is a deterministic catalog used when no live provider is configured.
// When a resolver is given, fares scale with the great-circle distance between
// origin and destination; otherwise a stable distance is derived from the names.
// A resolver error is logged and treated like an unresolved name.
type Reference struct {
	resolver geo.Resolver
	currency string
	log      *slog.Logger
}

// ReferenceOption configures a Reference catalog.
type ReferenceOption func(*Reference)

// WithLogger sets the logger used for resolver failures.
func WithLogger(log *slog.Logger) ReferenceOption {
	return func(r *Reference) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReference constructs a Reference catalog quoting in currency. resolver may be nil.
func NewReference(resolver geo.Resolver, currency string, opts ...ReferenceOption) *Reference {
	r := &Reference{resolver: resolver, currency: currency, log: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Flights returns r as a FlightCatalog.
func (r *Reference) Flights() FlightCatalog { return FlightSearchFunc(r.SearchFlights) }

// Lodging returns r as a LodgingCatalog.
func (r *Reference) Lodging() LodgingCatalog { return LodgingSearchFunc(r.SearchLodging) }

// SearchFlights returns one option per carrier, sorted with SortFlights.
func (r *Reference) SearchFlights(ctx context.Context, origin, destination string, departure, ret time.Time) ([]FlightOption, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return []FlightOption{}, nil
	}

	km := r.routeKm(ctx, origin, destination)
	day := civilDate(departure)
	fare := decimal.NewFromFloat(km).Round(1).Mul(farePerKm).Add(baseFare)
	routeKey := geo.Fold(origin) + "|" + geo.Fold(destination) + "|" + day.Format(time.DateOnly) + "|" + civilDate(ret).Format(time.DateOnly)

	opts := make([]FlightOption, 0, len(carriers))
	for _, c := range carriers {
		stops := 0
		if c.connects && km > connectAboveKm {
			stops = 1
		}
		minutes := int(km/cruiseKmH*60) + groundMinutes + stops*layoverMinutes
		dep := day.Add(time.Duration(c.departHour) * time.Hour)

		opts = append(opts, FlightOption{
			ID:            uuid.NewSHA1(flightNamespace, []byte(routeKey+"|"+c.code)).String(),
			Airline:       c.name,
			FlightNumber:  fmt.Sprintf("%s%d", c.code, c.number),
			DepartureTime: dep,
			ArrivalTime:   dep.Add(time.Duration(minutes) * time.Minute),
			Price:         fare.Mul(c.factor).Round(2),
			Currency:      r.currency,
			Stops:         stops,
		})
	}

	SortFlights(opts)
	return opts, nil
}

// SearchLodging returns one option per stay tier, sorted with SortLodging.
func (r *Reference) SearchLodging(ctx context.Context, destination string, departure, ret time.Time, travelers int) ([]LodgingOption, error) {
	if strings.TrimSpace(destination) == "" {
		return []LodgingOption{}, nil
	}
	if travelers < 1 {
		travelers = 1
	}

	name := strings.TrimSpace(destination)
	if p := r.resolve(ctx, destination); p != nil && p.Name != "" {
		name = p.Name
	}

	nights := Nights(departure, ret)
	cityFactor := decimal.NewFromInt(int64(85 + xxhash.Sum64String(geo.Fold(name))%31)).Div(decimal.NewFromInt(100))
	party := decimal.NewFromInt(int64(travelers - 1)).Mul(extraTraveler).Add(decimal.NewFromInt(1))
	stayKey := geo.Fold(name) + "|" + civilDate(departure).Format(time.DateOnly) + "|" + civilDate(ret).Format(time.DateOnly) + fmt.Sprintf("|%d", travelers)

	opts := make([]LodgingOption, 0, len(stayTiers))
	for _, t := range stayTiers {
		perNight := t.base.Mul(cityFactor).Mul(party).Round(2)
		opts = append(opts, NewLodgingOption(
			uuid.NewSHA1(lodgingNamespace, []byte(stayKey+"|"+t.kind)).String(),
			t.kind+" "+name,
			t.rating,
			perNight,
			nights,
			r.currency,
			append([]string(nil), t.amenities...),
		))
	}

	SortLodging(opts)
	return opts, nil
}

func (r *Reference) routeKm(ctx context.Context, origin, destination string) float64 {
	from := r.resolve(ctx, origin)
	to := r.resolve(ctx, destination)
	if from != nil && to != nil {
		return max(geo.Distance(from.Coordinate, to.Coordinate), minRouteKm)
	}

	h := xxhash.Sum64String(geo.Fold(origin) + "|" + geo.Fold(destination))
	return float64(fallbackRouteKm + h%fallbackSpanKm)
}

// resolve returns nil when there is no resolver, the name is unknown or the
// lookup failed.
func (r *Reference) resolve(ctx context.Context, name string) *geo.Place {
	if r.resolver == nil {
		return nil
	}
	p, err := r.resolver.Resolve(ctx, name)
	if err != nil {
		r.log.Warn("reference catalog: resolve failed, using raw name", "name", name, "err", err)
		return nil
	}
	return p
}
