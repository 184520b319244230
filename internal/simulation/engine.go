package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/tripsim/internal/attraction"
	"github.com/neexbeast/tripsim/internal/catalog"
	"github.com/neexbeast/tripsim/internal/geo"
)

const (
	defaultCurrency        = "BRL"
	defaultProviderTimeout = 8 * time.Second
)

// placeResolver is the geocoding half of geo.Resolver.
type placeResolver interface {
	Resolve(ctx context.Context, query string) (*geo.Place, error)
}

// attractionFinder is satisfied by attraction.Finder.
type attractionFinder interface {
	Find(ctx context.Context, center geo.Coordinate, interests []string, limit int) ([]geo.PointOfInterest, error)
}

// Engine orchestrates geo resolution, catalog lookups and attraction ranking.
// It holds no mutable state; one Engine serves concurrent Simulate calls.
type Engine struct {
	geo         placeResolver
	flights     catalog.FlightCatalog
	lodging     catalog.LodgingCatalog
	attractions attractionFinder

	currency        string
	timeout         time.Duration
	attractionLimit int
	log             *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultCurrency sets the working currency used when neither the request
// nor any flight option names one.
func WithDefaultCurrency(code string) Option {
	return func(e *Engine) {
		if code != "" {
			e.currency = code
		}
	}
}

// WithProviderTimeout bounds each provider call. A call that times out degrades to empty.
func WithProviderTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithAttractionLimit caps the ranked attraction list.
func WithAttractionLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.attractionLimit = n
		}
	}
}

// WithLogger sets the logger used for degradation events.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine constructs an Engine over the given providers.
func NewEngine(resolver placeResolver, flights catalog.FlightCatalog, lodging catalog.LodgingCatalog, finder attractionFinder, opts ...Option) *Engine {
	e := &Engine{
		geo:             resolver,
		flights:         flights,
		lodging:         lodging,
		attractions:     finder,
		currency:        defaultCurrency,
		timeout:         defaultProviderTimeout,
		attractionLimit: attraction.DefaultLimit,
		log:             slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Simulate validates req, queries every provider and composes a Result.
//
// A *ValidationError is returned before any provider is called. A failing or
// timed-out provider contributes an empty list and is named in Result.Degraded.
// If ctx is cancelled the in-flight calls are cancelled with it and ctx's error
// is returned.
func (e *Engine) Simulate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	travelers := max(req.Travelers, 1)
	nights := catalog.Nights(req.DepartureDate, req.ReturnDate)

	origin, dest, geoOK := e.resolvePlaces(ctx, req.Origin, req.Destination)

	var (
		flights   []catalog.FlightOption
		stays     []catalog.LodgingOption
		pois      []geo.PointOfInterest
		flightsOK bool
		lodgingOK bool
	)
	attractOK := true

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		flights, flightsOK = callProvider(gCtx, e, DegradedFlights, func(ctx context.Context) ([]catalog.FlightOption, error) {
			return e.flights.Search(ctx, req.Origin, req.Destination, req.DepartureDate, req.ReturnDate)
		})
		return nil
	})

	g.Go(func() error {
		stays, lodgingOK = callProvider(gCtx, e, DegradedLodging, func(ctx context.Context) ([]catalog.LodgingOption, error) {
			return e.lodging.Search(ctx, req.Destination, req.DepartureDate, req.ReturnDate, travelers)
		})
		return nil
	})

	if dest != nil {
		g.Go(func() error {
			pois, attractOK = callProvider(gCtx, e, DegradedAttractions, func(ctx context.Context) ([]geo.PointOfInterest, error) {
				return e.attractions.Find(ctx, dest.Coordinate, req.Interests, e.attractionLimit)
			})
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulating %s -> %s: %w", req.Origin, req.Destination, err)
	}

	res := &Result{
		FlightOptions: rankFlights(flights),
		HotelOptions:  rankLodging(stays, nights),
		Attractions:   nonNil(pois),
		Nights:        nights,
	}

	if origin != nil && dest != nil {
		km := math.Round(geo.Distance(origin.Coordinate, dest.Coordinate)*10) / 10
		res.DistanceKm = &km
	}

	res.Currency = e.workingCurrency(req, res.FlightOptions)
	res.TotalEstimate = estimate(res)
	res.WithinBudget = res.TotalEstimate.LessThanOrEqual(req.Budget)

	for _, d := range []struct {
		ok   bool
		name string
	}{
		{geoOK, DegradedGeo},
		{flightsOK, DegradedFlights},
		{lodgingOK, DegradedLodging},
		{attractOK, DegradedAttractions},
	} {
		if !d.ok {
			res.Degraded = append(res.Degraded, d.name)
		}
	}

	e.log.Debug("simulation composed",
		"origin", req.Origin,
		"destination", req.Destination,
		"flights", len(res.FlightOptions),
		"hotels", len(res.HotelOptions),
		"attractions", len(res.Attractions),
		"total", res.TotalEstimate.String(),
		"currency", res.Currency,
		"degraded", res.Degraded,
	)

	return res, nil
}

// resolvePlaces resolves both ends concurrently. ok is false when either end
// did not resolve, whether the place is unknown or the resolver failed.
func (e *Engine) resolvePlaces(ctx context.Context, origin, destination string) (from, to *geo.Place, ok bool) {
	var fromOK, toOK bool

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		from, fromOK = e.resolve(gCtx, origin)
		return nil
	})
	g.Go(func() error {
		to, toOK = e.resolve(gCtx, destination)
		return nil
	})
	_ = g.Wait()

	return from, to, fromOK && toOK && from != nil && to != nil
}

func (e *Engine) resolve(ctx context.Context, query string) (place *geo.Place, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("geo resolve panicked", "query", query, "recover", r)
			place, ok = nil, false
		}
	}()

	p, err := e.geo.Resolve(ctx, query)
	if err != nil {
		e.log.Warn("geo resolve failed", "provider", DegradedGeo, "query", query, "err", err)
		return nil, false
	}
	if p == nil {
		e.log.Info("place not found", "query", query)
	}
	return p, true
}

// callProvider runs fn under the provider timeout. Errors and panics are
// logged and turned into an empty result with ok=false.
func callProvider[T any](ctx context.Context, e *Engine, name string, fn func(context.Context) ([]T, error)) (out []T, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("provider panicked", "provider", name, "recover", r)
			out, ok = nil, false
		}
	}()

	res, err := fn(ctx)
	if err != nil {
		e.log.Warn("provider failed, using empty result", "provider", name, "err", err)
		return nil, false
	}
	return res, true
}

func (e *Engine) workingCurrency(req Request, flights []catalog.FlightOption) string {
	if len(flights) > 0 && flights[0].Currency != "" {
		return flights[0].Currency
	}
	if req.Currency != "" {
		return req.Currency
	}
	return e.currency
}

// estimate is cheapest flight + cheapest stay + the top EstimatedAttractions attraction prices.
func estimate(res *Result) decimal.Decimal {
	total := decimal.Zero
	if len(res.FlightOptions) > 0 {
		total = total.Add(res.FlightOptions[0].Price)
	}
	if len(res.HotelOptions) > 0 {
		total = total.Add(res.HotelOptions[0].TotalPrice)
	}
	for i, p := range res.Attractions {
		if i == EstimatedAttractions {
			break
		}
		total = total.Add(p.PriceOrZero())
	}
	return total
}

func rankFlights(in []catalog.FlightOption) []catalog.FlightOption {
	out := append(make([]catalog.FlightOption, 0, len(in)), in...)
	catalog.SortFlights(out)
	return out
}

func rankLodging(in []catalog.LodgingOption, nights int) []catalog.LodgingOption {
	out := make([]catalog.LodgingOption, 0, len(in))
	for _, l := range in {
		out = append(out, catalog.NewLodgingOption(l.ID, l.Name, l.Rating, l.PricePerNight, nights, l.Currency, l.Amenities))
	}
	catalog.SortLodging(out)
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
