// Package attraction ranks points of interest around a destination by how
// many of the traveler's interests they match.
package attraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/tripsim/internal/geo"
)

const (
	// DefaultLimit applies when Find is called with limit <= 0.
	DefaultLimit = 10

	// DefaultRadiusMeters is the city-scale search radius used per interest.
	DefaultRadiusMeters = 15000.0
)

// nearbyFinder is the subset of geo.Resolver the Finder needs.
type nearbyFinder interface {
	Nearby(ctx context.Context, center geo.Coordinate, category string, radiusMeters float64) ([]geo.PointOfInterest, error)
}

// Finder looks up and ranks attractions through a geo resolver.
type Finder struct {
	geo    nearbyFinder
	radius float64
	log    *slog.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithRadius overrides the per-interest search radius.
func WithRadius(meters float64) Option {
	return func(f *Finder) {
		if meters > 0 {
			f.radius = meters
		}
	}
}

// WithLogger sets the logger used for per-category failures.
func WithLogger(log *slog.Logger) Option {
	return func(f *Finder) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFinder constructs a Finder over the given resolver.
func NewFinder(resolver nearbyFinder, opts ...Option) *Finder {
	f := &Finder{geo: resolver, radius: DefaultRadiusMeters, log: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

type ranked struct {
	poi     geo.PointOfInterest
	matches int
}

// Find returns up to limit points of interest around center, ordered by the
// number of interests they matched and then by rating. A POI seen under several
// interests keeps its first occurrence. An empty interest list searches the
// generic attraction category. A failing category is skipped; Find only errors
// when every category failed.
func (f *Finder) Find(ctx context.Context, center geo.Coordinate, interests []string, limit int) ([]geo.PointOfInterest, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	categories := Categories(interests)
	results := make([][]geo.PointOfInterest, len(categories))
	failures := make([]error, len(categories))

	g, gCtx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("nearby lookup panicked", "category", cat, "recover", r)
					failures[i] = fmt.Errorf("nearby %s panicked: %v", cat, r)
				}
			}()
			pois, lookupErr := f.geo.Nearby(gCtx, center, cat, f.radius)
			if lookupErr != nil {
				f.log.Warn("nearby lookup failed", "category", cat, "err", lookupErr)
				failures[i] = lookupErr
				return nil
			}
			results[i] = pois
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	if failed == len(categories) {
		return nil, fmt.Errorf("finding attractions: %w", errors.Join(failures...))
	}

	var merged []*ranked
	byID := make(map[string]*ranked)
	for _, pois := range results {
		seen := make(map[string]bool, len(pois))
		for _, p := range pois {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true

			if r, ok := byID[p.ID]; ok {
				r.matches++
				continue
			}
			r := &ranked{poi: p, matches: 1}
			byID[p.ID] = r
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].matches != merged[j].matches {
			return merged[i].matches > merged[j].matches
		}
		return merged[i].poi.RatingOrZero() > merged[j].poi.RatingOrZero()
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}

	out := make([]geo.PointOfInterest, len(merged))
	for i, r := range merged {
		out[i] = r.poi
	}
	return out, nil
}

// Categories folds and de-duplicates interests, keeping first-seen order.
// No usable interest yields the generic attraction category.
func Categories(interests []string) []string {
	seen := make(map[string]bool, len(interests))
	out := make([]string, 0, len(interests))
	for _, in := range interests {
		c := geo.Fold(in)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{geo.CategoryAny}
	}
	return out
}
