package geo

import (
	"context"
	"errors"
	"fmt"
)

// Chain tries each Resolver in order. It lets a live adapter sit in front of
// the reference Table without the caller knowing there are two.
type Chain []Resolver

// Resolve returns the first hit. Errors are returned only when no link found
// the place and at least one of them failed.
func (c Chain) Resolve(ctx context.Context, query string) (*Place, error) {
	var errs []error
	for _, r := range c {
		p, err := r.Resolve(ctx, query)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p != nil {
			return p, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("resolving %s: %w", query, errors.Join(errs...))
	}
	return nil, nil
}

// Nearby returns the first non-empty successful answer.
func (c Chain) Nearby(ctx context.Context, center Coordinate, category string, radiusMeters float64) ([]PointOfInterest, error) {
	var errs []error
	for _, r := range c {
		pois, err := r.Nearby(ctx, center, category, radiusMeters)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(pois) > 0 {
			return pois, nil
		}
	}
	if len(errs) == len(c) && len(c) > 0 {
		return nil, fmt.Errorf("nearby %s: %w", category, errors.Join(errs...))
	}
	return []PointOfInterest{}, nil
}
