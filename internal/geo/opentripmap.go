package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/neexbeast/tripsim/internal/provider"
)

const (
	otmGeoDefault = "https://api.opentripmap.com/0.1/en/places/geoname"
	otmPOIDefault = "https://api.opentripmap.com/0.1/en/places/radius"

	otmLimit = 50
)

// otmKinds maps interest tags to OpenTripMap "kinds". Unknown tags are sent as-is.
var otmKinds = map[string]string{
	CategoryAny: "interesting_places",
	"beach":     "beaches",
	"history":   "historic",
	"museum":    "museums",
	"nature":    "natural",
	"food":      "foods",
	"landmark":  "architecture",
	"culture":   "cultural",
	"shopping":  "shops",
	"religion":  "religion",
}

// OpenTripMap is a Resolver backed by the OpenTripMap places API.
type OpenTripMap struct {
	apiKey     string
	geoBaseURL string
	poiBaseURL string
	client     *http.Client
}

// NewOpenTripMap constructs an OpenTripMap resolver with the given API key.
func NewOpenTripMap(apiKey string) *OpenTripMap {
	return &OpenTripMap{
		apiKey:     apiKey,
		geoBaseURL: otmGeoDefault,
		poiBaseURL: otmPOIDefault,
		client:     provider.NewHTTPClient(),
	}
}

// NewOpenTripMapWithURLs constructs an OpenTripMap resolver pointing at custom URLs (for tests).
func NewOpenTripMapWithURLs(geoBaseURL, poiBaseURL, apiKey string) *OpenTripMap {
	return &OpenTripMap{
		apiKey:     apiKey,
		geoBaseURL: geoBaseURL,
		poiBaseURL: poiBaseURL,
		client:     provider.NewHTTPClient(),
	}
}

type otmGeoResponse struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

type otmRadiusResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			XID   string `json:"xid"`
			Name  string `json:"name"`
			Kinds string `json:"kinds"`
			Rate  int    `json:"rate"`
		} `json:"properties"`
	} `json:"features"`
}

// Resolve implements Resolver. An unknown place (404 or a non-OK status) is NotFound.
func (o *OpenTripMap) Resolve(ctx context.Context, query string) (*Place, error) {
	if Fold(query) == "" {
		return nil, nil
	}

	geoURL := o.geoBaseURL + "?name=" + url.QueryEscape(query) + "&apikey=" + o.apiKey

	var geo otmGeoResponse
	if err := provider.GetJSON(ctx, o.client, geoURL, &geo); err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opentripmap geocode for %s: %w", query, err)
	}

	if geo.Status != "" && geo.Status != "OK" {
		return nil, nil
	}

	c, err := NewCoordinate(geo.Lat, geo.Lon)
	if err != nil {
		return nil, fmt.Errorf("opentripmap geocode for %s: %w", query, err)
	}

	return &Place{Query: query, Name: geo.Name, Coordinate: c}, nil
}

// Nearby implements Resolver.
func (o *OpenTripMap) Nearby(ctx context.Context, center Coordinate, category string, radiusMeters float64) ([]PointOfInterest, error) {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	cat := Fold(category)
	if cat == "" {
		cat = CategoryAny
	}
	kinds, ok := otmKinds[cat]
	if !ok {
		kinds = cat
	}

	poiURL := fmt.Sprintf(
		"%s?radius=%s&lon=%f&lat=%f&kinds=%s&limit=%d&format=geojson&apikey=%s",
		o.poiBaseURL,
		strconv.FormatFloat(radiusMeters, 'f', 0, 64),
		center.Longitude, center.Latitude,
		url.QueryEscape(kinds), otmLimit, o.apiKey,
	)

	var raw otmRadiusResponse
	if err := provider.GetJSON(ctx, o.client, poiURL, &raw); err != nil {
		return nil, fmt.Errorf("opentripmap radius for %s: %w", category, err)
	}

	pois := make([]PointOfInterest, 0, len(raw.Features))
	for _, f := range raw.Features {
		if f.Properties.Name == "" || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		c, err := NewCoordinate(f.Geometry.Coordinates[1], f.Geometry.Coordinates[0])
		if err != nil {
			continue
		}
		meters := Distance(center, c) * 1000
		if meters > radiusMeters {
			continue
		}

		p := PointOfInterest{
			ID:             f.Properties.XID,
			Name:           f.Properties.Name,
			Category:       cat,
			Coordinate:     c,
			DistanceMeters: meters,
		}
		if f.Properties.Rate > 0 {
			r := float64(f.Properties.Rate)
			p.Rating = &r
		}
		if p.ID == "" {
			p.ID = "otm:" + Fold(p.Name)
		}
		pois = append(pois, p)
	}

	SortByDistance(pois)
	return pois, nil
}
