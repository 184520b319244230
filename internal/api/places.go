package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/tripsim/internal/attraction"
	"github.com/neexbeast/tripsim/internal/geo"
)

type nearbyResponse struct {
	Place            *geo.Place            `json:"place"`
	Radius           float64               `json:"radius_meters"`
	PointsOfInterest []geo.PointOfInterest `json:"points_of_interest"`
}

type distanceResponse struct {
	From       *geo.Place `json:"from"`
	To         *geo.Place `json:"to"`
	DistanceKm float64    `json:"distance_km"`
}

// resolvePlace writes the error response itself and returns nil when name
// did not resolve.
func (h *Handlers) resolvePlace(w http.ResponseWriter, r *http.Request, name string) *geo.Place {
	p, err := h.places.Resolve(r.Context(), name)
	if err != nil {
		h.log.Error("resolve place failed", "name", name, "err", err)
		writeError(w, http.StatusBadGateway, "geocoding provider unavailable")
		return nil
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "place not found: "+name)
		return nil
	}
	return p
}

// GetPlace handles GET /api/v1/places/{name}.
func (h *Handlers) GetPlace(w http.ResponseWriter, r *http.Request) {
	if p := h.resolvePlace(w, r, chi.URLParam(r, "name")); p != nil {
		writeJSON(w, http.StatusOK, p)
	}
}

// GetNearby handles GET /api/v1/places/{name}/nearby?category=&radius=.
func (h *Handlers) GetNearby(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = geo.CategoryAny
	}

	radius := float64(attraction.DefaultRadiusMeters)
	if v := r.URL.Query().Get("radius"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 50000 {
			writeError(w, http.StatusBadRequest, "radius must be between 0 and 50000 meters")
			return
		}
		radius = f
	}

	p := h.resolvePlace(w, r, chi.URLParam(r, "name"))
	if p == nil {
		return
	}

	pois, err := h.places.Nearby(r.Context(), p.Coordinate, geo.Fold(category), radius)
	if err != nil {
		h.log.Error("nearby lookup failed", "place", p.Name, "category", category, "err", err)
		writeError(w, http.StatusBadGateway, "points of interest provider unavailable")
		return
	}
	if pois == nil {
		pois = []geo.PointOfInterest{}
	}

	writeJSON(w, http.StatusOK, nearbyResponse{Place: p, Radius: radius, PointsOfInterest: pois})
}

// GetDistance handles GET /api/v1/distance?from=&to=.
func (h *Handlers) GetDistance(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	a := h.resolvePlace(w, r, from)
	if a == nil {
		return
	}
	b := h.resolvePlace(w, r, to)
	if b == nil {
		return
	}

	km := math.Round(geo.Distance(a.Coordinate, b.Coordinate)*10) / 10
	writeJSON(w, http.StatusOK, distanceResponse{From: a, To: b, DistanceKm: km})
}
