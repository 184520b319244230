package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripsim/internal/catalog"
)

const testAccessToken = "amadeus-test-token"

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newAmadeusServer serves the token endpoint plus the given routes, rejecting
// any data request without the bearer token.
func newAmadeusServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		writeJSON(w, map[string]any{
			"access_token": testAccessToken,
			"token_type":   "Bearer",
			"expires_in":   1799,
		})
	})
	for path, h := range routes {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testAccessToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}
	return httptest.NewServer(mux)
}

func locationsHandler(w http.ResponseWriter, r *http.Request) {
	codes := map[string]string{"SAO PAULO": "SAO", "SALVADOR": "SSA"}
	code, ok := codes[r.URL.Query().Get("keyword")]
	if !ok {
		writeJSON(w, map[string]any{"data": []any{}})
		return
	}
	writeJSON(w, map[string]any{"data": []map[string]any{{"iataCode": code}}})
}

func TestAmadeus_SearchFlights(t *testing.T) {
	srv := newAmadeusServer(t, map[string]http.HandlerFunc{
		"/v1/reference-data/locations": locationsHandler,
		"/v2/shopping/flight-offers": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "SAO", r.URL.Query().Get("originLocationCode"))
			assert.Equal(t, "SSA", r.URL.Query().Get("destinationLocationCode"))
			assert.Equal(t, "2025-06-01", r.URL.Query().Get("departureDate"))
			writeJSON(w, map[string]any{
				"data": []map[string]any{
					{
						"id":    "2",
						"price": map[string]any{"grandTotal": "712.40", "currency": "BRL"},
						"itineraries": []map[string]any{{
							"segments": []map[string]any{
								{"departure": map[string]any{"at": "2025-06-01T06:00:00"}, "arrival": map[string]any{"at": "2025-06-01T07:10:00"}, "carrierCode": "G3", "number": "1010"},
								{"departure": map[string]any{"at": "2025-06-01T08:30:00"}, "arrival": map[string]any{"at": "2025-06-01T10:45:00"}, "carrierCode": "G3", "number": "1442"},
							},
						}},
					},
					{
						"id":    "1",
						"price": map[string]any{"grandTotal": "640.00", "currency": "BRL"},
						"itineraries": []map[string]any{{
							"segments": []map[string]any{
								{"departure": map[string]any{"at": "2025-06-01T09:00:00"}, "arrival": map[string]any{"at": "2025-06-01T11:20:00"}, "carrierCode": "LA", "number": "3340"},
							},
						}},
					},
					{
						"id":    "3",
						"price": map[string]any{"grandTotal": "not-a-number", "currency": "BRL"},
						"itineraries": []map[string]any{{
							"segments": []map[string]any{
								{"departure": map[string]any{"at": "2025-06-01T09:00:00"}, "arrival": map[string]any{"at": "2025-06-01T11:20:00"}, "carrierCode": "AD", "number": "1"},
							},
						}},
					},
				},
			})
		},
	})
	defer srv.Close()

	a := catalog.NewAmadeusWithURL(srv.URL, "id", "secret", "BRL")
	opts, err := a.Flights().Search(context.Background(), "São Paulo", "Salvador", jun1, jun5)
	require.NoError(t, err)
	require.Len(t, opts, 2)

	assert.Equal(t, "amadeus:1", opts[0].ID)
	assert.Equal(t, "LA3340", opts[0].FlightNumber)
	assert.Equal(t, 0, opts[0].Stops)
	assert.True(t, dec("640").Equal(opts[0].Price))

	assert.Equal(t, "amadeus:2", opts[1].ID)
	assert.Equal(t, 1, opts[1].Stops)
}

func TestAmadeus_SearchFlights_UnknownCity(t *testing.T) {
	srv := newAmadeusServer(t, map[string]http.HandlerFunc{
		"/v1/reference-data/locations": locationsHandler,
		"/v2/shopping/flight-offers": func(w http.ResponseWriter, r *http.Request) {
			t.Error("offers must not be requested for an unknown city")
			http.Error(w, "unexpected", http.StatusTeapot)
		},
	})
	defer srv.Close()

	a := catalog.NewAmadeusWithURL(srv.URL, "id", "secret", "BRL")
	opts, err := a.SearchFlights(context.Background(), "São Paulo", "Atlantis", jun1, jun5)
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestAmadeus_SearchFlights_ServerError(t *testing.T) {
	srv := newAmadeusServer(t, map[string]http.HandlerFunc{
		"/v1/reference-data/locations": locationsHandler,
		"/v2/shopping/flight-offers": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer srv.Close()

	a := catalog.NewAmadeusWithURL(srv.URL, "id", "secret", "BRL")
	_, err := a.SearchFlights(context.Background(), "SAO", "SSA", jun1, jun5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amadeus flight offers")
}

func TestAmadeus_SearchLodging(t *testing.T) {
	srv := newAmadeusServer(t, map[string]http.HandlerFunc{
		"/v1/reference-data/locations": locationsHandler,
		"/v1/reference-data/locations/hotels/by-city": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "SSA", r.URL.Query().Get("cityCode"))
			writeJSON(w, map[string]any{"data": []map[string]any{{"hotelId": "H1"}, {"hotelId": "H2"}, {"hotelId": "H3"}}})
		},
		"/v3/shopping/hotel-offers": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "H1,H2,H3", r.URL.Query().Get("hotelIds"))
			assert.Equal(t, "2", r.URL.Query().Get("adults"))
			assert.True(t, strings.HasPrefix(r.URL.Query().Get("checkOutDate"), "2025-06-05"))
			writeJSON(w, map[string]any{
				"data": []map[string]any{
					{
						"hotel":  map[string]any{"hotelId": "H1", "name": "Hotel Pelourinho", "rating": "4", "amenities": []string{"WIFI"}},
						"offers": []map[string]any{{"price": map[string]any{"currency": "BRL", "total": "1200.00"}}},
					},
					{
						"hotel":  map[string]any{"hotelId": "H2", "name": "Pousada Barra", "rating": "3"},
						"offers": []map[string]any{{"price": map[string]any{"currency": "BRL", "total": "800.00"}}},
					},
					{
						"hotel":  map[string]any{"hotelId": "H3", "name": "Sold Out"},
						"offers": []map[string]any{},
					},
				},
			})
		},
	})
	defer srv.Close()

	a := catalog.NewAmadeusWithURL(srv.URL, "id", "secret", "BRL")
	opts, err := a.Lodging().Search(context.Background(), "Salvador", jun1, jun5, 2)
	require.NoError(t, err)
	require.Len(t, opts, 2)

	assert.Equal(t, "amadeus:H2", opts[0].ID)
	assert.True(t, dec("200").Equal(opts[0].PricePerNight))
	assert.True(t, dec("800").Equal(opts[0].TotalPrice))
	assert.Equal(t, 3.0, opts[0].Rating)
	assert.NotNil(t, opts[0].Amenities)

	assert.Equal(t, "amadeus:H1", opts[1].ID)
	assert.Equal(t, []string{"WIFI"}, opts[1].Amenities)
}

func TestAmadeus_SearchLodging_PerNightRoundsToCent(t *testing.T) {
	srv := newAmadeusServer(t, map[string]http.HandlerFunc{
		"/v1/reference-data/locations": locationsHandler,
		"/v1/reference-data/locations/hotels/by-city": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{"data": []map[string]any{{"hotelId": "H1"}, {"hotelId": "H2"}}})
		},
		"/v3/shopping/hotel-offers": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{
				"data": []map[string]any{
					{
						"hotel":  map[string]any{"hotelId": "H1", "name": "Uneven"},
						"offers": []map[string]any{{"price": map[string]any{"currency": "BRL", "total": "100.00"}}},
					},
					{
						"hotel":  map[string]any{"hotelId": "H2", "name": "Even"},
						"offers": []map[string]any{{"price": map[string]any{"currency": "BRL", "total": "300.00"}}},
					},
				},
			})
		},
	})
	defer srv.Close()

	jun4 := jun1.AddDate(0, 0, 3)
	a := catalog.NewAmadeusWithURL(srv.URL, "id", "secret", "BRL")
	opts, err := a.SearchLodging(context.Background(), "Salvador", jun1, jun4, 1)
	require.NoError(t, err)
	require.Len(t, opts, 2)

	assert.Equal(t, "amadeus:H1", opts[0].ID)
	assert.True(t, dec("33.33").Equal(opts[0].PricePerNight), opts[0].PricePerNight.String())
	assert.True(t, dec("99.99").Equal(opts[0].TotalPrice), opts[0].TotalPrice.String())

	assert.Equal(t, "amadeus:H2", opts[1].ID)
	assert.True(t, dec("300").Equal(opts[1].TotalPrice), opts[1].TotalPrice.String())
}
