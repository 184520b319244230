package geo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripsim/internal/geo"
)

var (
	salvador = geo.Coordinate{Latitude: -12.9711, Longitude: -38.5108}
	rio      = geo.Coordinate{Latitude: -22.9068, Longitude: -43.1729}
	saoPaulo = geo.Coordinate{Latitude: -23.5505, Longitude: -46.6333}
)

// ---- Distance ----

func TestDistance_SalvadorToRio(t *testing.T) {
	assert.InDelta(t, 1206, geo.Distance(salvador, rio), 5)
}

func TestDistance_ZeroForSamePoint(t *testing.T) {
	for _, c := range []geo.Coordinate{salvador, rio, {Latitude: 90, Longitude: 180}, {}} {
		assert.Zero(t, geo.Distance(c, c))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]geo.Coordinate{
		{salvador, rio},
		{rio, saoPaulo},
		{{Latitude: 38.7223, Longitude: -9.1393}, {Latitude: -34.6037, Longitude: -58.3816}},
		{{Latitude: 0, Longitude: 179.9}, {Latitude: 0, Longitude: -179.9}},
	}
	for _, p := range pairs {
		assert.InDelta(t, geo.Distance(p[0], p[1]), geo.Distance(p[1], p[0]), 1e-9)
	}
}

func TestDistance_AcrossAntimeridian(t *testing.T) {
	d := geo.Distance(geo.Coordinate{Longitude: 179.9}, geo.Coordinate{Longitude: -179.9})
	assert.InDelta(t, 22.2, d, 0.1)
}

func TestNewCoordinate_OutOfRange(t *testing.T) {
	_, err := geo.NewCoordinate(91, 0)
	require.Error(t, err)

	_, err = geo.NewCoordinate(0, -180.5)
	require.Error(t, err)

	c, err := geo.NewCoordinate(-90, 180)
	require.NoError(t, err)
	assert.True(t, c.Valid())
}

func TestFold(t *testing.T) {
	assert.Equal(t, "sao paulo", geo.Fold("  São   PAULO "))
	assert.Equal(t, "florianopolis", geo.Fold("Florianópolis"))
	assert.Equal(t, "", geo.Fold("   "))
}

// ---- Table ----

func TestTable_Resolve_CaseAndAccentInsensitive(t *testing.T) {
	tbl := geo.DefaultTable()

	for _, q := range []string{"São Paulo", "sao paulo", "SAO PAULO, SP", "Aeroporto de São Paulo"} {
		p, err := tbl.Resolve(context.Background(), q)
		require.NoError(t, err, q)
		require.NotNil(t, p, q)
		assert.Equal(t, "São Paulo", p.Name)
		assert.Equal(t, q, p.Query)
		assert.Equal(t, saoPaulo, p.Coordinate)
	}
}

func TestTable_Resolve_Alias(t *testing.T) {
	p, err := geo.DefaultTable().Resolve(context.Background(), "Lisbon, Portugal")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Lisboa", p.Name)
}

func TestTable_Resolve_FirstMatchWins(t *testing.T) {
	tbl := geo.NewTable(
		geo.City{Name: "Porto", Coordinate: geo.Coordinate{Latitude: 41.15, Longitude: -8.61}},
		geo.City{Name: "Porto Alegre", Coordinate: geo.Coordinate{Latitude: -30.03, Longitude: -51.21}},
	)
	p, err := tbl.Resolve(context.Background(), "Porto Alegre")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Porto", p.Name)
}

func TestTable_Resolve_NotFound(t *testing.T) {
	tbl := geo.DefaultTable()

	p, err := tbl.Resolve(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = tbl.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTable_Nearby_FiltersAndOrders(t *testing.T) {
	pois, err := geo.DefaultTable().Nearby(context.Background(), salvador, "Beach", 15000)
	require.NoError(t, err)
	require.Len(t, pois, 3)

	assert.Equal(t, "Porto da Barra", pois[0].Name)
	assert.Equal(t, "Farol da Barra", pois[1].Name)
	assert.Equal(t, "Praia do Rio Vermelho", pois[2].Name)
	for i := 1; i < len(pois); i++ {
		assert.LessOrEqual(t, pois[i-1].DistanceMeters, pois[i].DistanceMeters)
	}
	for _, p := range pois {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "beach", p.Category)
	}
}

func TestTable_Nearby_DefaultRadius(t *testing.T) {
	tbl := geo.DefaultTable()

	withDefault, err := tbl.Nearby(context.Background(), salvador, geo.CategoryAny, 0)
	require.NoError(t, err)
	explicit, err := tbl.Nearby(context.Background(), salvador, geo.CategoryAny, geo.DefaultRadiusMeters)
	require.NoError(t, err)

	assert.Equal(t, explicit, withDefault)
	require.Len(t, withDefault, 3)
	assert.Equal(t, "Pelourinho", withDefault[0].Name)
}

func TestTable_Nearby_NothingQualifies(t *testing.T) {
	pois, err := geo.DefaultTable().Nearby(context.Background(), salvador, "beach", -5)
	require.NoError(t, err)
	assert.NotNil(t, pois)
	assert.Empty(t, pois)
}

func TestTable_POIIDsAreStable(t *testing.T) {
	a, err := geo.DefaultTable().Nearby(context.Background(), rio, "landmark", 10000)
	require.NoError(t, err)
	b, err := geo.DefaultTable().Nearby(context.Background(), rio, "landmark", 10000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// ---- OpenTripMap ----

func otmGeoHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "Unknown place"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "Salvador", "status": "OK", "lat": -12.9711, "lon": -38.5108,
		})
	}
}

func otmRadiusHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "beaches", r.URL.Query().Get("kinds"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"features": []map[string]any{
				{
					"geometry":   map[string]any{"coordinates": []float64{-38.5325, -13.0104}},
					"properties": map[string]any{"xid": "N2", "name": "Farol da Barra", "kinds": "beaches", "rate": 3},
				},
				{
					"geometry":   map[string]any{"coordinates": []float64{-38.5330, -13.0036}},
					"properties": map[string]any{"xid": "N1", "name": "Porto da Barra", "kinds": "beaches", "rate": 7},
				},
				{
					"geometry":   map[string]any{"coordinates": []float64{-38.5, -13.0}},
					"properties": map[string]any{"xid": "N3", "name": "", "kinds": "beaches"},
				},
			},
		})
	}
}

func TestOpenTripMap_Resolve(t *testing.T) {
	geoSrv := httptest.NewServer(otmGeoHandler(t))
	defer geoSrv.Close()

	o := geo.NewOpenTripMapWithURLs(geoSrv.URL, geoSrv.URL, "key")
	p, err := o.Resolve(context.Background(), "Salvador")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, salvador, p.Coordinate)
}

func TestOpenTripMap_Resolve_NotFound(t *testing.T) {
	geoSrv := httptest.NewServer(otmGeoHandler(t))
	defer geoSrv.Close()

	o := geo.NewOpenTripMapWithURLs(geoSrv.URL, geoSrv.URL, "key")
	p, err := o.Resolve(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOpenTripMap_Resolve_ServerError(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	o := geo.NewOpenTripMapWithURLs(badSrv.URL, badSrv.URL, "key")
	_, err := o.Resolve(context.Background(), "Salvador")
	require.Error(t, err)
}

func TestOpenTripMap_Nearby(t *testing.T) {
	poiSrv := httptest.NewServer(otmRadiusHandler(t))
	defer poiSrv.Close()

	o := geo.NewOpenTripMapWithURLs(poiSrv.URL, poiSrv.URL, "key")
	pois, err := o.Nearby(context.Background(), salvador, "beach", 15000)
	require.NoError(t, err)
	require.Len(t, pois, 2)
	assert.Equal(t, "N1", pois[0].ID)
	assert.Equal(t, "N2", pois[1].ID)
	require.NotNil(t, pois[0].Rating)
	assert.Equal(t, 7.0, *pois[0].Rating)
}

// ---- Chain ----

type stubResolver struct {
	place *geo.Place
	pois  []geo.PointOfInterest
	err   error
}

func (s *stubResolver) Resolve(_ context.Context, _ string) (*geo.Place, error) {
	return s.place, s.err
}

func (s *stubResolver) Nearby(_ context.Context, _ geo.Coordinate, _ string, _ float64) ([]geo.PointOfInterest, error) {
	return s.pois, s.err
}

func TestChain_FallsThroughToTable(t *testing.T) {
	c := geo.Chain{&stubResolver{err: errors.New("down")}, geo.DefaultTable()}

	p, err := c.Resolve(context.Background(), "Salvador")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Salvador", p.Name)

	pois, err := c.Nearby(context.Background(), salvador, "history", 1000)
	require.NoError(t, err)
	assert.Len(t, pois, 2)
}

func TestChain_NotFoundEverywhere(t *testing.T) {
	c := geo.Chain{&stubResolver{}, geo.DefaultTable()}
	p, err := c.Resolve(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestChain_AllFail(t *testing.T) {
	c := geo.Chain{&stubResolver{err: errors.New("a")}, &stubResolver{err: errors.New("b")}}

	_, err := c.Resolve(context.Background(), "Salvador")
	require.Error(t, err)

	_, err = c.Nearby(context.Background(), salvador, "beach", 0)
	require.Error(t, err)
}
