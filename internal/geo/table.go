package geo

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var poiNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tripsim/poi"))

// City is one entry of a Table: a canonical name, optional aliases matched the
// same way, its center and the points of interest known around it.
type City struct {
	Name       string
	Aliases    []string
	Coordinate Coordinate
	POIs       []PointOfInterest
}

// Table is an in-memory Resolver backed by a fixed, ordered list of cities.
// A query resolves to the first city whose folded name (or alias) is contained
// in the folded query.
type Table struct {
	cities []City
	keys   [][]string
	pois   []PointOfInterest
}

// NewTable builds a Table. City order is significant: the first match wins.
func NewTable(cities ...City) *Table {
	t := &Table{cities: cities, keys: make([][]string, len(cities))}
	for i, c := range cities {
		keys := make([]string, 0, 1+len(c.Aliases))
		for _, k := range append([]string{c.Name}, c.Aliases...) {
			if f := Fold(k); f != "" {
				keys = append(keys, f)
			}
		}
		t.keys[i] = keys

		for _, p := range c.POIs {
			if p.ID == "" {
				p.ID = uuid.NewSHA1(poiNamespace, []byte(Fold(c.Name)+"/"+Fold(p.Name))).String()
			}
			t.pois = append(t.pois, p)
		}
	}
	return t
}

// Resolve implements Resolver.
func (t *Table) Resolve(_ context.Context, query string) (*Place, error) {
	q := Fold(query)
	if q == "" {
		return nil, nil
	}

	for i, c := range t.cities {
		for _, k := range t.keys[i] {
			if strings.Contains(q, k) {
				return &Place{Query: query, Name: c.Name, Coordinate: c.Coordinate}, nil
			}
		}
	}

	return nil, nil
}

// Nearby implements Resolver. An empty category behaves like CategoryAny.
func (t *Table) Nearby(_ context.Context, center Coordinate, category string, radiusMeters float64) ([]PointOfInterest, error) {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	cat := Fold(category)
	matchAll := cat == "" || cat == CategoryAny

	out := make([]PointOfInterest, 0)
	for _, p := range t.pois {
		if !matchAll && Fold(p.Category) != cat {
			continue
		}
		meters := Distance(center, p.Coordinate) * 1000
		if meters > radiusMeters {
			continue
		}
		p.DistanceMeters = meters
		out = append(out, p)
	}

	SortByDistance(out)
	return out, nil
}

// SortByDistance orders points of interest by ascending DistanceMeters, then by ID.
func SortByDistance(pois []PointOfInterest) {
	sort.SliceStable(pois, func(i, j int) bool {
		if pois[i].DistanceMeters != pois[j].DistanceMeters {
			return pois[i].DistanceMeters < pois[j].DistanceMeters
		}
		return pois[i].ID < pois[j].ID
	})
}

func rating(v float64) *float64 { return &v }

func brl(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// DefaultTable returns the reference lookup table.
func DefaultTable() *Table {
	return NewTable(
		City{
			Name:       "São Paulo",
			Coordinate: Coordinate{Latitude: -23.5505, Longitude: -46.6333},
			POIs: []PointOfInterest{
				{Name: "MASP", Category: "museum", Coordinate: Coordinate{Latitude: -23.5614, Longitude: -46.6559}, Rating: rating(4.7), Price: brl("70.00"), Currency: "BRL"},
				{Name: "Pinacoteca de São Paulo", Category: "museum", Coordinate: Coordinate{Latitude: -23.5343, Longitude: -46.6339}, Rating: rating(4.7), Price: brl("30.00"), Currency: "BRL"},
				{Name: "Parque Ibirapuera", Category: "nature", Coordinate: Coordinate{Latitude: -23.5874, Longitude: -46.6576}, Rating: rating(4.8), Price: brl("0"), Currency: "BRL"},
				{Name: "Mercado Municipal", Category: "food", Coordinate: Coordinate{Latitude: -23.5417, Longitude: -46.6297}, Rating: rating(4.6), Price: brl("0"), Currency: "BRL"},
				{Name: "Beco do Batman", Category: "culture", Coordinate: Coordinate{Latitude: -23.5563, Longitude: -46.6867}, Rating: rating(4.4), Price: brl("0"), Currency: "BRL"},
			},
		},
		City{
			Name:       "Rio de Janeiro",
			Coordinate: Coordinate{Latitude: -22.9068, Longitude: -43.1729},
			POIs: []PointOfInterest{
				{Name: "Cristo Redentor", Category: "landmark", Coordinate: Coordinate{Latitude: -22.9519, Longitude: -43.2105}, Rating: rating(4.9), Price: brl("97.50"), Currency: "BRL"},
				{Name: "Pão de Açúcar", Category: "landmark", Coordinate: Coordinate{Latitude: -22.9492, Longitude: -43.1545}, Rating: rating(4.8), Price: brl("195.00"), Currency: "BRL"},
				{Name: "Praia de Copacabana", Category: "beach", Coordinate: Coordinate{Latitude: -22.9711, Longitude: -43.1822}, Rating: rating(4.7), Price: brl("0"), Currency: "BRL"},
				{Name: "Praia de Ipanema", Category: "beach", Coordinate: Coordinate{Latitude: -22.9868, Longitude: -43.2050}, Rating: rating(4.8), Price: brl("0"), Currency: "BRL"},
				{Name: "Escadaria Selarón", Category: "history", Coordinate: Coordinate{Latitude: -22.9153, Longitude: -43.1795}, Rating: rating(4.6), Price: brl("0"), Currency: "BRL"},
				{Name: "Museu do Amanhã", Category: "museum", Coordinate: Coordinate{Latitude: -22.8944, Longitude: -43.1795}, Rating: rating(4.6), Price: brl("30.00"), Currency: "BRL"},
			},
		},
		City{
			Name:       "Salvador",
			Coordinate: Coordinate{Latitude: -12.9711, Longitude: -38.5108},
			POIs: []PointOfInterest{
				{Name: "Pelourinho", Category: "history", Coordinate: Coordinate{Latitude: -12.9730, Longitude: -38.5080}, Rating: rating(4.8), Price: brl("0"), Currency: "BRL"},
				{Name: "Elevador Lacerda", Category: "history", Coordinate: Coordinate{Latitude: -12.9745, Longitude: -38.5135}, Rating: rating(4.6), Price: brl("0"), Currency: "BRL"},
				{Name: "Mercado Modelo", Category: "shopping", Coordinate: Coordinate{Latitude: -12.9737, Longitude: -38.5151}, Rating: rating(4.4), Price: brl("0"), Currency: "BRL"},
				{Name: "Porto da Barra", Category: "beach", Coordinate: Coordinate{Latitude: -13.0036, Longitude: -38.5330}, Rating: rating(4.9), Price: brl("0"), Currency: "BRL"},
				{Name: "Farol da Barra", Category: "beach", Coordinate: Coordinate{Latitude: -13.0104, Longitude: -38.5325}, Rating: rating(4.8), Price: brl("0"), Currency: "BRL"},
				{Name: "Praia do Rio Vermelho", Category: "beach", Coordinate: Coordinate{Latitude: -13.0118, Longitude: -38.4905}, Rating: rating(4.5), Price: brl("0"), Currency: "BRL"},
			},
		},
		City{Name: "Brasília", Coordinate: Coordinate{Latitude: -15.7939, Longitude: -47.8828}},
		City{Name: "Belo Horizonte", Coordinate: Coordinate{Latitude: -19.9167, Longitude: -43.9345}},
		City{Name: "Fortaleza", Coordinate: Coordinate{Latitude: -3.7319, Longitude: -38.5267}},
		City{Name: "Recife", Coordinate: Coordinate{Latitude: -8.0476, Longitude: -34.8770}},
		City{Name: "Florianópolis", Coordinate: Coordinate{Latitude: -27.5954, Longitude: -48.5480}},
		City{Name: "Curitiba", Coordinate: Coordinate{Latitude: -25.4284, Longitude: -49.2733}},
		City{Name: "Porto Alegre", Coordinate: Coordinate{Latitude: -30.0346, Longitude: -51.2177}},
		City{Name: "Manaus", Coordinate: Coordinate{Latitude: -3.1190, Longitude: -60.0217}},
		City{Name: "Lisboa", Aliases: []string{"Lisbon"}, Coordinate: Coordinate{Latitude: 38.7223, Longitude: -9.1393}},
		City{Name: "Buenos Aires", Coordinate: Coordinate{Latitude: -34.6037, Longitude: -58.3816}},
		City{Name: "Paris", Coordinate: Coordinate{Latitude: 48.8566, Longitude: 2.3522}},
		City{Name: "New York", Aliases: []string{"Nova York", "Nova Iorque"}, Coordinate: Coordinate{Latitude: 40.7128, Longitude: -74.0060}},
	)
}
