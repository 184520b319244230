package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/neexbeast/tripsim/internal/geo"
	"github.com/neexbeast/tripsim/internal/provider"
)

const (
	amadeusDefaultURL = "https://test.api.amadeus.com"
	amadeusTimeLayout = "2006-01-02T15:04:05"
	amadeusRetries    = 2
	amadeusMaxOffers  = 10
	amadeusMaxHotels  = 20
)

// Amadeus is a live catalog backed by the Amadeus self-service APIs.
type Amadeus struct {
	baseURL  string
	currency string
	retries  uint64
	client   *http.Client
}

// NewAmadeus constructs an Amadeus catalog. An empty baseURL selects the test environment.
func NewAmadeus(baseURL, clientID, clientSecret, currency string) *Amadeus {
	if baseURL == "" {
		baseURL = amadeusDefaultURL
	}
	return newAmadeus(baseURL, clientID, clientSecret, currency, amadeusRetries)
}

// NewAmadeusWithURL constructs an Amadeus catalog without retries (for tests).
func NewAmadeusWithURL(baseURL, clientID, clientSecret, currency string) *Amadeus {
	return newAmadeus(baseURL, clientID, clientSecret, currency, 0)
}

func newAmadeus(baseURL, clientID, clientSecret, currency string, retries uint64) *Amadeus {
	baseURL = strings.TrimRight(baseURL, "/")
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/v1/security/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, provider.NewHTTPClient())
	client := cfg.Client(ctx)
	client.Timeout = provider.DefaultTimeout

	return &Amadeus{baseURL: baseURL, currency: currency, retries: retries, client: client}
}

// Flights returns a as a FlightCatalog.
func (a *Amadeus) Flights() FlightCatalog { return FlightSearchFunc(a.SearchFlights) }

// Lodging returns a as a LodgingCatalog.
func (a *Amadeus) Lodging() LodgingCatalog { return LodgingSearchFunc(a.SearchLodging) }

type amadeusLocations struct {
	Data []struct {
		IataCode string `json:"iataCode"`
	} `json:"data"`
}

type amadeusFlightOffers struct {
	Data []struct {
		ID    string `json:"id"`
		Price struct {
			GrandTotal string `json:"grandTotal"`
			Currency   string `json:"currency"`
		} `json:"price"`
		Itineraries []struct {
			Segments []struct {
				Departure struct {
					At string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					At string `json:"at"`
				} `json:"arrival"`
				CarrierCode string `json:"carrierCode"`
				Number      string `json:"number"`
			} `json:"segments"`
		} `json:"itineraries"`
		ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
	} `json:"data"`
}

type amadeusHotelList struct {
	Data []struct {
		HotelID string `json:"hotelId"`
	} `json:"data"`
}

type amadeusHotelOffers struct {
	Data []struct {
		Hotel struct {
			HotelID   string   `json:"hotelId"`
			Name      string   `json:"name"`
			Rating    string   `json:"rating"`
			Amenities []string `json:"amenities"`
		} `json:"hotel"`
		Offers []struct {
			Price struct {
				Currency string `json:"currency"`
				Total    string `json:"total"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
}

// cityCode maps a free-text place to an IATA city code. "" means unknown.
func (a *Amadeus) cityCode(ctx context.Context, place string) (string, error) {
	trimmed := strings.TrimSpace(place)
	if len(trimmed) == 3 && strings.ToUpper(trimmed) == trimmed {
		return trimmed, nil
	}

	q := url.Values{}
	q.Set("subType", "CITY,AIRPORT")
	q.Set("keyword", strings.ToUpper(geo.Fold(trimmed)))
	q.Set("page[limit]", "1")

	var raw amadeusLocations
	if err := provider.GetJSONWithRetry(ctx, a.client, a.baseURL+"/v1/reference-data/locations?"+q.Encode(), &raw, a.retries); err != nil {
		return "", fmt.Errorf("amadeus location lookup for %s: %w", place, err)
	}
	if len(raw.Data) == 0 {
		return "", nil
	}
	return raw.Data[0].IataCode, nil
}

// SearchFlights implements FlightCatalog through the flight-offers search.
func (a *Amadeus) SearchFlights(ctx context.Context, origin, destination string, departure, ret time.Time) ([]FlightOption, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return []FlightOption{}, nil
	}

	from, err := a.cityCode(ctx, origin)
	if err != nil {
		return nil, err
	}
	to, err := a.cityCode(ctx, destination)
	if err != nil {
		return nil, err
	}
	if from == "" || to == "" {
		return []FlightOption{}, nil
	}

	q := url.Values{}
	q.Set("originLocationCode", from)
	q.Set("destinationLocationCode", to)
	q.Set("departureDate", departure.Format(time.DateOnly))
	q.Set("returnDate", ret.Format(time.DateOnly))
	q.Set("adults", "1")
	q.Set("currencyCode", a.currency)
	q.Set("max", strconv.Itoa(amadeusMaxOffers))

	var raw amadeusFlightOffers
	if err := provider.GetJSONWithRetry(ctx, a.client, a.baseURL+"/v2/shopping/flight-offers?"+q.Encode(), &raw, a.retries); err != nil {
		return nil, fmt.Errorf("amadeus flight offers %s -> %s: %w", from, to, err)
	}

	opts := make([]FlightOption, 0, len(raw.Data))
	for _, offer := range raw.Data {
		if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
			continue
		}
		price, err := decimal.NewFromString(offer.Price.GrandTotal)
		if err != nil || !price.IsPositive() {
			continue
		}

		segs := offer.Itineraries[0].Segments
		dep, err := time.Parse(amadeusTimeLayout, segs[0].Departure.At)
		if err != nil {
			continue
		}
		arr, err := time.Parse(amadeusTimeLayout, segs[len(segs)-1].Arrival.At)
		if err != nil {
			continue
		}

		code := segs[0].CarrierCode
		if code == "" && len(offer.ValidatingAirlineCodes) > 0 {
			code = offer.ValidatingAirlineCodes[0]
		}

		currency := offer.Price.Currency
		if currency == "" {
			currency = a.currency
		}

		opts = append(opts, FlightOption{
			ID:            "amadeus:" + offer.ID,
			Airline:       code,
			FlightNumber:  code + segs[0].Number,
			DepartureTime: dep,
			ArrivalTime:   arr,
			Price:         price,
			Currency:      currency,
			Stops:         len(segs) - 1,
		})
	}

	SortFlights(opts)
	return opts, nil
}

// SearchLodging implements LodgingCatalog through hotels-by-city and hotel-offers.
// Amadeus quotes a stay total; PricePerNight is that total divided by the
// nights and rounded to the cent, and TotalPrice is PricePerNight × nights.
// A total that does not divide evenly therefore shifts by up to half a cent
// per night (100.00 over 3 nights becomes 33.33 × 3 = 99.99).
func (a *Amadeus) SearchLodging(ctx context.Context, destination string, departure, ret time.Time, travelers int) ([]LodgingOption, error) {
	if strings.TrimSpace(destination) == "" {
		return []LodgingOption{}, nil
	}
	if travelers < 1 {
		travelers = 1
	}

	city, err := a.cityCode(ctx, destination)
	if err != nil {
		return nil, err
	}
	if city == "" {
		return []LodgingOption{}, nil
	}

	var list amadeusHotelList
	listURL := a.baseURL + "/v1/reference-data/locations/hotels/by-city?cityCode=" + url.QueryEscape(city)
	if err := provider.GetJSONWithRetry(ctx, a.client, listURL, &list, a.retries); err != nil {
		return nil, fmt.Errorf("amadeus hotel list for %s: %w", city, err)
	}

	ids := make([]string, 0, amadeusMaxHotels)
	for _, h := range list.Data {
		if len(ids) == amadeusMaxHotels {
			break
		}
		if h.HotelID != "" {
			ids = append(ids, h.HotelID)
		}
	}
	if len(ids) == 0 {
		return []LodgingOption{}, nil
	}

	q := url.Values{}
	q.Set("hotelIds", strings.Join(ids, ","))
	q.Set("adults", strconv.Itoa(travelers))
	q.Set("checkInDate", departure.Format(time.DateOnly))
	q.Set("checkOutDate", ret.Format(time.DateOnly))
	q.Set("currency", a.currency)

	var raw amadeusHotelOffers
	if err := provider.GetJSONWithRetry(ctx, a.client, a.baseURL+"/v3/shopping/hotel-offers?"+q.Encode(), &raw, a.retries); err != nil {
		return nil, fmt.Errorf("amadeus hotel offers for %s: %w", city, err)
	}

	nights := Nights(departure, ret)
	opts := make([]LodgingOption, 0, len(raw.Data))
	for _, h := range raw.Data {
		if len(h.Offers) == 0 {
			continue
		}
		total, err := decimal.NewFromString(h.Offers[0].Price.Total)
		if err != nil || !total.IsPositive() {
			continue
		}
		rating, _ := strconv.ParseFloat(h.Hotel.Rating, 64)

		currency := h.Offers[0].Price.Currency
		if currency == "" {
			currency = a.currency
		}

		opts = append(opts, NewLodgingOption(
			"amadeus:"+h.Hotel.HotelID,
			h.Hotel.Name,
			rating,
			total.Div(decimal.NewFromInt(int64(nights))).Round(2),
			nights,
			currency,
			h.Hotel.Amenities,
		))
	}

	SortLodging(opts)
	return opts, nil
}
