package simulation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/neexbeast/tripsim/internal/attraction"
	"github.com/neexbeast/tripsim/internal/geo"
)

// Key returns a stable identifier for r built from its normalized fields.
// Requests that differ only in casing, accents, whitespace, interest order or
// trailing budget zeros share a key.
func (r Request) Key() string {
	interests := attraction.Categories(r.Interests)
	sort.Strings(interests)

	travelers := r.Travelers
	if travelers < 1 {
		travelers = 1
	}

	canonical := strings.Join([]string{
		geo.Fold(r.Origin),
		geo.Fold(r.OriginCountry),
		geo.Fold(r.Destination),
		geo.Fold(r.DestinationCountry),
		r.DepartureDate.UTC().Format(time.DateOnly),
		r.ReturnDate.UTC().Format(time.DateOnly),
		r.Budget.String(),
		strconv.Itoa(travelers),
		strings.Join(interests, ","),
		strings.ToUpper(strings.TrimSpace(r.Currency)),
	}, "\x1f")

	return fmt.Sprintf("sim:%016x", xxhash.Sum64String(canonical))
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tripsim/simulation"))

// ID is the public identifier of r's simulation, derived from Key so that
// equivalent requests share it.
func (r Request) ID() string {
	return uuid.NewSHA1(idNamespace, []byte(r.Key())).String()
}
