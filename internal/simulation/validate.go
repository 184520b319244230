package simulation

import "strings"

// Validate checks r before any lookup happens.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Origin) == "":
		return &ValidationError{Field: "origin", Reason: "must not be empty"}
	case strings.TrimSpace(r.Destination) == "":
		return &ValidationError{Field: "destination", Reason: "must not be empty"}
	case r.DepartureDate.IsZero():
		return &ValidationError{Field: "departure_date", Reason: "is required"}
	case r.ReturnDate.IsZero():
		return &ValidationError{Field: "return_date", Reason: "is required"}
	case !r.ReturnDate.After(r.DepartureDate):
		return &ValidationError{Field: "return_date", Reason: "must be after departure_date"}
	case r.Budget.IsNegative():
		return &ValidationError{Field: "budget", Reason: "must not be negative"}
	case r.Travelers < 0:
		return &ValidationError{Field: "travelers", Reason: "must not be negative"}
	}
	return nil
}
