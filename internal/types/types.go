// README: Common value types shared across modules.
package types

import "fmt"

type ID string

type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Address is a structured delivery address. Coordinates are optional; when
// absent they are resolved through geocoding at assignment time.
type Address struct {
	Street   string  `json:"street"`
	City     string  `json:"city"`
	Postcode string  `json:"postcode"`
	Country  string  `json:"country"`
	Lat      float64 `json:"latitude,omitempty"`
	Lng      float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the address carries usable coordinates.
// (0, 0) is treated as unset.
func (a Address) HasCoordinates() bool {
	return a.Lat != 0 || a.Lng != 0
}

func (a Address) Point() Point {
	return Point{Lat: a.Lat, Lng: a.Lng}
}

// Line returns the address as a single formatted line.
func (a Address) Line() string {
	return fmt.Sprintf("%s, %s %s, %s", a.Street, a.City, a.Postcode, a.Country)
}

type Money struct {
	Amount   int64
	Currency string
}
