// README: Geocoding via the Google Maps API for addresses without coordinates.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"nosh/internal/types"
)

// GeocodingService resolves delivery address lines to coordinates when the
// customer's address carries none.
type GeocodingService struct {
	client *maps.Client
}

func NewGeocodingService(apiKey string) (*GeocodingService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GeocodingService{client: client}, nil
}

func (s *GeocodingService) Geocode(ctx context.Context, address string) (types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
