package location

import (
	"math"
	"testing"

	"nosh/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 51.5074, Lng: -0.1278},
			b:         types.Point{Lat: 51.5074, Lng: -0.1278},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "London Bridge to Camden (~6km)",
			a:         types.Point{Lat: 51.5079, Lng: -0.0877},
			b:         types.Point{Lat: 51.5390, Lng: -0.1426},
			wantKm:    5.2,
			tolerance: 1.0,
		},
		{
			name:      "London to Manchester (~262km)",
			a:         types.Point{Lat: 51.5074, Lng: -0.1278},
			b:         types.Point{Lat: 53.4808, Lng: -2.2426},
			wantKm:    262,
			tolerance: 10,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 51.0, Lng: -1.0}
	b := types.Point{Lat: 52.0, Lng: 0.5}
	d1 := DistanceKm(a, b)
	d2 := DistanceKm(b, a)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestValidCoordinates(t *testing.T) {
	cases := []struct {
		p    types.Point
		want bool
	}{
		{types.Point{Lat: 0, Lng: 0}, true},
		{types.Point{Lat: 90, Lng: 180}, true},
		{types.Point{Lat: -90, Lng: -180}, true},
		{types.Point{Lat: 90.1, Lng: 0}, false},
		{types.Point{Lat: 0, Lng: -180.1}, false},
	}
	for _, tc := range cases {
		if got := ValidCoordinates(tc.p); got != tc.want {
			t.Errorf("ValidCoordinates(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}
