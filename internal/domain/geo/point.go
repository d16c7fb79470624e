package geo

import (
	"errors"
	"math"
)

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Point is a bare latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks latitude/longitude ranges.
func (point Point) Validate() error {
	if point.Latitude < -90 || point.Latitude > 90 || math.IsNaN(point.Latitude) {
		return ErrInvalidLatitude
	}
	if point.Longitude < -180 || point.Longitude > 180 || math.IsNaN(point.Longitude) {
		return ErrInvalidLongitude
	}
	return nil
}
