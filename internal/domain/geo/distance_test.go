package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKM(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		points := []Point{
			{Latitude: -6.2088, Longitude: 106.8456},
			{Latitude: 0, Longitude: 0},
			{Latitude: 90, Longitude: 0},
			{Latitude: -90, Longitude: 180},
		}
		for _, p := range points {
			assert.InDelta(t, 0, DistanceBetween(p, p), 1e-9)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Latitude: -6.2088, Longitude: 106.8456}
		b := Point{Latitude: -6.9175, Longitude: 107.6191}
		assert.InDelta(t, DistanceBetween(a, b), DistanceBetween(b, a), 1e-9)
	})

	t.Run("jakarta to bandung fixture", func(t *testing.T) {
		d := DistanceKM(-6.2088, 106.8456, -6.9175, 107.6191)
		assert.Greater(t, d, 100.0)
		assert.Less(t, d, 150.0)
	})

	t.Run("triangle inequality", func(t *testing.T) {
		a := Point{Latitude: -6.2088, Longitude: 106.8456}
		b := Point{Latitude: -6.9175, Longitude: 107.6191}
		c := Point{Latitude: -7.2575, Longitude: 112.7521}
		assert.LessOrEqual(t, DistanceBetween(a, c), DistanceBetween(a, b)+DistanceBetween(b, c)+1e-9)
	})

	t.Run("pole and antipode do not produce NaN", func(t *testing.T) {
		assert.InDelta(t, math.Pi*EarthRadiusKM, DistanceKM(90, 0, -90, 0), 1e-6)
		assert.False(t, math.IsNaN(DistanceKM(0, 0, 0, 180)))
	})
}

func TestEstimateETAMinutes(t *testing.T) {
	tests := []struct {
		name string
		km   float64
		want int
	}{
		{"zero distance floors to one", 0, 1},
		{"tiny distance floors to one", 0.01, 1},
		{"five km", 5, 12},
		{"ten km", 10, 24},
		{"rounds half up", 0.3125, 1},
		{"negative treated as zero", -3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateETAMinutes(tt.km))
		})
	}

	t.Run("always at least one", func(t *testing.T) {
		for km := 0.0; km < 50; km += 0.37 {
			assert.GreaterOrEqual(t, EstimateETAMinutes(km), 1)
		}
	})

	t.Run("custom speed", func(t *testing.T) {
		assert.Equal(t, 6, EstimateETAMinutesAt(5, 50))
		assert.Equal(t, 12, EstimateETAMinutesAt(5, 0))
	})
}

func TestPositionValidate(t *testing.T) {
	valid := Position{Latitude: -6.2, Longitude: 106.8, HeadingDegrees: 360, CapturedAtEpochMs: 1_700_000_000_000}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *Position)
		want   error
	}{
		{"latitude out of range", func(p *Position) { p.Latitude = 91 }, ErrInvalidLatitude},
		{"longitude out of range", func(p *Position) { p.Longitude = -181 }, ErrInvalidLongitude},
		{"negative speed", func(p *Position) { p.SpeedMetersPerSecond = -1 }, ErrNegativeSpeed},
		{"negative accuracy", func(p *Position) { p.AccuracyMeters = -0.5 }, ErrNegativeAccuracy},
		{"heading above 360", func(p *Position) { p.HeadingDegrees = 361 }, ErrInvalidHeading},
		{"missing timestamp", func(p *Position) { p.CapturedAtEpochMs = 0 }, ErrMissingCapturedAt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), tt.want)
		})
	}
}
