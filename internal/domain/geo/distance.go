package geo

import "math"

const (
	// EarthRadiusKM is the mean Earth radius used by DistanceKM.
	EarthRadiusKM = 6371.0

	// DefaultAverageSpeedKMH is the assumed courier speed for ETA estimates.
	DefaultAverageSpeedKMH = 25.0
)

// DistanceKM returns the haversine great-circle distance between two points in degrees.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	// rounding can push a slightly above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

// DistanceBetween is DistanceKM for two points.
func DistanceBetween(a, b Point) float64 {
	return DistanceKM(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// EstimateETAMinutes estimates minutes to cover distanceKM at DefaultAverageSpeedKMH.
func EstimateETAMinutes(distanceKM float64) int {
	return EstimateETAMinutesAt(distanceKM, DefaultAverageSpeedKMH)
}

// EstimateETAMinutesAt returns round(distance / speed * 60), never less than 1.
// A non-positive or non-finite speed falls back to DefaultAverageSpeedKMH.
func EstimateETAMinutesAt(distanceKM, avgSpeedKMH float64) int {
	if avgSpeedKMH <= 0 || math.IsNaN(avgSpeedKMH) || math.IsInf(avgSpeedKMH, 0) {
		avgSpeedKMH = DefaultAverageSpeedKMH
	}
	if distanceKM <= 0 || math.IsNaN(distanceKM) {
		return 1
	}
	if math.IsInf(distanceKM, 1) {
		return math.MaxInt32
	}

	minutes := math.Round(distanceKM / avgSpeedKMH * 60)
	if minutes < 1 {
		return 1
	}
	if minutes > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(minutes)
}
