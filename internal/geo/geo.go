// Package geo scores map guesses by their great-circle distance to a target.
// Everything here is pure and safe to call from any number of goroutines.
package geo

import "math"

const (
	EarthRadiusKm = 6371.0
	MaxDistanceKm = 20000.0
	MaxScore      = 5000
)

type Point struct {
	Lat float64
	Lng float64
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just past 1 near antipodes, which would make
	// Sqrt(1-h) NaN.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// ScoreFromDistance maps a distance to 0..MaxScore, linearly decreasing
// until MaxDistanceKm.
func ScoreFromDistance(km float64) int {
	if math.IsNaN(km) || km >= MaxDistanceKm {
		return 0
	}
	if km < 0 {
		km = 0
	}
	return int(math.Round(MaxScore * (1 - km/MaxDistanceKm)))
}

// Score is a convenience for HaversineKm followed by ScoreFromDistance.
func Score(guess, target Point) (km float64, score int) {
	km = HaversineKm(guess, target)
	return km, ScoreFromDistance(km)
}

// ValidCoordinates reports whether lat/lng are finite and within
// -90..90 and -180..180.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Accuracy returns a 0-100 percentage for a distance.
func Accuracy(km float64) int {
	if math.IsNaN(km) || km >= MaxDistanceKm {
		return 0
	}
	if km < 0 {
		km = 0
	}
	return int(math.Round((1 - km/MaxDistanceKm) * 100))
}

// Quality is the label shown to players next to a scored guess.
type Quality string

const (
	QualityPerfect   Quality = "Perfect"
	QualityExcellent Quality = "Excellent"
	QualityGood      Quality = "Good"
	QualityFair      Quality = "Fair"
	QualityPoor      Quality = "Poor"
)

func QualityOf(km float64) Quality {
	switch {
	case km <= 1:
		return QualityPerfect
	case km <= 50:
		return QualityExcellent
	case km <= 200:
		return QualityGood
	case km <= 1000:
		return QualityFair
	default:
		return QualityPoor
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
