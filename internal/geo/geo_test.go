package geo_test

import (
	"math"
	"testing"

	"github.com/playperu/geoduel/internal/geo"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name string
		a, b geo.Point
		want float64
		tol  float64
	}{
		{name: "same point", a: geo.Point{Lat: 51.5074, Lng: -0.1278}, b: geo.Point{Lat: 51.5074, Lng: -0.1278}, want: 0, tol: 1e-9},
		{name: "london to paris", a: geo.Point{Lat: 51.5074, Lng: -0.1278}, b: geo.Point{Lat: 48.8566, Lng: 2.3522}, want: 343.5, tol: 1.5},
		{name: "quarter meridian", a: geo.Point{Lat: 0, Lng: 0}, b: geo.Point{Lat: 90, Lng: 0}, want: math.Pi / 2 * geo.EarthRadiusKm, tol: 1e-6},
		{name: "antipodes", a: geo.Point{Lat: 0, Lng: 0}, b: geo.Point{Lat: 0, Lng: 180}, want: math.Pi * geo.EarthRadiusKm, tol: 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.HaversineKm(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("HaversineKm = %.3f, want %.3f ± %.3f", got, tt.want, tt.tol)
			}
			if back := geo.HaversineKm(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
				t.Errorf("not symmetric: %.6f vs %.6f", got, back)
			}
		})
	}
}

func TestHaversineAntipodesStayFinite(t *testing.T) {
	limit := math.Pi*geo.EarthRadiusKm + 1e-9
	for lat := -90.0; lat <= 90; lat += 0.5 {
		for lng := -180.0; lng <= 180; lng += 0.5 {
			opposite := lng + 180
			if opposite > 180 {
				opposite -= 360
			}
			a := geo.Point{Lat: lat, Lng: lng}
			b := geo.Point{Lat: -lat, Lng: opposite}

			km := geo.HaversineKm(a, b)
			if math.IsNaN(km) || km > limit {
				t.Fatalf("HaversineKm(%v, %v) = %v, want finite and at most %v", a, b, km, limit)
			}
			if score := geo.ScoreFromDistance(km); score < 0 || score > geo.MaxScore {
				t.Fatalf("score %d out of range at %v", score, a)
			}
		}
	}
}

func TestScoreFromDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want int
	}{
		{0, 5000},
		{-3, 5000},
		{1, 5000},
		{4, 4999},
		{10000, 2500},
		{19999, 0},
		{20000, 0},
		{25000, 0},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := geo.ScoreFromDistance(tt.km); got != tt.want {
			t.Errorf("ScoreFromDistance(%v) = %d, want %d", tt.km, got, tt.want)
		}
	}
}

func TestScoreFromDistanceMonotonic(t *testing.T) {
	prev := geo.ScoreFromDistance(0)
	for km := 0.5; km <= 21000; km += 0.5 {
		got := geo.ScoreFromDistance(km)
		if got > prev {
			t.Fatalf("score increased from %d to %d at %.1f km", prev, got, km)
		}
		prev = got
	}
}

func TestScoreExactTarget(t *testing.T) {
	target := geo.Point{Lat: 35.6895, Lng: 139.6917}
	km, score := geo.Score(target, target)
	if km != 0 || score != geo.MaxScore {
		t.Errorf("Score(target, target) = (%v, %d), want (0, %d)", km, score, geo.MaxScore)
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{91, 0, false},
		{-90.0001, 0, false},
		{0, 180.5, false},
		{0, -181, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}

	for _, tt := range tests {
		if got := geo.ValidCoordinates(tt.lat, tt.lng); got != tt.want {
			t.Errorf("ValidCoordinates(%v, %v) = %v, want %v", tt.lat, tt.lng, got, tt.want)
		}
	}
}

func TestAccuracyAndQuality(t *testing.T) {
	if got := geo.Accuracy(0); got != 100 {
		t.Errorf("Accuracy(0) = %d, want 100", got)
	}
	if got := geo.Accuracy(10000); got != 50 {
		t.Errorf("Accuracy(10000) = %d, want 50", got)
	}
	if got := geo.Accuracy(30000); got != 0 {
		t.Errorf("Accuracy(30000) = %d, want 0", got)
	}

	quality := map[float64]geo.Quality{
		0.5:  geo.QualityPerfect,
		30:   geo.QualityExcellent,
		150:  geo.QualityGood,
		999:  geo.QualityFair,
		5000: geo.QualityPoor,
	}
	for km, want := range quality {
		if got := geo.QualityOf(km); got != want {
			t.Errorf("QualityOf(%v) = %q, want %q", km, got, want)
		}
	}
}
