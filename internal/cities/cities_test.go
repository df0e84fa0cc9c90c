package cities_test

import (
	"errors"
	"testing"

	"github.com/playperu/geoduel/internal/cities"
	"github.com/playperu/geoduel/internal/geoduel"
)

func first(int) int { return 0 }

func TestCatalogCoversEveryTier(t *testing.T) {
	counts := map[int]int{}
	for _, c := range cities.Catalog() {
		counts[c.Difficulty]++
		if c.Name == "" || c.Country == "" {
			t.Errorf("incomplete city: %+v", c)
		}
	}
	for tier := geoduel.MinDifficulty; tier <= geoduel.MaxDifficulty; tier++ {
		if counts[tier] == 0 {
			t.Errorf("tier %d has no cities", tier)
		}
	}
}

func TestPickFromTier(t *testing.T) {
	s := cities.New(cities.Catalog())
	for tier := geoduel.MinDifficulty; tier <= geoduel.MaxDifficulty; tier++ {
		for range 20 {
			c, err := s.Pick(tier)
			if err != nil {
				t.Fatalf("Pick(%d): %v", tier, err)
			}
			if c.Difficulty != tier {
				t.Fatalf("Pick(%d) returned tier %d city %q", tier, c.Difficulty, c.Name)
			}
		}
	}
}

func TestPickFallback(t *testing.T) {
	list := []geoduel.City{
		{Name: "Easy", Difficulty: 1},
		{Name: "Medium", Difficulty: 3},
	}

	tests := []struct {
		name string
		list []geoduel.City
		tier int
		want string
	}{
		{name: "exact tier", list: list, tier: 3, want: "Medium"},
		{name: "falls back to easier tier", list: list, tier: 5, want: "Medium"},
		{name: "skips empty tier", list: list, tier: 2, want: "Easy"},
		{name: "harder tier when nothing easier", list: list[1:], tier: 1, want: "Medium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cities.New(tt.list, cities.WithIntn(first))
			got, err := s.Pick(tt.tier)
			if err != nil {
				t.Fatalf("Pick: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Pick(%d) = %q, want %q", tt.tier, got.Name, tt.want)
			}
		})
	}
}

func TestPickEmptyCatalog(t *testing.T) {
	_, err := cities.New(nil).Pick(1)
	if !errors.Is(err, cities.ErrEmptyCatalog) {
		t.Errorf("err = %v, want ErrEmptyCatalog", err)
	}
}
