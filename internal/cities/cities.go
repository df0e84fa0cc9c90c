// Package cities picks round targets from a difficulty-tiered catalog.
package cities

import (
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/playperu/geoduel/internal/geoduel"
)

var ErrEmptyCatalog = errors.New("city catalog is empty")

// Catalog returns a copy of the built-in city list.
func Catalog() []geoduel.City {
	return slices.Clone(catalog)
}

// Selector draws a random city for a difficulty tier. It is safe for
// concurrent use; the catalog is never mutated after construction.
type Selector struct {
	tiers map[int][]geoduel.City
	intn  func(n int) int
}

type Option func(*Selector)

// WithIntn replaces the random source, mostly for tests.
func WithIntn(intn func(n int) int) Option {
	return func(s *Selector) { s.intn = intn }
}

func New(list []geoduel.City, opts ...Option) *Selector {
	s := &Selector{
		tiers: make(map[int][]geoduel.City),
		intn:  rand.IntN,
	}
	for _, c := range list {
		s.tiers[c.Difficulty] = append(s.tiers[c.Difficulty], c)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Pick returns a random city for tier. An empty tier falls back to the next
// easier one; if every easier tier is empty the harder tiers are tried.
func (s *Selector) Pick(tier int) (geoduel.City, error) {
	for t := min(tier, geoduel.MaxDifficulty); t >= geoduel.MinDifficulty; t-- {
		if pool := s.tiers[t]; len(pool) > 0 {
			return pool[s.intn(len(pool))], nil
		}
	}
	for t := tier + 1; t <= geoduel.MaxDifficulty; t++ {
		if pool := s.tiers[t]; len(pool) > 0 {
			return pool[s.intn(len(pool))], nil
		}
	}
	return geoduel.City{}, ErrEmptyCatalog
}
