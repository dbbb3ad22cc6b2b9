// Package location implements the location generation engine: concurrent
// rejection sampling of random points against the geocoding backend until
// every round slot holds a verified, imagery-backed, de-duplicated location.
package location

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/therealmerengue/PlaceYourGuessServer/countries"
	"github.com/therealmerengue/PlaceYourGuessServer/geocode"
	"github.com/therealmerengue/PlaceYourGuessServer/observability"
)

var (
	ErrLocationUnavailable = errors.New("no imagery-backed location found within attempt budget")
	ErrNotEnoughCities     = errors.New("city table smaller than requested count")
)

// Geocoder is the backend lookup the engine validates sampled points against.
type Geocoder interface {
	Lookup(ctx context.Context, lat, lng float64, radius int) (geocode.Result, bool, error)
}

// Selector picks how bounds are resolved for a round.
type Selector int

const (
	RandomCountry Selector = iota
	FixedCountry
	CustomBox
)

// Constraints describes one round's placement requirements.
type Constraints struct {
	Selector    Selector
	CountryCode string           // FixedCountry only
	Box         countries.Bounds // CustomBox only
	Count       int
}

// Point is a verified, in-bounds, imagery-available location.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Generator struct {
	geocoder    Geocoder
	boxes       *countries.Table
	codes       *countries.Codes
	cities      *countries.Cities
	maxAttempts int
	metrics     *observability.Collector
	log         zerolog.Logger
}

func NewGenerator(
	geocoder Geocoder,
	boxes *countries.Table,
	codes *countries.Codes,
	cities *countries.Cities,
	maxAttempts int,
	metrics *observability.Collector,
	log zerolog.Logger,
) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 100
	}
	return &Generator{
		geocoder:    geocoder,
		boxes:       boxes,
		codes:       codes,
		cities:      cities,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		log:         log.With().Str("component", "location").Logger(),
	}
}

// Generate produces Count verified locations. All slots sample concurrently
// and rendezvous before the results are returned; the first slot failure
// cancels the remaining ones.
func (g *Generator) Generate(ctx context.Context, c Constraints) ([]Point, error) {
	if c.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", c.Count)
	}

	boundsBySlot, err := g.resolveBounds(c)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	points := make([]Point, c.Count)
	claimed := &latitudeSet{seen: make(map[float64]struct{}, c.Count)}

	grp, gctx := errgroup.WithContext(ctx)
	for i, bounds := range boundsBySlot {
		grp.Go(func() error {
			p, err := g.sample(gctx, bounds, claimed)
			if err != nil {
				return err
			}
			points[i] = p
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	g.metrics.ObserveGenerate(time.Since(start).Seconds())
	g.log.Debug().Int("count", c.Count).Dur("took", time.Since(start)).Msg("round generated")
	return points, nil
}

func (g *Generator) resolveBounds(c Constraints) ([]countries.Bounds, error) {
	bounds := make([]countries.Bounds, c.Count)
	switch c.Selector {
	case RandomCountry:
		// Independent draw per slot: one round can span many countries.
		for i := range bounds {
			b, err := g.boxes.Bounds(countries.RandomSupportedCode())
			if err != nil {
				return nil, err
			}
			bounds[i] = b
		}
	case FixedCountry:
		b, err := g.boxes.Bounds(c.CountryCode)
		if err != nil {
			return nil, err
		}
		for i := range bounds {
			bounds[i] = b
		}
	case CustomBox:
		box := c.Box
		box.CountryCode = countries.CustomCode
		for i := range bounds {
			bounds[i] = box
		}
	default:
		return nil, fmt.Errorf("unknown selector %d", c.Selector)
	}
	return bounds, nil
}

// sample runs one slot's rejection loop: draw a uniform point, ask the
// backend for nearby imagery, verify country membership, claim the latitude.
func (g *Generator) sample(ctx context.Context, b countries.Bounds, claimed *latitudeSet) (Point, error) {
	radius := searchRadius(b)

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		lat := b.MinLat + rand.Float64()*(b.MaxLat-b.MinLat)
		lng := b.MinLng + rand.Float64()*(b.MaxLng-b.MinLng)

		res, found, err := g.geocoder.Lookup(ctx, lat, lng, radius)
		if err != nil {
			g.metrics.GeocodeLookup(observability.OutcomeError)
			return Point{}, err
		}
		if !found {
			g.metrics.GeocodeLookup(observability.OutcomeMiss)
			continue
		}

		if b.CountryCode != countries.CustomCode {
			code, ok := g.codes.Alpha2(res.Country)
			if !ok || code != b.CountryCode {
				g.metrics.GeocodeLookup(observability.OutcomeMismatch)
				continue
			}
		}
		g.metrics.GeocodeLookup(observability.OutcomeHit)

		// The backend snaps nearby points to the same imagery location, so
		// an exact latitude match means another slot already took this spot.
		if !claimed.claim(res.Lat) {
			continue
		}

		g.metrics.LocationAccepted()
		return Point{Lat: res.Lat, Lng: res.Lng}, nil
	}

	g.metrics.SlotFailed()
	g.log.Warn().
		Str("country", b.CountryCode).
		Int("attempts", g.maxAttempts).
		Msg("slot exhausted attempt budget")
	return Point{}, ErrLocationUnavailable
}

// PickCities returns count distinct entries from the curated city table.
func (g *Generator) PickCities(count int) ([]Point, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}
	if g.cities.Len() < count {
		return nil, ErrNotEnoughCities
	}

	picked := make(map[int]struct{}, count)
	points := make([]Point, 0, count)
	for len(points) < count {
		i := rand.IntN(g.cities.Len())
		if _, dup := picked[i]; dup {
			continue
		}
		picked[i] = struct{}{}
		lat, lng := g.cities.At(i)
		points = append(points, Point{Lat: lat, Lng: lng})
	}
	return points, nil
}

// latitudeSet is the round-scoped de-duplication set shared by all slots of
// one Generate call. Check-and-claim is a single critical section.
type latitudeSet struct {
	mu   sync.Mutex
	seen map[float64]struct{}
}

func (s *latitudeSet) claim(lat float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.seen[lat]; taken {
		return false
	}
	s.seen[lat] = struct{}{}
	return true
}
