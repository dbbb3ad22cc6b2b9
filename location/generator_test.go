package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealmerengue/PlaceYourGuessServer/countries"
	"github.com/therealmerengue/PlaceYourGuessServer/geocode"
)

const testBoxesJSON = `{"features":[
	{"properties":{"iso3166":"TL"},"geometry":{"coordinates":[[[10.0,-5.0],[20.0,-5.0],[20.0,5.0],[10.0,5.0],[10.0,-5.0]]]}}
]}`

const testCodesJSON = `[
	{"name": "Testland", "alpha-2": "TL"},
	{"name": "Otherland", "alpha-2": "OT"}
]`

func newTestGenerator(t *testing.T, g Geocoder, maxAttempts int) *Generator {
	t.Helper()
	boxes, err := countries.ParseBoxes([]byte(testBoxesJSON))
	require.NoError(t, err)
	codes, err := countries.ParseCodes([]byte(testCodesJSON))
	require.NoError(t, err)
	cities, err := countries.ParseCities([]byte(`[[52.37,4.89],[40.71,-74.00],[35.68,139.69],[48.85,2.35]]`))
	require.NoError(t, err)
	return NewGenerator(g, boxes, codes, cities, maxAttempts, nil, zerolog.Nop())
}

func TestGenerate_CustomBox(t *testing.T) {
	t.Parallel()

	box := countries.Bounds{MinLat: -3, MaxLat: 4, MinLng: 100, MaxLng: 110}
	// The reported country maps to nothing in the code table; custom mode
	// must accept anyway because membership checks are skipped.
	gen := newTestGenerator(t, echoGeocoder("Nowhere"), 100)

	points, err := gen.Generate(context.Background(), Constraints{
		Selector: CustomBox,
		Box:      box,
		Count:    5,
	})
	require.NoError(t, err)
	require.Len(t, points, 5)

	seenLats := make(map[float64]struct{})
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Lat, box.MinLat)
		assert.LessOrEqual(t, p.Lat, box.MaxLat)
		assert.GreaterOrEqual(t, p.Lng, box.MinLng)
		assert.LessOrEqual(t, p.Lng, box.MaxLng)
		_, dup := seenLats[p.Lat]
		assert.False(t, dup, "latitude %v returned twice", p.Lat)
		seenLats[p.Lat] = struct{}{}
	}
}

func TestGenerate_FixedCountry(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator(t, echoGeocoder("Testland"), 100)

	points, err := gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "TL",
		Count:       3,
	})
	require.NoError(t, err)
	require.Len(t, points, 3)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Lat, -5.0)
		assert.LessOrEqual(t, p.Lat, 5.0)
		assert.GreaterOrEqual(t, p.Lng, 10.0)
		assert.LessOrEqual(t, p.Lng, 20.0)
	}
}

func TestGenerate_FixedCountry_MismatchExhaustsBudget(t *testing.T) {
	t.Parallel()

	counting := &countingGeocoder{next: echoGeocoder("Otherland")}
	gen := newTestGenerator(t, counting, 7)

	_, err := gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "TL",
		Count:       1,
	})
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, int64(7), counting.calls.Load())
}

func TestGenerate_EmptyResponsesAreRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	backend := geocoderFunc(func(_ context.Context, lat, lng float64, _ int) (geocode.Result, bool, error) {
		if calls.Add(1) <= 3 {
			return geocode.Result{}, false, nil
		}
		return geocode.Result{Lat: lat, Lng: lng, Country: "Testland"}, true, nil
	})
	gen := newTestGenerator(t, backend, 100)

	points, err := gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "TL",
		Count:       1,
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(4), calls.Load())
}

func TestGenerate_CountryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	backend := geocoderFunc(func(_ context.Context, lat, lng float64, _ int) (geocode.Result, bool, error) {
		calls.Add(1)
		return geocode.Result{Lat: lat, Lng: lng, Country: "Testland"}, true, nil
	})
	gen := newTestGenerator(t, backend, 100)

	_, err := gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "ZZ",
		Count:       2,
	})
	assert.ErrorIs(t, err, countries.ErrCountryNotFound)
	assert.Zero(t, calls.Load(), "no sampling should happen with unusable bounds")
}

func TestGenerate_DuplicateLatitudeRejected(t *testing.T) {
	t.Parallel()

	// The backend snaps every sample to one imagery location, so only one
	// slot can ever claim it.
	snapped := geocoderFunc(func(context.Context, float64, float64, int) (geocode.Result, bool, error) {
		return geocode.Result{Lat: 1.5, Lng: 15.0, Country: "Testland"}, true, nil
	})

	gen := newTestGenerator(t, snapped, 5)
	points, err := gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "TL",
		Count:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, []Point{{Lat: 1.5, Lng: 15.0}}, points)

	gen = newTestGenerator(t, snapped, 5)
	_, err = gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "TL",
		Count:       2,
	})
	assert.ErrorIs(t, err, ErrLocationUnavailable)
}

func TestGenerate_RandomCountry(t *testing.T) {
	t.Parallel()

	boxes, codeTable, backend, err := supportedWorld()
	require.NoError(t, err)
	gen := NewGenerator(backend, boxes, codeTable, nil, 100, nil, zerolog.Nop())

	points, err := gen.Generate(context.Background(), Constraints{
		Selector: RandomCountry,
		Count:    10,
	})
	require.NoError(t, err)
	require.Len(t, points, 10)

	seenLats := make(map[float64]struct{})
	for _, p := range points {
		// Each country owns latitudes [i, i+0.5); a point outside every
		// country's half-degree band would mean membership was not checked.
		assert.LessOrEqual(t, p.Lat-float64(int(p.Lat)), 0.5)
		_, dup := seenLats[p.Lat]
		assert.False(t, dup)
		seenLats[p.Lat] = struct{}{}
	}
}

func TestGenerate_BackendErrorSurfaces(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("backend down")
	failing := geocoderFunc(func(context.Context, float64, float64, int) (geocode.Result, bool, error) {
		return geocode.Result{}, false, backendErr
	})
	gen := newTestGenerator(t, failing, 100)

	_, err := gen.Generate(context.Background(), Constraints{
		Selector:    FixedCountry,
		CountryCode: "TL",
		Count:       3,
	})
	assert.ErrorIs(t, err, backendErr)
}

func TestGenerate_CountValidation(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator(t, echoGeocoder("Testland"), 100)
	_, err := gen.Generate(context.Background(), Constraints{Selector: FixedCountry, CountryCode: "TL"})
	assert.Error(t, err)
}

func TestPickCities(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator(t, echoGeocoder("Testland"), 100)

	points, err := gen.PickCities(4)
	require.NoError(t, err)
	require.Len(t, points, 4)

	seen := make(map[Point]struct{})
	for _, p := range points {
		_, dup := seen[p]
		assert.False(t, dup, "city %+v picked twice", p)
		seen[p] = struct{}{}
	}

	_, err = gen.PickCities(5)
	assert.ErrorIs(t, err, ErrNotEnoughCities)

	_, err = gen.PickCities(0)
	assert.Error(t, err)
}
