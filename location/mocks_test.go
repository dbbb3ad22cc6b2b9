package location

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/therealmerengue/PlaceYourGuessServer/countries"
	"github.com/therealmerengue/PlaceYourGuessServer/geocode"
)

// geocoderFunc adapts a function to the Geocoder interface so tests can
// script backend behavior, including echoing the sampled point back.
type geocoderFunc func(ctx context.Context, lat, lng float64, radius int) (geocode.Result, bool, error)

func (f geocoderFunc) Lookup(ctx context.Context, lat, lng float64, radius int) (geocode.Result, bool, error) {
	return f(ctx, lat, lng, radius)
}

// countingGeocoder tracks how many lookups the engine issued.
type countingGeocoder struct {
	calls atomic.Int64
	next  Geocoder
}

func (c *countingGeocoder) Lookup(ctx context.Context, lat, lng float64, radius int) (geocode.Result, bool, error) {
	c.calls.Add(1)
	return c.next.Lookup(ctx, lat, lng, radius)
}

// echoGeocoder confirms imagery at exactly the sampled point and reports the
// given country name.
func echoGeocoder(country string) geocoderFunc {
	return func(_ context.Context, lat, lng float64, _ int) (geocode.Result, bool, error) {
		return geocode.Result{Lat: lat, Lng: lng, Country: country}, true, nil
	}
}

// supportedWorld builds reference tables covering every supported country:
// country number i owns latitudes [i, i+0.5), and its backend name is
// "Country-<code>". The echoing geocoder derives the name from the latitude,
// which lets random-country rounds verify membership end to end.
func supportedWorld() (*countries.Table, *countries.Codes, Geocoder, error) {
	codes := countries.SupportedCodes()

	var boxes strings.Builder
	boxes.WriteString(`{"features":[`)
	for i, code := range codes {
		if i > 0 {
			boxes.WriteString(",")
		}
		minLat, maxLat := float64(i), float64(i)+0.5
		fmt.Fprintf(&boxes,
			`{"properties":{"iso3166":%q},"geometry":{"coordinates":[[[0,%f],[1,%f],[1,%f],[0,%f],[0,%f]]]}}`,
			code, minLat, minLat, maxLat, maxLat, minLat)
	}
	boxes.WriteString(`]}`)

	table, err := countries.ParseBoxes([]byte(boxes.String()))
	if err != nil {
		return nil, nil, nil, err
	}

	var codeEntries strings.Builder
	codeEntries.WriteString(`[`)
	for i, code := range codes {
		if i > 0 {
			codeEntries.WriteString(",")
		}
		fmt.Fprintf(&codeEntries, `{"name":"Country-%s","alpha-2":%q}`, code, code)
	}
	codeEntries.WriteString(`]`)

	codeTable, err := countries.ParseCodes([]byte(codeEntries.String()))
	if err != nil {
		return nil, nil, nil, err
	}

	backend := geocoderFunc(func(_ context.Context, lat, lng float64, _ int) (geocode.Result, bool, error) {
		i := int(lat)
		if i < 0 || i >= len(codes) {
			return geocode.Result{}, false, nil
		}
		return geocode.Result{Lat: lat, Lng: lng, Country: "Country-" + codes[i]}, true, nil
	})

	return table, codeTable, backend, nil
}
