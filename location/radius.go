package location

import (
	"math"

	"github.com/therealmerengue/PlaceYourGuessServer/countries"
)

const earthRadiusKm = 6371.0

// searchRadius picks how far around a sampled point the backend is asked to
// search for imagery. Bigger bounds get more aggressive radii so sparse
// countries still converge in a reasonable number of attempts.
func searchRadius(b countries.Bounds) int {
	return radiusForDiagonal(haversineKm(b.MinLat, b.MinLng, b.MaxLat, b.MaxLng))
}

func radiusForDiagonal(km float64) int {
	switch {
	case km > 5000:
		return 25000
	case km > 1000:
		return 10000
	case km > 25:
		return 1000
	default:
		return 100
	}
}

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
