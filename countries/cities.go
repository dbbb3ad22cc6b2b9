package countries

import (
	"encoding/json"
	"fmt"
	"os"
)

// Cities is the curated city table used by the cities game mode. Entries are
// [lat, lng] pairs.
type Cities struct {
	points [][2]float64
}

func LoadCities(path string) (*Cities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading city table: %w", err)
	}
	return ParseCities(data)
}

func ParseCities(data []byte) (*Cities, error) {
	var points [][2]float64
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parsing city table: %w", err)
	}
	return &Cities{points: points}, nil
}

func (c *Cities) Len() int {
	if c == nil {
		return 0
	}
	return len(c.points)
}

// At returns the lat/lng of the i-th city.
func (c *Cities) At(i int) (float64, float64) {
	p := c.points[i]
	return p[0], p[1]
}
