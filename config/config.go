package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	GinMode        string   `env:"GIN_MODE" envDefault:"release"`

	BoxesPath  string `env:"BOXES_PATH" envDefault:"countries/boxes.json"`
	CodesPath  string `env:"CODES_PATH" envDefault:"countries/codes.json"`
	CitiesPath string `env:"CITIES_PATH" envDefault:"countries/cities.json"`

	GeocodeBaseURL string        `env:"GEOCODE_BASE_URL" envDefault:"http://maps.google.com"`
	GeocodeRPS     float64       `env:"GEOCODE_RPS" envDefault:"25"`
	GeocodeBurst   int           `env:"GEOCODE_BURST" envDefault:"50"`
	GeocodeTimeout time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"10s"`

	// LocationMaxAttempts bounds the rejection-sampling loop per slot. A
	// country with sparse imagery coverage can burn most of this budget.
	LocationMaxAttempts int           `env:"LOCATION_MAX_ATTEMPTS" envDefault:"100"`
	GenerateTimeout     time.Duration `env:"GENERATE_TIMEOUT" envDefault:"2m"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
