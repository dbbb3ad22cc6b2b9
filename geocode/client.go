// Package geocode talks to the street-imagery metadata endpoint. One lookup
// per sampled point: either the backend knows imagery near the point and
// returns its exact location plus country, or it returns an empty object.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Result is a confirmed imagery location.
type Result struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Country string  `json:"country"`
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

type Options struct {
	BaseURL string
	RPS     float64
	Burst   int
	HTTP    *http.Client
}

func NewClient(opts Options, log zerolog.Logger) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 25
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 50
	}
	return &Client{
		baseURL: opts.BaseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log.With().Str("component", "geocode").Logger(),
	}
}

// Lookup asks the backend for imagery within radius meters of the point.
// found is false when the backend has nothing there; that is not an error.
func (c *Client) Lookup(ctx context.Context, lat, lng float64, radius int) (Result, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, false, err
	}

	url := fmt.Sprintf("%s/cbk?output=json&hl=en&ll=%s,%s&radius=%d&cb_client=maps_sv&v=4",
		c.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
		radius,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, false, fmt.Errorf("geocode backend returned %s", resp.Status)
	}

	var payload struct {
		Location *Result `json:"Location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, false, fmt.Errorf("decoding geocode response: %w", err)
	}

	if payload.Location == nil {
		c.log.Trace().Float64("lat", lat).Float64("lng", lng).Msg("no imagery at point")
		return Result{}, false, nil
	}
	return *payload.Location, true, nil
}
