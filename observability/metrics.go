// Package observability bundles the server's Prometheus metrics and provides
// nil-safe helpers so instrumented code never has to guard against a missing
// collector.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Geocode lookup outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeMismatch = "country_mismatch"
	OutcomeError    = "error"
)

// Collector holds all metric handles. A nil *Collector is valid and turns
// every helper into a no-op.
type Collector struct {
	RoomsActive   prometheus.Gauge
	PlayersActive prometheus.Gauge

	GeocodeLookups     *prometheus.CounterVec
	LocationsGenerated prometheus.Counter
	SlotFailures       prometheus.Counter
	GenerateDuration   prometheus.Histogram
}

// NewCollector registers the server's metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{}
	var err error

	c.RoomsActive, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "game_rooms_active",
		Help: "Current number of live rooms.",
	}))
	if err != nil {
		return nil, err
	}
	c.PlayersActive, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "game_players_active",
		Help: "Current number of players across all rooms.",
	}))
	if err != nil {
		return nil, err
	}
	c.GeocodeLookups, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_lookups_total",
		Help: "Geocode lookups by outcome (hit, miss, country_mismatch, error).",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	c.LocationsGenerated, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locations_generated_total",
		Help: "Total number of accepted locations.",
	}))
	if err != nil {
		return nil, err
	}
	c.SlotFailures, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "location_slot_failures_total",
		Help: "Slots that exhausted their attempt budget.",
	}))
	if err != nil {
		return nil, err
	}
	c.GenerateDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "location_generate_duration_seconds",
		Help:    "Wall time of one Generate call.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// register swallows duplicate registration so two components sharing a
// registry can both construct a Collector; the existing collector wins.
func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Gauge), nil
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Counter), nil
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return cv, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Histogram), nil
		}
		return nil, err
	}
	return h, nil
}

func (c *Collector) RoomOpened() {
	if c == nil {
		return
	}
	c.RoomsActive.Inc()
}

func (c *Collector) RoomClosed() {
	if c == nil {
		return
	}
	c.RoomsActive.Dec()
}

func (c *Collector) PlayerJoined() {
	if c == nil {
		return
	}
	c.PlayersActive.Inc()
}

func (c *Collector) PlayerLeft() {
	if c == nil {
		return
	}
	c.PlayersActive.Dec()
}

func (c *Collector) GeocodeLookup(outcome string) {
	if c == nil {
		return
	}
	c.GeocodeLookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) LocationAccepted() {
	if c == nil {
		return
	}
	c.LocationsGenerated.Inc()
}

func (c *Collector) SlotFailed() {
	if c == nil {
		return
	}
	c.SlotFailures.Inc()
}

func (c *Collector) ObserveGenerate(seconds float64) {
	if c == nil {
		return
	}
	c.GenerateDuration.Observe(seconds)
}
