package game

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/therealmerengue/PlaceYourGuessServer/location"
)

// --- Channel ---

// fakeChannel records emitted events for assertions. Safe for concurrent
// emits, which the score-barrier tests rely on.
type fakeChannel struct {
	id string

	mu     sync.Mutex
	events []emittedEvent
}

type emittedEvent struct {
	Event   string
	Payload any
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{id: id}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emittedEvent{Event: event, Payload: payload})
	return nil
}

func (c *fakeChannel) recorded() []emittedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]emittedEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeChannel) count(event string) int {
	n := 0
	for _, e := range c.recorded() {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (c *fakeChannel) last(event string) (emittedEvent, bool) {
	events := c.recorded()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event == event {
			return events[i], true
		}
	}
	return emittedEvent{}, false
}

// --- LocationSource ---

type MockLocationSource struct {
	mock.Mock
}

func (m *MockLocationSource) Generate(ctx context.Context, c location.Constraints) ([]location.Point, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]location.Point), args.Error(1)
}

func (m *MockLocationSource) PickCities(count int) ([]location.Point, error) {
	args := m.Called(count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]location.Point), args.Error(1)
}
