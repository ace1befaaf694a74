// Package eventbus broadcasts domain events to listeners registered in process.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const (
	PortfolioChanged  = "portfolio.changed"
	MarketDataUpdated = "market-data.updated"
)

// Event is anything with a routing name.
type Event interface {
	Name() string
}

// PortfolioChangedEvent is emitted whenever activities of a user change.
type PortfolioChangedEvent struct {
	UserID string `json:"userId"`
}

func (PortfolioChangedEvent) Name() string { return PortfolioChanged }

// MarketDataUpdatedEvent is emitted after new prices of one asset were stored.
type MarketDataUpdatedEvent struct {
	DataSource string `json:"dataSource"`
	Symbol     string `json:"symbol"`
}

func (MarketDataUpdatedEvent) Name() string { return MarketDataUpdated }

// Listener handles one event. Errors are logged by the bus.
type Listener func(ctx context.Context, e Event) error

type subscription struct {
	name     string
	listener Listener
}

// Bus delivers events synchronously to every listener subscribed to the event name.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription

	// OnDelivered is called after each listener returns, used for metrics.
	OnDelivered func(event string, err error)
}

func New() *Bus {
	return &Bus{subs: map[string][]subscription{}}
}

// Subscribe registers listener for events named event. name identifies the listener in logs.
func (b *Bus) Subscribe(event, name string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[event] = append(b.subs[event], subscription{name: name, listener: listener})
}

// Emit calls every listener of e in subscription order. A failing or panicking
// listener does not prevent delivery to the others.
func (b *Bus) Emit(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[e.Name()]...)
	b.mu.RUnlock()

	for _, s := range subs {
		err := deliver(ctx, s.listener, e)
		if err != nil {
			slog.Error("event listener failed", "event", e.Name(), "listener", s.name, "error", err)
		}
		if b.OnDelivered != nil {
			b.OnDelivered(e.Name(), err)
		}
	}
}

func deliver(ctx context.Context, l Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l(ctx, e)
}
