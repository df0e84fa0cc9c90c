package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/playperu/geoduel/internal/geoduel"
)

// Broker is an in-process pub/sub for outbound game events, keyed by
// connection ID. Each connection has exactly one subscriber: its writer.
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]chan []byte
	dropped func()
	logger  *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]chan []byte),
		logger: logger,
	}
}

// Subscribe returns the channel that receives JSON-encoded events for
// connID.
func (b *Broker) Subscribe(connID string) chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[connID] = ch
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(connID string) {
	b.mu.Lock()
	delete(b.subs, connID)
	b.mu.Unlock()
}

// Publish sends an event to the connection's subscriber. It never blocks.
func (b *Broker) Publish(connID string, ev geoduel.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encoding event", "conn", connID, "type", ev.Type, "error", err)
		return
	}
	b.mu.RLock()
	ch, ok := b.subs[connID]
	if ok {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
			if b.dropped != nil {
				b.dropped()
			}
		}
	}
	b.mu.RUnlock()
}

// OnDrop registers a callback for events dropped on a full subscriber.
func (b *Broker) OnDrop(fn func()) {
	b.mu.Lock()
	b.dropped = fn
	b.mu.Unlock()
}
