// Package matchtest provides a manual clock scheduler and a recording
// notifier for driving coordinators in tests.
package matchtest

import (
	"slices"
	"sync"
	"time"

	"github.com/playperu/geoduel/internal/geoduel"
	"github.com/playperu/geoduel/internal/match"
)

// Scheduler fires timers only when Advance moves its clock past them.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*timer
}

type timer struct {
	s       *Scheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) match.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &timer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward and runs every due callback in deadline
// order on the calling goroutine.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*timer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *timer) int {
		return int(a.at - b.at)
	})
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that are armed and not yet fired.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Notifier records every event per player.
type Notifier struct {
	mu     sync.Mutex
	events map[string][]geoduel.Event
}

func (n *Notifier) Notify(playerID string, ev geoduel.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[string][]geoduel.Event)
	}
	n.events[playerID] = append(n.events[playerID], ev)
}

func (n *Notifier) Events(playerID string) []geoduel.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.events[playerID])
}

// Types lists the event types delivered to playerID in order.
func (n *Notifier) Types(playerID string) []string {
	evs := n.Events(playerID)
	types := make([]string, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type
	}
	return types
}

// Last returns the most recent event of type typ delivered to playerID.
func (n *Notifier) Last(playerID, typ string) (geoduel.Event, bool) {
	evs := n.Events(playerID)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i], true
		}
	}
	return geoduel.Event{}, false
}

// Count reports how many events of type typ playerID received.
func (n *Notifier) Count(playerID, typ string) int {
	c := 0
	for _, ev := range n.Events(playerID) {
		if ev.Type == typ {
			c++
		}
	}
	return c
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}
