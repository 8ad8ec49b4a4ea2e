package runlog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/cleanup-simulator/model"
)

// ErrUnknownActor is returned when a record references an actor that was
// never registered.
var ErrUnknownActor = errors.New("unknown actor")

// EventType indicates what kind of record was appended to the log.
type EventType int

const (
	EventTrackAppended EventType = iota
	EventStepCompleted
)

// Event is emitted to subscribers when the log grows.
type Event struct {
	Type  EventType
	Track model.TrackPoint
	Stats model.StepStats
}

// Log is an in-memory, thread-safe record of a simulation run: one trajectory
// per actor plus per-step aggregate statistics. The engine appends, everything
// else reads snapshots or subscribes.
type Log struct {
	mu sync.RWMutex

	order  []string
	tracks map[string][]model.TrackPoint
	steps  []model.StepStats

	subs []func(Event)
}

// New constructs an empty log.
func New() *Log {
	return &Log{
		tracks: make(map[string][]model.TrackPoint),
	}
}

// RegisterActor adds an actor to the log. Registration order is preserved by
// ActorIDs. It returns an error if the ID already exists.
func (l *Log) RegisterActor(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.tracks[id]; exists {
		return fmt.Errorf("actor with ID %q already registered", id)
	}
	l.order = append(l.order, id)
	l.tracks[id] = nil
	return nil
}

// AppendTrack records an actor's position for a step and notifies subscribers.
func (l *Log) AppendTrack(p model.TrackPoint) error {
	l.mu.Lock()
	if _, ok := l.tracks[p.ActorID]; !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownActor, p.ActorID)
	}
	l.tracks[p.ActorID] = append(l.tracks[p.ActorID], p)
	subs := append([]func(Event){}, l.subs...)
	l.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	event := Event{Type: EventTrackAppended, Track: p}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// AppendStep records the aggregate statistics of a completed step and
// notifies subscribers.
func (l *Log) AppendStep(s model.StepStats) {
	l.mu.Lock()
	l.steps = append(l.steps, s)
	subs := append([]func(Event){}, l.subs...)
	l.mu.Unlock()

	event := Event{Type: EventStepCompleted, Stats: s}
	for _, sub := range subs {
		sub(event)
	}
}

// ActorIDs returns the registered actor IDs in registration order.
func (l *Log) ActorIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string{}, l.order...)
}

// Track returns a snapshot of an actor's trajectory in step order.
func (l *Log) Track(actorID string) ([]model.TrackPoint, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	track, ok := l.tracks[actorID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActor, actorID)
	}
	return append([]model.TrackPoint{}, track...), nil
}

// Steps returns a snapshot of the per-step statistics in step order.
func (l *Log) Steps() []model.StepStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.StepStats{}, l.steps...)
}

// StepCount returns the number of completed steps recorded so far.
func (l *Log) StepCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.steps)
}

// Subscribe registers a callback for log events. It returns an unsubscribe
// function.
func (l *Log) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
	idx := len(l.subs) - 1

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if idx < 0 || idx >= len(l.subs) {
			return
		}
		l.subs = append(l.subs[:idx], l.subs[idx+1:]...)
		idx = -1
	}
}
