package runlog

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/signalsfoundry/cleanup-simulator/model"
)

func TestRegisterAndAppendTrack(t *testing.T) {
	log := New()
	if err := log.RegisterActor("drone_0"); err != nil {
		t.Fatalf("RegisterActor error: %v", err)
	}

	for step := 1; step <= 3; step++ {
		p := model.TrackPoint{StepIndex: step, ActorID: "drone_0", XKm: float64(step), YKm: 50}
		if err := log.AppendTrack(p); err != nil {
			t.Fatalf("AppendTrack step %d error: %v", step, err)
		}
	}

	track, err := log.Track("drone_0")
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}
	if len(track) != 3 {
		t.Fatalf("Track len=%d, want 3", len(track))
	}
	for i, p := range track {
		if p.StepIndex != i+1 {
			t.Fatalf("point %d has StepIndex %d, want %d", i, p.StepIndex, i+1)
		}
	}
}

func TestActorIDsKeepRegistrationOrder(t *testing.T) {
	log := New()
	want := []string{"drone_1", "drone_0", "catching_system"}
	for _, id := range want {
		if err := log.RegisterActor(id); err != nil {
			t.Fatalf("RegisterActor(%q) error: %v", id, err)
		}
	}
	if got := log.ActorIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ActorIDs = %v, want %v", got, want)
	}
}

func TestRegisterActorDuplicate(t *testing.T) {
	log := New()
	if err := log.RegisterActor("drone_0"); err != nil {
		t.Fatalf("first RegisterActor error: %v", err)
	}
	if err := log.RegisterActor("drone_0"); err == nil {
		t.Fatalf("expected duplicate RegisterActor to fail")
	}
}

func TestAppendTrackUnknownActor(t *testing.T) {
	log := New()
	err := log.AppendTrack(model.TrackPoint{ActorID: "ghost"})
	if !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("AppendTrack error = %v, want ErrUnknownActor", err)
	}
	if _, err := log.Track("ghost"); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("Track error = %v, want ErrUnknownActor", err)
	}
}

func TestAppendStepAndStepCount(t *testing.T) {
	log := New()
	for step := 1; step <= 4; step++ {
		log.AppendStep(model.StepStats{Step: step, ParticlesDetected: float64(step)})
	}

	if got := log.StepCount(); got != 4 {
		t.Fatalf("StepCount = %d, want 4", got)
	}
	steps := log.Steps()
	if len(steps) != 4 {
		t.Fatalf("Steps len=%d, want 4", len(steps))
	}
	for i, s := range steps {
		if s.Step != i+1 {
			t.Fatalf("step record %d has Step %d, want %d", i, s.Step, i+1)
		}
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	log := New()
	if err := log.RegisterActor("drone_0"); err != nil {
		t.Fatalf("RegisterActor error: %v", err)
	}

	var events []Event
	unsubscribe := log.Subscribe(func(e Event) { events = append(events, e) })

	point := model.TrackPoint{StepIndex: 1, ActorID: "drone_0", XKm: 1, YKm: 2}
	if err := log.AppendTrack(point); err != nil {
		t.Fatalf("AppendTrack error: %v", err)
	}
	stats := model.StepStats{Step: 1, ParticlesProcessed: 0.5}
	log.AppendStep(stats)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventTrackAppended || events[0].Track != point {
		t.Fatalf("event 0 = %+v, want track appended with %+v", events[0], point)
	}
	if events[1].Type != EventStepCompleted || events[1].Stats != stats {
		t.Fatalf("event 1 = %+v, want step completed with %+v", events[1], stats)
	}

	unsubscribe()
	log.AppendStep(model.StepStats{Step: 2})
	if len(events) != 2 {
		t.Fatalf("got %d events after unsubscribe, want 2", len(events))
	}
}

// Snapshots must be isolated: mutating a returned slice cannot corrupt the log.
func TestSnapshotsAreCopies(t *testing.T) {
	log := New()
	if err := log.RegisterActor("drone_0"); err != nil {
		t.Fatalf("RegisterActor error: %v", err)
	}
	if err := log.AppendTrack(model.TrackPoint{StepIndex: 1, ActorID: "drone_0", XKm: 7}); err != nil {
		t.Fatalf("AppendTrack error: %v", err)
	}
	log.AppendStep(model.StepStats{Step: 1})

	track, _ := log.Track("drone_0")
	track[0].XKm = -1
	steps := log.Steps()
	steps[0].Step = -1
	ids := log.ActorIDs()
	ids[0] = "mutated"

	track2, _ := log.Track("drone_0")
	if track2[0].XKm != 7 {
		t.Fatalf("track mutated through snapshot: %+v", track2[0])
	}
	if log.Steps()[0].Step != 1 {
		t.Fatalf("steps mutated through snapshot")
	}
	if log.ActorIDs()[0] != "drone_0" {
		t.Fatalf("actor IDs mutated through snapshot")
	}
}

func TestConcurrentAppendsAndReads(t *testing.T) {
	log := New()
	const actors = 4
	for i := 0; i < actors; i++ {
		if err := log.RegisterActor(fmt.Sprintf("drone_%d", i)); err != nil {
			t.Fatalf("RegisterActor error: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < actors; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("drone_%d", i)
			for step := 1; step <= 50; step++ {
				if err := log.AppendTrack(model.TrackPoint{StepIndex: step, ActorID: id}); err != nil {
					t.Errorf("AppendTrack error: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				_ = log.ActorIDs()
				_, _ = log.Track(fmt.Sprintf("drone_%d", i))
				_ = log.StepCount()
			}
		}()
	}
	wg.Wait()

	for i := 0; i < actors; i++ {
		track, err := log.Track(fmt.Sprintf("drone_%d", i))
		if err != nil {
			t.Fatalf("Track error: %v", err)
		}
		if len(track) != 50 {
			t.Fatalf("track %d len=%d, want 50", i, len(track))
		}
	}
}
