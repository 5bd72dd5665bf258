package mqtt

import (
	"sync"

	"github.com/tentwatch/growmond/internal/engine"
)

// FakePublisher records published events for tests.
type FakePublisher struct {
	mu        sync.Mutex
	Verdicts  []engine.VerdictEvent
	Schedules []engine.LightScheduleEvent
	Err       error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishVerdict(ev engine.VerdictEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Verdicts = append(f.Verdicts, ev)
	return nil
}

func (f *FakePublisher) PublishLightSchedule(ev engine.LightScheduleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Schedules = append(f.Schedules, ev)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

// VerdictCount returns the number of recorded verdicts.
func (f *FakePublisher) VerdictCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Verdicts)
}

// LastVerdict returns the most recent recorded verdict.
func (f *FakePublisher) LastVerdict() (engine.VerdictEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Verdicts) == 0 {
		return engine.VerdictEvent{}, false
	}
	return f.Verdicts[len(f.Verdicts)-1], true
}
