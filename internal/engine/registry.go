package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry holds one orchestrator per growspace. Growspaces never share
// mutable state, so they evaluate fully in parallel; the registry only
// guards its own map.
type Registry struct {
	mu     sync.RWMutex
	sink   Sink
	spaces map[string]*Orchestrator
}

// NewRegistry creates an empty registry publishing into sink.
func NewRegistry(sink Sink) *Registry {
	return &Registry{
		sink:   sink,
		spaces: make(map[string]*Orchestrator),
	}
}

// Add creates and registers an orchestrator for a growspace.
// Configuration errors are returned before the growspace produces any
// verdict.
func (r *Registry) Add(cfg Config) (*Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.spaces[cfg.Growspace]; exists {
		return nil, fmt.Errorf("registry: growspace %q already registered", cfg.Growspace)
	}
	o, err := New(cfg, r.sink)
	if err != nil {
		return nil, err
	}
	r.spaces[cfg.Growspace] = o
	log.Info().Str("growspace", cfg.Growspace).Msg("Growspace registered")
	return o, nil
}

// Get returns the orchestrator for a growspace id.
func (r *Registry) Get(id string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.spaces[id]
	return o, ok
}

// Remove tears down a growspace. Its state is discarded; evaluations
// are synchronous so there is no in-flight work to cancel.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[id]; !ok {
		return false
	}
	delete(r.spaces, id)
	log.Info().Str("growspace", id).Msg("Growspace removed")
	return true
}

// IDs returns the registered growspace ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.spaces))
	for id := range r.spaces {
		ids = append(ids, id)
	}
	return ids
}

// HandleSensor routes a sensor update to its growspace. Updates for
// unregistered growspaces are dropped with a warning.
func (r *Registry) HandleSensor(u SensorUpdate) {
	if o, ok := r.Get(u.Growspace); ok {
		o.HandleSensor(u)
		return
	}
	log.Warn().Str("growspace", u.Growspace).Msg("Sensor update for unknown growspace")
}

// HandleSwitch routes a switch update to its growspace.
func (r *Registry) HandleSwitch(u SwitchUpdate) {
	if o, ok := r.Get(u.Growspace); ok {
		o.HandleSwitch(u)
		return
	}
	log.Warn().Str("growspace", u.Growspace).Msg("Switch update for unknown growspace")
}

// HandleStage routes a stage update to its growspace.
func (r *Registry) HandleStage(u StageUpdate) {
	if o, ok := r.Get(u.Growspace); ok {
		o.HandleStage(u)
		return
	}
	log.Warn().Str("growspace", u.Growspace).Msg("Stage update for unknown growspace")
}

// TickAll advances time-based logic for every growspace.
func (r *Registry) TickAll(now time.Time) {
	r.Each(func(o *Orchestrator) { o.Tick(now) })
}

// Each runs fn against every registered orchestrator.
func (r *Registry) Each(fn func(*Orchestrator)) {
	r.mu.RLock()
	spaces := make([]*Orchestrator, 0, len(r.spaces))
	for _, o := range r.spaces {
		spaces = append(spaces, o)
	}
	r.mu.RUnlock()

	for _, o := range spaces {
		fn(o)
	}
}
