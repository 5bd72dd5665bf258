package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tentwatch/growmond/internal/config"
	"github.com/tentwatch/growmond/internal/db"
	"github.com/tentwatch/growmond/internal/engine"
	"github.com/tentwatch/growmond/internal/engine/bayes"
	"github.com/tentwatch/growmond/internal/engine/hysteresis"
	"github.com/tentwatch/growmond/internal/engine/profile"
	"github.com/tentwatch/growmond/internal/eventbus"
	"github.com/tentwatch/growmond/internal/ledger"
	"github.com/tentwatch/growmond/internal/mqtt"
	"github.com/tentwatch/growmond/internal/state"
	"github.com/tentwatch/growmond/internal/web"
)

// State store kinds.
const (
	kindStage    = "stage"
	kindVerdict  = "verdict"
	kindSchedule = "light_schedule"
)

// persistedStage remembers the last known growth stage per growspace
// so restarts do not lose day-in-stage accounting.
type persistedStage struct {
	Stage      string    `json:"stage"`
	StageStart time.Time `json:"stage_start"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Store  *state.Store
	Bus    *eventbus.Bus

	// Typed views over the state store
	Stages    *state.TypedStore[persistedStage]
	Verdicts  *state.TypedStore[engine.VerdictEvent]
	Schedules *state.TypedStore[engine.LightScheduleEvent]

	// Inference
	Registry *engine.Registry

	// Transport
	MQTT *mqtt.Client
	Web  *web.Server
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize ledger and state store
	s.Ledger = ledger.New(database.DB)
	s.Store = state.NewStore(database.DB)
	s.Stages = state.NewTypedStore[persistedStage](s.Store, kindStage)
	s.Verdicts = state.NewTypedStore[engine.VerdictEvent](s.Store, kindVerdict)
	s.Schedules = state.NewTypedStore[engine.LightScheduleEvent](s.Store, kindSchedule)

	// Initialize event bus for engine outputs
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Initialize growspace registry publishing onto the bus
	s.Registry = engine.NewRegistry(&busSink{bus: s.Bus})

	// Recorder: append engine outputs to the ledger and remember the
	// latest per growspace in the state store.
	s.Bus.Subscribe(eventbus.EventTypeVerdict, s.recordVerdict)
	s.Bus.Subscribe(eventbus.EventTypeLightSchedule, s.recordSchedule)

	if err := s.setupGrowspaces(); err != nil {
		s.Close()
		return nil, err
	}

	if cfg.Web.Enabled {
		s.Web = web.NewServer(cfg.Web.Host, cfg.Web.Port, s.Registry, s.Ledger)
	}

	return s, nil
}

// setupGrowspaces creates an orchestrator per configured growspace and
// seeds it. State remembered in the store wins over the config: it
// reflects updates received over MQTT before the restart, and restoring
// it keeps the engine from forgetting verdicts or republishing them
// unchanged.
func (s *Services) setupGrowspaces() error {
	for _, gc := range s.cfg.Growspaces {
		engineCfg, err := toEngineConfig(gc)
		if err != nil {
			return fmt.Errorf("growspace %q: %w", gc.ID, err)
		}
		orch, err := s.Registry.Add(engineCfg)
		if err != nil {
			return fmt.Errorf("growspace %q: %w", gc.ID, err)
		}

		restored, err := s.restoredState(gc.ID)
		if err != nil {
			return fmt.Errorf("growspace %q: %w", gc.ID, err)
		}
		orch.Restore(restored, time.Now())
		if restored.Stage.Valid() {
			log.Info().
				Str("growspace", gc.ID).
				Str("stage", string(restored.Stage)).
				Int("verdicts", len(restored.Verdicts)).
				Msg("Growspace state restored")
			continue
		}

		stage, start, ok, err := s.configStage(gc)
		if err != nil {
			return fmt.Errorf("growspace %q: %w", gc.ID, err)
		}
		if !ok {
			log.Info().Str("growspace", gc.ID).Msg("No initial stage, waiting for stage updates")
			continue
		}
		orch.HandleStage(engine.StageUpdate{
			Growspace:  gc.ID,
			Stage:      stage,
			StageStart: start,
			At:         time.Now(),
		})
		log.Info().
			Str("growspace", gc.ID).
			Str("stage", string(stage)).
			Time("stage_start", start).
			Msg("Growspace initialized")
	}
	return nil
}

// restoredState gathers the stage and last published outputs a previous
// run persisted for one growspace.
func (s *Services) restoredState(id string) (engine.RestoredState, error) {
	var st engine.RestoredState

	remembered, found, err := s.Stages.Get(id)
	if err != nil {
		return st, err
	}
	if found {
		stage := profile.GrowthStage(remembered.Stage)
		if stage.Valid() {
			st.Stage = stage
			st.StageStart = remembered.StageStart
		} else {
			log.Warn().Str("growspace", id).Str("stage", remembered.Stage).Msg("Ignoring invalid persisted stage")
		}
	}

	verdicts, err := s.Verdicts.GetAll()
	if err != nil {
		return st, err
	}
	prefix := id + "/"
	for key, v := range verdicts {
		if strings.HasPrefix(key, prefix) {
			st.Verdicts = append(st.Verdicts, v)
		}
	}

	schedule, found, err := s.Schedules.Get(id)
	if err != nil {
		return st, err
	}
	if found {
		st.Schedule = &schedule
	}
	return st, nil
}

// configStage resolves the configured fallback stage for a growspace
// with nothing in the state store.
func (s *Services) configStage(gc config.GrowspaceConfig) (profile.GrowthStage, time.Time, bool, error) {
	if gc.Stage == "" {
		return "", time.Time{}, false, nil
	}
	stage := profile.GrowthStage(gc.Stage)
	start := time.Now()
	if gc.StageStart != "" {
		parsed, err := time.Parse("2006-01-02", gc.StageStart)
		if err != nil {
			return "", time.Time{}, false, fmt.Errorf("parsing stage_start: %w", err)
		}
		start = parsed
	}
	return stage, start, true, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Connect to the broker and subscribe sensor topics. Inbound
	// messages go straight to the registry so per-growspace arrival
	// order is preserved.
	client, err := mqtt.NewClient(s.cfg.MQTT, s.cfg.Growspaces, &stageDispatcher{
		registry: s.Registry,
		stages:   s.Stages,
	})
	if err != nil {
		return err
	}
	s.MQTT = client

	// Republish engine outputs to the broker.
	s.Bus.Subscribe(eventbus.EventTypeVerdict, func(ev eventbus.Event) {
		verdict, ok := ev.Payload.(engine.VerdictEvent)
		if !ok {
			return
		}
		if err := s.MQTT.PublishVerdict(verdict); err != nil {
			log.Error().Err(err).Str("growspace", verdict.Growspace).Msg("Failed to publish verdict")
		}
	})
	s.Bus.Subscribe(eventbus.EventTypeLightSchedule, func(ev eventbus.Event) {
		schedule, ok := ev.Payload.(engine.LightScheduleEvent)
		if !ok {
			return
		}
		if err := s.MQTT.PublishLightSchedule(schedule); err != nil {
			log.Error().Err(err).Str("growspace", schedule.Growspace).Msg("Failed to publish light schedule")
		}
	})

	// Periodic tick drives dwell expiry and 24h window closure even
	// when no sensor events arrive.
	go s.runTicker(ctx)

	// Ledger retention
	go s.Ledger.RunCleanup(ctx, s.cfg.Ledger.CleanupInterval.Duration(), s.cfg.Ledger.RetentionDays)

	if s.Web != nil {
		go func() {
			if err := s.Web.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
				onFatalError(err)
			}
		}()
	}

	return nil
}

func (s *Services) runTicker(ctx context.Context) {
	interval := s.cfg.Engine.TickInterval.Duration()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Registry.TickAll(now)
		}
	}
}

func (s *Services) recordVerdict(ev eventbus.Event) {
	verdict, ok := ev.Payload.(engine.VerdictEvent)
	if !ok {
		return
	}
	entry := ledger.VerdictEntry{
		EventID:     ev.ID,
		Growspace:   verdict.Growspace,
		Condition:   string(verdict.Condition),
		State:       string(verdict.State),
		Probability: verdict.Probability,
		Stale:       verdict.Stale,
		Reasons:     verdict.Reasons,
		Timestamp:   verdict.At,
	}
	if err := s.Ledger.AppendVerdict(entry); err != nil {
		log.Error().Err(err).Str("growspace", verdict.Growspace).Msg("Failed to record verdict")
	}
	key := verdict.Growspace + "/" + string(verdict.Condition)
	if err := s.Verdicts.Set(key, verdict); err != nil {
		log.Error().Err(err).Str("growspace", verdict.Growspace).Msg("Failed to persist verdict state")
	}
}

func (s *Services) recordSchedule(ev eventbus.Event) {
	schedule, ok := ev.Payload.(engine.LightScheduleEvent)
	if !ok {
		return
	}
	entry := ledger.LightWindowEntry{
		Growspace:  schedule.Growspace,
		Status:     string(schedule.Status),
		ObservedOn: schedule.ObservedOn,
		ExpectedOn: schedule.ExpectedOn,
		Timestamp:  schedule.At,
	}
	if err := s.Ledger.AppendLightWindow(entry); err != nil {
		log.Error().Err(err).Str("growspace", schedule.Growspace).Msg("Failed to record light window")
	}
	if err := s.Schedules.Set(schedule.Growspace, schedule); err != nil {
		log.Error().Err(err).Str("growspace", schedule.Growspace).Msg("Failed to persist schedule state")
	}
}

// ClearState clears all persisted engine state.
func (s *Services) ClearState() error {
	for _, kind := range []string{kindStage, kindVerdict, kindSchedule} {
		if err := s.Store.Clear(kind); err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully stops all services. The broker connection goes down
// first so no inbound message can publish onto the bus while it drains.
func (s *Services) Stop() error {
	if s.MQTT != nil {
		s.MQTT.Close()
		s.MQTT = nil
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.MQTT != nil {
		s.MQTT.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

// busSink publishes engine outputs onto the event bus.
type busSink struct {
	bus *eventbus.Bus
}

func (b *busSink) PublishVerdict(ev engine.VerdictEvent) {
	b.bus.Publish(eventbus.EventTypeVerdict, ev)
}

func (b *busSink) PublishLightSchedule(ev engine.LightScheduleEvent) {
	b.bus.Publish(eventbus.EventTypeLightSchedule, ev)
}

// stageDispatcher forwards inbound MQTT events to the registry and
// persists stage updates so they survive restarts.
type stageDispatcher struct {
	registry *engine.Registry
	stages   *state.TypedStore[persistedStage]
}

func (d *stageDispatcher) HandleSensor(u engine.SensorUpdate) {
	d.registry.HandleSensor(u)
}

func (d *stageDispatcher) HandleSwitch(u engine.SwitchUpdate) {
	d.registry.HandleSwitch(u)
}

func (d *stageDispatcher) HandleStage(u engine.StageUpdate) {
	d.registry.HandleStage(u)
	err := d.stages.Set(u.Growspace, persistedStage{
		Stage:      string(u.Stage),
		StageStart: u.StageStart,
		UpdatedAt:  u.At,
	})
	if err != nil {
		log.Error().Err(err).Str("growspace", u.Growspace).Msg("Failed to persist stage")
	}
}

// toEngineConfig converts a growspace config block into engine terms.
func toEngineConfig(gc config.GrowspaceConfig) (engine.Config, error) {
	cfg := engine.Config{
		Growspace:         gc.ID,
		LightDebounce:     gc.LightDebounce.Duration(),
		ScheduleTolerance: gc.ScheduleTolerance.Duration(),
		TrendWindow:       gc.TrendWindow.Duration(),
	}
	for _, c := range gc.Conditions {
		cfg.Conditions = append(cfg.Conditions, bayes.Condition(c))
	}
	if len(gc.Priors) > 0 {
		cfg.Priors = make(map[bayes.Condition]float64, len(gc.Priors))
		for c, p := range gc.Priors {
			cfg.Priors[bayes.Condition(c)] = p
		}
	}
	if len(gc.Gates) > 0 {
		cfg.Gates = make(map[bayes.Condition]hysteresis.Config, len(gc.Gates))
		for c, g := range gc.Gates {
			base := engine.DefaultGateConfig(bayes.Condition(c))
			if g.TurnOn > 0 {
				base.TurnOn = g.TurnOn
			}
			if g.TurnOff > 0 {
				base.TurnOff = g.TurnOff
			}
			if g.MinDwell > 0 {
				base.MinDwell = g.MinDwell.Duration()
			}
			cfg.Gates[bayes.Condition(c)] = base
		}
	}
	return cfg, nil
}
