// Package mqtt connects the engine to an MQTT broker: sensor topics in,
// verdict topics out, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/tentwatch/growmond/internal/engine"
)

// Publisher publishes engine outputs to MQTT.
type Publisher interface {
	// PublishVerdict sends a condition verdict to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishVerdict(ev engine.VerdictEvent) error

	// PublishLightSchedule sends a light schedule verdict to the broker.
	PublishLightSchedule(ev engine.LightScheduleEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Dispatcher receives decoded inbound events. The engine registry
// implements it.
type Dispatcher interface {
	HandleSensor(engine.SensorUpdate)
	HandleSwitch(engine.SwitchUpdate)
	HandleStage(engine.StageUpdate)
}

// VerdictPayload is the published verdict message.
type VerdictPayload struct {
	Growspace    string   `json:"growspace"`
	Condition    string   `json:"condition"`
	State        string   `json:"state"`
	Probability  *float64 `json:"probability,omitempty"`
	Contributing []string `json:"contributing,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
	Stale        bool     `json:"stale"`
	ChangedAt    string   `json:"changed_at,omitempty"`
	Timestamp    string   `json:"timestamp"`
}

// SchedulePayload is the published light schedule message.
type SchedulePayload struct {
	Growspace      string `json:"growspace"`
	Status         string `json:"status"`
	ObservedOnSecs int64  `json:"observed_on_secs"`
	ExpectedOnSecs int64  `json:"expected_on_secs"`
	Timestamp      string `json:"timestamp"`
}

// FormatVerdict creates the JSON payload for a verdict event.
func FormatVerdict(ev engine.VerdictEvent) ([]byte, error) {
	p := VerdictPayload{
		Growspace:   ev.Growspace,
		Condition:   string(ev.Condition),
		State:       string(ev.State),
		Probability: ev.Probability,
		Reasons:     ev.Reasons,
		Stale:       ev.Stale,
		Timestamp:   ev.At.UTC().Format(time.RFC3339),
	}
	for _, v := range ev.Contributing {
		p.Contributing = append(p.Contributing, string(v))
	}
	if !ev.ChangedAt.IsZero() {
		p.ChangedAt = ev.ChangedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(p)
}

// FormatSchedule creates the JSON payload for a light schedule event.
func FormatSchedule(ev engine.LightScheduleEvent) ([]byte, error) {
	return json.Marshal(SchedulePayload{
		Growspace:      ev.Growspace,
		Status:         string(ev.Status),
		ObservedOnSecs: int64(ev.ObservedOn.Seconds()),
		ExpectedOnSecs: int64(ev.ExpectedOn.Seconds()),
		Timestamp:      ev.At.UTC().Format(time.RFC3339),
	})
}

// VerdictTopic returns the publish topic for a condition verdict.
func VerdictTopic(base, growspace, condition string) string {
	return base + "/growspaces/" + growspace + "/verdicts/" + condition
}

// ScheduleTopic returns the publish topic for the light schedule verdict.
func ScheduleTopic(base, growspace string) string {
	return base + "/growspaces/" + growspace + "/light_schedule"
}
