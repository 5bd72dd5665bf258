package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tentwatch/growmond/internal/engine"
	"github.com/tentwatch/growmond/internal/engine/profile"
)

// ParseSensorPayload decodes a sensor message body. State integrations
// publish either a bare number or one of the "unavailable"/"unknown"
// markers, which map to an unavailable reading.
func ParseSensorPayload(growspace string, variable profile.Variable, body []byte, at time.Time) (engine.SensorUpdate, error) {
	u := engine.SensorUpdate{
		Growspace: growspace,
		Variable:  variable,
		At:        at,
	}
	text := strings.TrimSpace(string(body))
	switch strings.ToLower(text) {
	case "", "unavailable", "unknown", "none", "null", "nan":
		u.Unavailable = true
		return u, nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return engine.SensorUpdate{}, fmt.Errorf("sensor payload %q is not numeric: %w", text, err)
	}
	u.Value = value
	return u, nil
}

// ParseSwitchPayload decodes a binary switch message body.
func ParseSwitchPayload(growspace string, kind engine.SwitchKind, body []byte, at time.Time) (engine.SwitchUpdate, error) {
	u := engine.SwitchUpdate{
		Growspace: growspace,
		Kind:      kind,
		At:        at,
	}
	text := strings.TrimSpace(strings.ToLower(string(body)))
	switch text {
	case "on", "true", "1":
		u.On = true
	case "off", "false", "0":
		u.On = false
	case "", "unavailable", "unknown":
		u.Unavailable = true
	default:
		return engine.SwitchUpdate{}, fmt.Errorf("unrecognized switch payload %q", text)
	}
	return u, nil
}

type stagePayload struct {
	Stage      string `json:"stage"`
	StageStart string `json:"stage_start"`
}

// ParseStagePayload decodes a stage change message. The body is JSON
// with a stage name and an optional start date (YYYY-MM-DD). A missing
// start date anchors the stage at the message time.
func ParseStagePayload(growspace string, body []byte, at time.Time) (engine.StageUpdate, error) {
	var p stagePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return engine.StageUpdate{}, fmt.Errorf("decoding stage payload: %w", err)
	}
	stage := profile.GrowthStage(strings.ToLower(strings.TrimSpace(p.Stage)))
	if !stage.Valid() {
		return engine.StageUpdate{}, fmt.Errorf("unknown growth stage %q", p.Stage)
	}
	start := at
	if p.StageStart != "" {
		parsed, err := time.Parse("2006-01-02", p.StageStart)
		if err != nil {
			return engine.StageUpdate{}, fmt.Errorf("parsing stage_start: %w", err)
		}
		start = parsed
	}
	return engine.StageUpdate{
		Growspace:  growspace,
		Stage:      stage,
		StageStart: start,
		At:         at,
	}, nil
}
