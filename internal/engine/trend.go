package engine

import (
	"time"

	"github.com/tentwatch/growmond/internal/engine/bayes"
)

// Trend analysis defaults. The change threshold is per variable; the
// fast gradient is units per minute.
const (
	defaultTrendWindow = 30 * time.Minute
	trendFastGradient  = 0.1

	trendTempThreshold     = 1.0
	trendHumidityThreshold = 1.0
	trendVPDThreshold      = 0.2
)

type trendSample struct {
	value float64
	at    time.Time
}

// trendTracker classifies the recent movement of one variable from its
// reading history. The change across the rolling window is compared
// against the threshold; history must cover at least half the window
// before a trend is usable.
type trendTracker struct {
	window    time.Duration
	threshold float64
	samples   []trendSample
}

func newTrendTracker(window time.Duration, threshold float64) *trendTracker {
	if window <= 0 {
		window = defaultTrendWindow
	}
	return &trendTracker{window: window, threshold: threshold}
}

// Observe records a reading and returns the current trend.
func (t *trendTracker) Observe(value float64, now time.Time) bayes.Trend {
	cut := now.Add(-t.window)
	kept := t.samples[:0]
	for _, s := range t.samples {
		if !s.at.Before(cut) {
			kept = append(kept, s)
		}
	}
	t.samples = append(kept, trendSample{value: value, at: now})

	oldest := t.samples[0]
	elapsed := now.Sub(oldest.at)
	if elapsed < t.window/2 {
		return bayes.Trend{}
	}

	change := value - oldest.value
	minutes := elapsed.Minutes()
	out := bayes.Trend{Direction: bayes.TrendStable, OK: true}
	switch {
	case change > t.threshold:
		out.Direction = bayes.TrendRising
		out.Fast = change/minutes > trendFastGradient
	case change < -t.threshold:
		out.Direction = bayes.TrendFalling
		out.Fast = -change/minutes > trendFastGradient
	}
	return out
}

// Reset drops the history, e.g. when the sensor goes unavailable.
func (t *trendTracker) Reset() {
	t.samples = t.samples[:0]
}

func observeTrend(t *trendTracker, r bayes.Reading, now time.Time) bayes.Trend {
	if !r.OK {
		t.Reset()
		return bayes.Trend{}
	}
	return t.Observe(r.Value, now)
}
