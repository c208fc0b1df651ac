package model

import (
	"time"

	"github.com/samber/lo"

	"github.com/anicoll/fancontrol/internal/pkg/units"
)

// TickReport describes one pass of the evaluation engine.
type TickReport struct {
	Time      time.Time     `json:"time"`
	Duration  time.Duration `json:"duration"`
	Online    []string      `json:"online"`
	Offline   []string      `json:"offline"`
	Readings  []Reading     `json:"readings"`
	Triggered []string      `json:"triggered"`
	Outputs   []OutputValue `json:"outputs"`
}

// Reading is the memoized sensor value a rule was evaluated against.
type Reading struct {
	Rule      string        `json:"rule"`
	Sensor    string        `json:"sensor"`
	Device    string        `json:"device"`
	Value     units.Measure `json:"value"`
	Triggered bool          `json:"triggered"`
	Error     string        `json:"error,omitempty"`
}

func (r Reading) Failed() bool { return r.Error != "" }

// OutputValue is the merged request for one output and what became of it.
type OutputValue struct {
	Output  string        `json:"output"`
	Device  string        `json:"device"`
	Rule    string        `json:"rule"`
	Percent units.Percent `json:"percent"`
	Status  ApplyStatus   `json:"status"`
	Error   string        `json:"error,omitempty"`
}

type ApplyStatus string

const (
	Applied ApplyStatus = "applied"
	// Skipped outputs belong to a device that went offline mid tick.
	Skipped ApplyStatus = "skipped"
	Failed  ApplyStatus = "failed"
)

// SensorValues returns the first successful reading of each sensor.
func (r *TickReport) SensorValues() map[string]Reading {
	out := make(map[string]Reading)
	for _, reading := range r.Readings {
		if reading.Failed() {
			continue
		}
		if _, ok := out[reading.Sensor]; !ok {
			out[reading.Sensor] = reading
		}
	}
	return out
}

func (r *TickReport) AppliedOutputs() []OutputValue {
	return lo.Filter(r.Outputs, func(o OutputValue, _ int) bool { return o.Status == Applied })
}
