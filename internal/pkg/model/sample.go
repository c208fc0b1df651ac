package model

import "time"

// Sample is one persisted value of a sensor or output.
type Sample struct {
	ID        int64      `json:"id"`
	TimeStamp time.Time  `json:"timestamp"`
	Kind      EntityKind `json:"kind"`
	Device    string     `json:"device"`
	Name      string     `json:"name"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
}

type Samples []Sample

// SamplesFromReport flattens the successful readings and applied outputs of r.
func SamplesFromReport(r *TickReport) Samples {
	var out Samples
	for sensor, reading := range r.SensorValues() {
		out = append(out, Sample{
			TimeStamp: r.Time,
			Kind:      EntitySensor,
			Device:    reading.Device,
			Name:      sensor,
			Value:     reading.Value.Float(),
			Unit:      reading.Value.Unit().String(),
		})
	}
	for _, o := range r.AppliedOutputs() {
		out = append(out, Sample{
			TimeStamp: r.Time,
			Kind:      EntityOutput,
			Device:    o.Device,
			Name:      o.Output,
			Value:     float64(o.Percent),
			Unit:      "%",
		})
	}
	return out
}
