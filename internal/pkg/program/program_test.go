package program

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

func TestWhenName(t *testing.T) {
	tag := "warm"
	assert.Equal(t, "warm", (&When{Index: 3, Tag: &tag}).Name())
	assert.Equal(t, "#1", (&When{Index: 0}).Name())
	assert.Equal(t, "#4", (&When{Index: 3}).Name())
}

func TestWhenUnit(t *testing.T) {
	board := &symbols.Device{Name: "board"}
	temp := &When{Sensor: &symbols.Sensor{Name: "cpu", Kind: ast.Thermistor, Device: board}}
	fan := &When{Sensor: &symbols.Sensor{Name: "rpm", Kind: ast.Fan, Device: board}}
	assert.Equal(t, units.Celsius, temp.Unit())
	assert.Equal(t, units.RPM, fan.Unit())
	assert.Same(t, board, fan.Device())
}

func TestTriggered(t *testing.T) {
	bounded := &Bounded{Min: 10, Max: 50}
	above := &Unbounded{Cond: Greater, Threshold: 70}
	below := &Unbounded{Cond: Less, Threshold: 30}

	tests := []struct {
		name     string
		behavior Behavior
		reading  units.Measure
		want     bool
	}{
		{"bounded at min", bounded, units.FromCelsius(10), true},
		{"bounded at max", bounded, units.FromCelsius(50), true},
		{"bounded just below", bounded, units.MilliCelsius(9999), false},
		{"bounded just above", bounded, units.MilliCelsius(50001), false},
		{"above at threshold", above, units.FromCelsius(70), false},
		{"above past threshold", above, units.MilliCelsius(70001), true},
		{"below at threshold", below, units.FromCelsius(30), false},
		{"below past threshold", below, units.MilliCelsius(29999), true},
		{"rpm thresholds", &Unbounded{Cond: Less, Threshold: 500}, units.FromRPM(400), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.behavior.Triggered(tt.reading))
		})
	}
}

func TestInterpolate(t *testing.T) {
	bounded := &Bounded{Min: 10, Max: 50}
	full := Range{Min: 0, Max: 100}

	assert.Equal(t, units.Percent(0), bounded.Interpolate(full, units.FromCelsius(10)))
	assert.Equal(t, units.Percent(50), bounded.Interpolate(full, units.FromCelsius(30)))
	assert.Equal(t, units.Percent(100), bounded.Interpolate(full, units.FromCelsius(50)))

	// 20 + 0.3249 * 80 = 45.99
	assert.Equal(t, units.Percent(45), bounded.Interpolate(Range{Min: 20, Max: 100}, units.MilliCelsius(22996)))

	inverse := Range{Min: 100, Max: 0}
	assert.Equal(t, units.Percent(100), bounded.Interpolate(inverse, units.FromCelsius(10)))
	assert.Equal(t, units.Percent(25), bounded.Interpolate(inverse, units.FromCelsius(40)))
}
