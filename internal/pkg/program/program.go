// Package program is the checked, immutable form of a rule file.
package program

import (
	"fmt"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

type ThermalProgram struct {
	Symbols *symbols.Table
	Rules   []*When
}

// Devices returns every declared device, sorted by name.
func (p *ThermalProgram) Devices() []*symbols.Device {
	return symbols.AllOfType[*symbols.Device](p.Symbols)
}

type When struct {
	// Index is the zero-based declaration order among rules.
	Index    int
	Tag      *string
	Sensor   *symbols.Sensor
	Behavior Behavior
}

// Name is the rule's tag, or "#N" with N the 1-based ordinal when untagged.
func (w *When) Name() string {
	if w.Tag != nil {
		return *w.Tag
	}
	return fmt.Sprintf("#%d", w.Index+1)
}

// Device owning the rule's sensor.
func (w *When) Device() *symbols.Device {
	return w.Sensor.Device
}

// Unit the rule's thresholds are expressed in.
func (w *When) Unit() units.Unit {
	if w.Sensor.Kind == ast.Fan {
		return units.RPM
	}
	return units.Celsius
}

type Behavior interface {
	// Triggered reports whether reading satisfies the rule's condition.
	Triggered(reading units.Measure) bool
	behavior()
}

// Bounded fires while the reading is within [Min, Max], both inclusive.
type Bounded struct {
	Min     int
	Max     int
	Actions []Action
}

func (b *Bounded) Triggered(reading units.Measure) bool {
	return reading.Within(units.Whole(b.Min, reading.Unit()), units.Whole(b.Max, reading.Unit()))
}

// Interpolate maps reading from [Min, Max] onto r, truncating toward the
// start of the range.
func (b *Bounded) Interpolate(r Range, reading units.Measure) units.Percent {
	lo := units.Whole(b.Min, reading.Unit()).Milli()
	hi := units.Whole(b.Max, reading.Unit()).Milli()
	if hi == lo {
		return r.Min
	}
	span := int64(r.Max) - int64(r.Min)
	return units.Percent(int64(r.Min) + (reading.Milli()-lo)*span/(hi-lo))
}

type Comparison int

const (
	Greater Comparison = iota
	Less
)

func (c Comparison) String() string {
	if c == Less {
		return "below"
	}
	return "above"
}

// Unbounded fires while the reading is strictly past Threshold.
type Unbounded struct {
	Cond      Comparison
	Threshold int
	Actions   []FixedAction
}

func (u *Unbounded) Triggered(reading units.Measure) bool {
	threshold := units.Whole(u.Threshold, reading.Unit())
	if u.Cond == Less {
		return reading.Less(threshold)
	}
	return reading.Greater(threshold)
}

func (*Bounded) behavior()   {}
func (*Unbounded) behavior() {}

// Action is allowed in a bounded rule.
type Action interface {
	action()
}

// FixedAction is allowed in an unbounded rule.
type FixedAction interface {
	fixedAction()
}

type Log struct{}

// SetOutput requests a value for Output. Value is Fixed or Range.
type SetOutput struct {
	Output *symbols.Output
	Value  Value
}

// SetFixed is the only output action an unbounded rule may carry.
type SetFixed struct {
	Output  *symbols.Output
	Percent units.Percent
}

func (Log) action()       {}
func (Log) fixedAction()  {}
func (SetOutput) action() {}

func (SetFixed) fixedAction() {}

type Value interface {
	value()
}

type Fixed struct {
	Percent units.Percent
}

// Range is interpolated across the enclosing rule's condition.
type Range struct {
	Min units.Percent
	Max units.Percent
}

func (Fixed) value() {}
func (Range) value() {}
