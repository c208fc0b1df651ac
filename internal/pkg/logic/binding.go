package logic

import (
	"errors"
	"fmt"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/device"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

var errNoFanInputs = errors.New("driver has no fan inputs")

// onlineSensor reads its channel at most once. It lives for a single tick.
type onlineSensor struct {
	symbol *symbols.Sensor
	driver device.Driver

	done  bool
	value units.Measure
	err   error
}

func (s *onlineSensor) read() (units.Measure, error) {
	if !s.done {
		s.value, s.err = s.readDriver()
		s.done = true
	}
	return s.value, s.err
}

func (s *onlineSensor) readDriver() (units.Measure, error) {
	if s.symbol.Kind == ast.Fan {
		fans, ok := s.driver.(device.FanReader)
		if !ok {
			return units.Measure{}, fmt.Errorf("%w: %s", errNoFanInputs, s.driver.Name())
		}
		return fans.ReadFan(s.symbol.Index)
	}
	return s.driver.ReadTemp(s.symbol.Index)
}

type binding struct {
	rule   *program.When
	sensor *onlineSensor
}

// triggered must only be called after a successful read.
func (b *binding) triggered() bool {
	value, _ := b.sensor.read()
	return b.rule.Behavior.Triggered(value)
}

type computedRule struct {
	binding   *binding
	shouldLog bool
	// outputs keeps first-request order; values holds the last request per output.
	outputs []*symbols.Output
	values  map[*symbols.Output]units.Percent
}

func (c *computedRule) set(out *symbols.Output, p units.Percent) {
	if _, ok := c.values[out]; !ok {
		c.outputs = append(c.outputs, out)
	}
	c.values[out] = p
}

func (b *binding) compute() *computedRule {
	c := &computedRule{binding: b, values: make(map[*symbols.Output]units.Percent)}
	value, _ := b.sensor.read()

	switch behavior := b.rule.Behavior.(type) {
	case *program.Bounded:
		for _, a := range behavior.Actions {
			switch act := a.(type) {
			case program.Log:
				c.shouldLog = true
			case program.SetOutput:
				switch v := act.Value.(type) {
				case program.Fixed:
					c.set(act.Output, v.Percent)
				case program.Range:
					c.set(act.Output, behavior.Interpolate(v, value))
				}
			}
		}
	case *program.Unbounded:
		for _, a := range behavior.Actions {
			switch act := a.(type) {
			case program.Log:
				c.shouldLog = true
			case program.SetFixed:
				c.set(act.Output, act.Percent)
			}
		}
	}
	return c
}
