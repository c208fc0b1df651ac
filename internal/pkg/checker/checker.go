// Package checker validates a parsed rule file and lowers it into a program.ThermalProgram.
package checker

import (
	"errors"
	"fmt"
	"math"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

type checker struct {
	table *symbols.Table
	rules []*program.When
}

// Check walks the statements in order. The first failure aborts the pass and
// no program is returned.
func Check(in *ast.Program) (*program.ThermalProgram, error) {
	c := &checker{table: symbols.NewTable()}
	for i, stmt := range in.Statements {
		if err := c.statement(stmt); err != nil {
			return nil, &Error{Kind: classify(err), Statement: i, Err: err}
		}
	}
	return &program.ThermalProgram{Symbols: c.table, Rules: c.rules}, nil
}

func classify(err error) ErrorKind {
	var (
		outOfBounds *NumberOutOfBoundsError
		percent     *InvalidPercentError
		condRange   *InvalidConditionRangeError
	)
	switch {
	case errors.Is(err, symbols.ErrSymbol):
		return SymbolTable
	case errors.Is(err, ErrBetweenActionInUnboundedRule),
		errors.As(err, &outOfBounds),
		errors.As(err, &percent),
		errors.As(err, &condRange):
		return Semantic
	}
	return Other
}

func (c *checker) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case ast.DefineDevice:
		return c.table.Insert(&symbols.Device{
			Name:         s.Name,
			Tag:          s.Tag,
			Driver:       s.Driver,
			AllowHotplug: s.AllowHotplug,
		})
	case ast.DefineSensor:
		return c.sensor(s)
	case ast.DefineOutput:
		return c.output(s)
	case ast.When:
		return c.when(s)
	}
	return fmt.Errorf("unsupported statement %T", stmt)
}

func (c *checker) sensor(s ast.DefineSensor) error {
	device, err := symbols.Require[*symbols.Device](c.table, s.Device)
	if err != nil {
		return err
	}
	index, err := channelIndex("sensor index", s.Index)
	if err != nil {
		return err
	}
	return c.table.Insert(&symbols.Sensor{Name: s.Name, Kind: s.Kind, Index: index, Device: device})
}

func (c *checker) output(s ast.DefineOutput) error {
	device, err := symbols.Require[*symbols.Device](c.table, s.Device)
	if err != nil {
		return err
	}
	index, err := channelIndex("output index", s.Index)
	if err != nil {
		return err
	}
	return c.table.Insert(&symbols.Output{
		Name:         s.Name,
		Kind:         s.Kind,
		Index:        index,
		Device:       device,
		Priorization: s.Priorization,
	})
}

func channelIndex(what string, value int) (uint8, error) {
	if value < 0 || value > math.MaxUint8 {
		return 0, &NumberOutOfBoundsError{What: what, Boundary: [2]int{0, math.MaxUint8}, Got: value}
	}
	return uint8(value), nil
}

func (c *checker) when(s ast.When) error {
	sensor, err := symbols.Require[*symbols.Sensor](c.table, s.Sensor)
	if err != nil {
		return err
	}

	actions := make([]program.Action, 0, len(s.Actions))
	for _, a := range s.Actions {
		action, err := c.action(a)
		if err != nil {
			return err
		}
		actions = append(actions, action)
	}

	var behavior program.Behavior
	switch cond := s.Condition.(type) {
	case ast.Between:
		if behavior, err = bounded(cond, actions); err != nil {
			return err
		}
	case ast.GreaterThan:
		if behavior, err = unbounded(program.Greater, cond.Value, actions); err != nil {
			return err
		}
	case ast.LessThan:
		if behavior, err = unbounded(program.Less, cond.Value, actions); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported condition %T", s.Condition)
	}

	c.rules = append(c.rules, &program.When{
		Index:    len(c.rules),
		Tag:      s.Tag,
		Sensor:   sensor,
		Behavior: behavior,
	})
	return nil
}

func (c *checker) action(a ast.Action) (program.Action, error) {
	switch act := a.(type) {
	case ast.Log:
		return program.Log{}, nil
	case ast.OutputSet:
		output, err := symbols.Require[*symbols.Output](c.table, act.Target)
		if err != nil {
			return nil, err
		}
		value, err := outputValue(act.Value)
		if err != nil {
			return nil, err
		}
		return program.SetOutput{Output: output, Value: value}, nil
	}
	return nil, fmt.Errorf("unsupported action %T", a)
}

func outputValue(v ast.OutputValue) (program.Value, error) {
	switch val := v.(type) {
	case ast.Fixed:
		p, err := percent(val.Value)
		if err != nil {
			return nil, err
		}
		return program.Fixed{Percent: p}, nil
	case ast.Range:
		lo, err := percent(val.Min)
		if err != nil {
			return nil, err
		}
		hi, err := percent(val.Max)
		if err != nil {
			return nil, err
		}
		return program.Range{Min: lo, Max: hi}, nil
	}
	return nil, fmt.Errorf("unsupported output value %T", v)
}

func percent(value int) (units.Percent, error) {
	p, err := units.NewPercent(value)
	if err != nil {
		return 0, &InvalidPercentError{Got: value}
	}
	return p, nil
}

func bounded(cond ast.Between, actions []program.Action) (*program.Bounded, error) {
	if cond.Min > cond.Max {
		return nil, &InvalidConditionRangeError{Min: cond.Min, Max: cond.Max}
	}
	if cond.Min == cond.Max {
		for _, a := range actions {
			if set, ok := a.(program.SetOutput); ok {
				if _, isRange := set.Value.(program.Range); isRange {
					return nil, &InvalidConditionRangeError{Min: cond.Min, Max: cond.Max}
				}
			}
		}
	}
	return &program.Bounded{Min: cond.Min, Max: cond.Max, Actions: actions}, nil
}

func unbounded(cmp program.Comparison, threshold int, actions []program.Action) (*program.Unbounded, error) {
	fixed := make([]program.FixedAction, 0, len(actions))
	for _, a := range actions {
		switch act := a.(type) {
		case program.Log:
			fixed = append(fixed, act)
		case program.SetOutput:
			v, ok := act.Value.(program.Fixed)
			if !ok {
				return nil, fmt.Errorf("%w: output %q", ErrBetweenActionInUnboundedRule, act.Output.Name)
			}
			fixed = append(fixed, program.SetFixed{Output: act.Output, Percent: v.Percent})
		}
	}
	return &program.Unbounded{Cond: cmp, Threshold: threshold, Actions: fixed}, nil
}
