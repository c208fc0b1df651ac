// Package ast holds the raw statement tree produced by a rule-file parser,
// before any name resolution or validation.
package ast

type Program struct {
	Statements []Statement
}

// Statement is one of DefineDevice, DefineSensor, DefineOutput or When.
type Statement interface {
	statement()
}

type DefineDevice struct {
	Name         string
	Tag          string // hardware tag matched against the event source
	Driver       string
	AllowHotplug bool
}

type DefineSensor struct {
	Name   string
	Device string
	Kind   SensorKind
	Index  int
}

type DefineOutput struct {
	Name         string
	Device       string
	Kind         OutputKind
	Index        int
	Priorization Priorization
}

type When struct {
	Sensor    string
	Tag       *string
	Condition Condition
	Actions   []Action
}

func (DefineDevice) statement() {}
func (DefineSensor) statement() {}
func (DefineOutput) statement() {}
func (When) statement()         {}

// Condition is one of Between, GreaterThan or LessThan.
type Condition interface {
	condition()
}

type Between struct {
	Min, Max int
}

type GreaterThan struct {
	Value int
}

type LessThan struct {
	Value int
}

func (Between) condition()     {}
func (GreaterThan) condition() {}
func (LessThan) condition()    {}

// Action is either Log or OutputSet.
type Action interface {
	action()
}

type Log struct{}

type OutputSet struct {
	Target string
	Value  OutputValue
}

func (Log) action()       {}
func (OutputSet) action() {}

// OutputValue is either Fixed or Range.
type OutputValue interface {
	outputValue()
}

type Fixed struct {
	Value int
}

type Range struct {
	Min, Max int
}

func (Fixed) outputValue() {}
func (Range) outputValue() {}
