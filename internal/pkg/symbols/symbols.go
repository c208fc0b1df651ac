// Package symbols holds the declared devices, sensors and outputs of a rule file.
package symbols

import (
	"fmt"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
)

type Kind int

const (
	KindDevice Kind = iota
	KindSensor
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindSensor:
		return "sensor"
	case KindOutput:
		return "output"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Symbol is one of *Device, *Sensor or *Output. Symbols are compared by
// pointer: two symbols are the same entity only if they are the same value.
type Symbol interface {
	SymbolName() string
	SymbolKind() Kind
}

type Device struct {
	Name         string
	Tag          string
	Driver       string
	AllowHotplug bool
}

// Mandatory devices must stay online for the daemon to keep running.
func (d *Device) Mandatory() bool { return !d.AllowHotplug }

func (d *Device) SymbolName() string { return d.Name }
func (*Device) SymbolKind() Kind     { return KindDevice }

type Sensor struct {
	Name   string
	Kind   ast.SensorKind
	Index  uint8
	Device *Device
}

func (s *Sensor) SymbolName() string { return s.Name }
func (*Sensor) SymbolKind() Kind     { return KindSensor }

type Output struct {
	Name         string
	Kind         ast.OutputKind
	Index        uint8
	Device       *Device
	Priorization ast.Priorization
}

func (o *Output) SymbolName() string { return o.Name }
func (*Output) SymbolKind() Kind     { return KindOutput }
