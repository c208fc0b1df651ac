// Package device defines what the engine needs from a hardware driver and
// ships the sysfs-backed drivers.
package device

import (
	"errors"
	"fmt"

	"github.com/anicoll/fancontrol/internal/pkg/units"
)

var ErrUnsupportedMode = errors.New("unsupported pwm mode")

type Driver interface {
	Name() string
	SetPwm(index uint8, mode PwmMode) error
	ReadTemp(index uint8) (units.Measure, error)
}

// FanReader is implemented by drivers that expose tachometer inputs.
type FanReader interface {
	ReadFan(index uint8) (units.Measure, error)
}

// PwmMode is one of Auto, Full, ManualPercent or ManualAbsolute.
type PwmMode interface {
	fmt.Stringer
	pwmMode()
}

// Auto hands control back to the chip.
type Auto struct{}

// Full drives the output at its maximum.
type Full struct{}

type ManualPercent struct {
	Percent units.Percent
}

type ManualAbsolute struct {
	Value uint8
}

func (Auto) pwmMode()           {}
func (Full) pwmMode()           {}
func (ManualPercent) pwmMode()  {}
func (ManualAbsolute) pwmMode() {}

func (Auto) String() string             { return "auto" }
func (Full) String() string             { return "full" }
func (m ManualPercent) String() string  { return fmt.Sprintf("manual %s", m.Percent) }
func (m ManualAbsolute) String() string { return fmt.Sprintf("manual %d/255", m.Value) }

// Absolute converts a manual mode to the 0..255 range used by pwm attributes.
func Absolute(mode PwmMode) (uint8, bool) {
	switch m := mode.(type) {
	case ManualPercent:
		return uint8(m.Percent.PointAt(0, 255)), true
	case ManualAbsolute:
		return m.Value, true
	}
	return 0, false
}
