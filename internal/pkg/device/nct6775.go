package device

import (
	"github.com/anicoll/fancontrol/internal/pkg/udev"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

const Nct6775Driver = "nct6775"

// pwm<N>_enable codes understood by the nct6775 kernel driver.
const (
	nct6775ModeFull   = "0"
	nct6775ModeManual = "1"
	nct6775ModeAuto   = "5"
)

// Nct6775 translates pwm modes into nct6775 enable codes and delegates the
// attribute I/O to a Hwmon.
type Nct6775 struct {
	hwmon *Hwmon
}

func NewNct6775(name string, dev udev.Device, opts Options) (Driver, error) {
	h, err := newHwmon(name, dev, opts)
	if err != nil {
		return nil, err
	}
	return &Nct6775{hwmon: h}, nil
}

func (n *Nct6775) Name() string { return n.hwmon.Name() }

func (n *Nct6775) SetPwm(index uint8, mode PwmMode) error {
	switch mode.(type) {
	case Auto:
		return n.hwmon.WritePwmEnable(index, nct6775ModeAuto)
	case Full:
		return n.hwmon.WritePwmEnable(index, nct6775ModeFull)
	case ManualPercent:
		if err := n.hwmon.WritePwmEnable(index, nct6775ModeManual); err != nil {
			return err
		}
	}
	return n.hwmon.SetPwm(index, mode)
}

func (n *Nct6775) ReadTemp(index uint8) (units.Measure, error) {
	return n.hwmon.ReadTemp(index)
}

func (n *Nct6775) ReadFan(index uint8) (units.Measure, error) {
	return n.hwmon.ReadFan(index)
}
