package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/udev"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

const HwmonDriver = "hwmon"

// Hwmon drives a generic hwmon sysfs directory. It only understands manual
// duty cycles; chip specific enable codes belong to wrapping drivers.
type Hwmon struct {
	name    string
	sysPath string
	dryRun  bool
	logger  *zap.Logger
}

func NewHwmon(name string, dev udev.Device, opts Options) (Driver, error) {
	return newHwmon(name, dev, opts)
}

func newHwmon(name string, dev udev.Device, opts Options) (*Hwmon, error) {
	info, err := os.Stat(dev.SysPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dev.SysPath)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &Hwmon{
		name:    name,
		sysPath: dev.SysPath,
		dryRun:  opts.DryRun,
		logger:  logger.With(zap.String("device", name), zap.String("driver", HwmonDriver)),
	}, nil
}

func (h *Hwmon) Name() string { return h.name }

func (h *Hwmon) SetPwm(index uint8, mode PwmMode) error {
	value, ok := Absolute(mode)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedMode, mode, h.name)
	}
	return h.WriteRawPwm(index, value)
}

func (h *Hwmon) ReadTemp(index uint8) (units.Measure, error) {
	v, err := h.readInt(fmt.Sprintf("temp%d_input", index))
	if err != nil {
		return units.Measure{}, err
	}
	return units.MilliCelsius(v), nil
}

func (h *Hwmon) ReadFan(index uint8) (units.Measure, error) {
	v, err := h.readInt(fmt.Sprintf("fan%d_input", index))
	if err != nil {
		return units.Measure{}, err
	}
	return units.FromRPM(v), nil
}

func (h *Hwmon) WriteRawPwm(index, value uint8) error {
	return h.write(fmt.Sprintf("pwm%d", index), strconv.Itoa(int(value)))
}

func (h *Hwmon) WritePwmEnable(index uint8, enable string) error {
	return h.write(fmt.Sprintf("pwm%d_enable", index), enable)
}

func (h *Hwmon) write(attr, value string) error {
	h.logger.Debug("write attribute", zap.String("attr", attr), zap.String("value", value), zap.Bool("dry_run", h.dryRun))
	if h.dryRun {
		return nil
	}
	return os.WriteFile(filepath.Join(h.sysPath, attr), []byte(value+"\n"), 0o644)
}

func (h *Hwmon) readInt(attr string) (int64, error) {
	raw, err := os.ReadFile(filepath.Join(h.sysPath, attr))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", attr, err)
	}
	return v, nil
}
