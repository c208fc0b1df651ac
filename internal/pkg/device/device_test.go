package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/fancontrol/internal/pkg/udev"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

func fakeHwmon(t *testing.T) udev.Device {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"name":        "nct6798\n",
		"temp1_input": "42500\n",
		"temp2_input": "-1250\n",
		"temp3_input": "garbage\n",
		"fan2_input":  "1130\n",
		"pwm2":        "0\n",
		"pwm2_enable": "5\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return udev.Device{SysPath: dir, DevPath: "/devices/platform/nct6775.656/hwmon/hwmon2"}
}

func readAttr(t *testing.T, dev udev.Device, attr string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dev.SysPath, attr))
	require.NoError(t, err)
	return string(raw)
}

func TestAbsolute(t *testing.T) {
	tests := []struct {
		name string
		mode PwmMode
		want uint8
		ok   bool
	}{
		{"zero percent", ManualPercent{Percent: 0}, 0, true},
		{"half", ManualPercent{Percent: 50}, 127, true},
		{"full percent", ManualPercent{Percent: 100}, 255, true},
		{"absolute", ManualAbsolute{Value: 200}, 200, true},
		{"auto", Auto{}, 0, false},
		{"full", Full{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Absolute(tt.mode)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHwmonRead(t *testing.T) {
	dev := fakeHwmon(t)
	drv, err := NewHwmon("board", dev, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, "board", drv.Name())

	temp, err := drv.ReadTemp(1)
	require.NoError(t, err)
	assert.Equal(t, units.MilliCelsius(42500), temp)

	temp, err = drv.ReadTemp(2)
	require.NoError(t, err)
	assert.Equal(t, int64(-1250), temp.Milli())

	_, err = drv.ReadTemp(3)
	assert.Error(t, err)

	_, err = drv.ReadTemp(9)
	assert.ErrorIs(t, err, os.ErrNotExist)

	fan, ok := drv.(FanReader)
	require.True(t, ok)
	rpm, err := fan.ReadFan(2)
	require.NoError(t, err)
	assert.Equal(t, units.FromRPM(1130), rpm)
}

func TestHwmonSetPwm(t *testing.T) {
	dev := fakeHwmon(t)
	drv, err := NewHwmon("board", dev, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	require.NoError(t, drv.SetPwm(2, ManualPercent{Percent: 100}))
	assert.Equal(t, "255\n", readAttr(t, dev, "pwm2"))
	assert.Equal(t, "5\n", readAttr(t, dev, "pwm2_enable"), "generic hwmon never touches enable")

	err = drv.SetPwm(2, Auto{})
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestNct6775SetPwm(t *testing.T) {
	tests := []struct {
		name       string
		mode       PwmMode
		wantEnable string
		wantPwm    string
	}{
		{"auto", Auto{}, "5\n", "0\n"},
		{"full", Full{}, "0\n", "0\n"},
		{"manual percent", ManualPercent{Percent: 50}, "1\n", "127\n"},
		{"manual absolute", ManualAbsolute{Value: 42}, "5\n", "42\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := fakeHwmon(t)
			drv, err := NewNct6775("board", dev, Options{Logger: zaptest.NewLogger(t)})
			require.NoError(t, err)

			require.NoError(t, drv.SetPwm(2, tt.mode))
			assert.Equal(t, tt.wantEnable, readAttr(t, dev, "pwm2_enable"))
			assert.Equal(t, tt.wantPwm, readAttr(t, dev, "pwm2"))
		})
	}
}

func TestDryRun(t *testing.T) {
	dev := fakeHwmon(t)
	drv, err := NewNct6775("board", dev, Options{DryRun: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	require.NoError(t, drv.SetPwm(2, ManualPercent{Percent: 80}))
	assert.Equal(t, "0\n", readAttr(t, dev, "pwm2"))
	assert.Equal(t, "5\n", readAttr(t, dev, "pwm2_enable"))

	temp, err := drv.ReadTemp(1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), temp.Int())
}

func TestNewHwmonMissingDevice(t *testing.T) {
	_, err := NewHwmon("board", udev.Device{SysPath: filepath.Join(t.TempDir(), "gone")}, Options{})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{HwmonDriver, Nct6775Driver}, r.IDs())

	_, err := r.Lookup("it87")
	assert.ErrorIs(t, err, ErrUnknownDriver)

	err = r.Register(HwmonDriver, NewHwmon)
	assert.True(t, errors.Is(err, errAlreadyRegistered))

	drv, err := r.Build(Nct6775Driver, "board", fakeHwmon(t), Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.IsType(t, &Nct6775{}, drv)

	_, err = r.Build("it87", "board", fakeHwmon(t), Options{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
