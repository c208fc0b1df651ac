package logic

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/device"
	"github.com/anicoll/fancontrol/internal/pkg/model"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

type pwmWrite struct {
	index uint8
	mode  device.PwmMode
}

type fakeDriver struct {
	name     string
	temps    map[uint8][]int64
	reads    map[uint8]int
	writes   []pwmWrite
	readErr  error
	writeErr error
}

func newFakeDriver(name string) *fakeDriver {
	return &fakeDriver{name: name, temps: map[uint8][]int64{}, reads: map[uint8]int{}}
}

func (f *fakeDriver) Name() string { return f.name }

func (f *fakeDriver) SetPwm(index uint8, mode device.PwmMode) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, pwmWrite{index: index, mode: mode})
	return nil
}

// ReadTemp returns the next queued value for index, repeating the last one.
func (f *fakeDriver) ReadTemp(index uint8) (units.Measure, error) {
	if f.readErr != nil {
		return units.Measure{}, f.readErr
	}
	values := f.temps[index]
	n := f.reads[index]
	f.reads[index]++
	if n >= len(values) {
		n = len(values) - 1
	}
	return units.FromCelsius(values[n]), nil
}

type fakeFanDriver struct {
	*fakeDriver
	rpm int64
}

func (f *fakeFanDriver) ReadFan(uint8) (units.Measure, error) { return units.FromRPM(f.rpm), nil }

type fakeDevices struct {
	declared []*symbols.Device
	online   map[*symbols.Device]device.Driver
	// onDriver runs before every Driver lookup, letting tests unplug mid tick.
	onDriver func(d *symbols.Device)
}

func (f *fakeDevices) Driver(d *symbols.Device) (device.Driver, bool) {
	if f.onDriver != nil {
		f.onDriver(d)
	}
	drv, ok := f.online[d]
	return drv, ok
}

func (f *fakeDevices) OnlineDevices() []*symbols.Device {
	var out []*symbols.Device
	for _, d := range f.declared {
		if _, ok := f.online[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeDevices) OfflineDevices() []*symbols.Device {
	var out []*symbols.Device
	for _, d := range f.declared {
		if _, ok := f.online[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}

type fixture struct {
	board  *symbols.Device
	usb    *symbols.Device
	cpu    *symbols.Sensor
	gpu    *symbols.Sensor
	fan    *symbols.Output
	pump   *symbols.Output
	driver *fakeDriver
	usbDrv *fakeDriver
	devs   *fakeDevices
	logs   *observer.ObservedLogs
}

func newFixture() *fixture {
	f := &fixture{
		board: &symbols.Device{Name: "board", Tag: "t_board", Driver: "fake"},
		usb:   &symbols.Device{Name: "usb", Tag: "t_usb", Driver: "fake", AllowHotplug: true},
	}
	f.cpu = &symbols.Sensor{Name: "cpu", Kind: ast.Thermistor, Index: 1, Device: f.board}
	f.gpu = &symbols.Sensor{Name: "gpu", Kind: ast.Thermistor, Index: 1, Device: f.usb}
	f.fan = &symbols.Output{Name: "fan", Kind: ast.PWM, Index: 2, Device: f.board}
	f.pump = &symbols.Output{Name: "pump", Kind: ast.PWM, Index: 1, Device: f.usb}
	f.driver = newFakeDriver("board")
	f.usbDrv = newFakeDriver("usb")
	f.devs = &fakeDevices{
		declared: []*symbols.Device{f.board, f.usb},
		online:   map[*symbols.Device]device.Driver{f.board: f.driver, f.usb: f.usbDrv},
	}
	return f
}

func (f *fixture) engine(rules ...*program.When) *logic {
	for i, r := range rules {
		r.Index = i
	}
	l := NewLogicSvc(&program.ThermalProgram{Symbols: symbols.NewTable(), Rules: rules}, f.devs)
	core, logs := observer.New(zapcore.DebugLevel)
	l.logger = zap.New(core)
	f.logs = logs
	return l
}

func bounded(sensor *symbols.Sensor, min, max int, actions ...program.Action) *program.When {
	return &program.When{Sensor: sensor, Behavior: &program.Bounded{Min: min, Max: max, Actions: actions}}
}

func above(sensor *symbols.Sensor, threshold int, actions ...program.FixedAction) *program.When {
	return &program.When{Sensor: sensor, Behavior: &program.Unbounded{Cond: program.Greater, Threshold: threshold, Actions: actions}}
}

func setRange(out *symbols.Output, lo, hi units.Percent) program.SetOutput {
	return program.SetOutput{Output: out, Value: program.Range{Min: lo, Max: hi}}
}

func setFixed(out *symbols.Output, p units.Percent) program.SetOutput {
	return program.SetOutput{Output: out, Value: program.Fixed{Percent: p}}
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		reading int64
		want    units.Percent
	}{
		{10, 0},
		{30, 50},
		{50, 100},
	}
	for _, tt := range tests {
		f := newFixture()
		f.driver.temps[1] = []int64{tt.reading}
		report := f.engine(bounded(f.cpu, 10, 50, setRange(f.fan, 0, 100))).Tick()

		require.Len(t, report.Outputs, 1)
		assert.Equal(t, tt.want, report.Outputs[0].Percent)
		assert.Equal(t, []pwmWrite{{index: 2, mode: device.ManualPercent{Percent: tt.want}}}, f.driver.writes)
	}
}

func TestTriggering(t *testing.T) {
	f := newFixture()
	f.driver.temps[1] = []int64{60}
	report := f.engine(
		bounded(f.cpu, 10, 50, setFixed(f.fan, 10)),
		above(f.cpu, 55, program.SetFixed{Output: f.fan, Percent: 90}),
		&program.When{Sensor: f.cpu, Behavior: &program.Unbounded{Cond: program.Less, Threshold: 20}},
	).Tick()

	assert.Equal(t, []string{"#2"}, report.Triggered)
	require.Len(t, report.Readings, 3)
	assert.False(t, report.Readings[0].Triggered)
	assert.True(t, report.Readings[1].Triggered)
	assert.Equal(t, []pwmWrite{{index: 2, mode: device.ManualPercent{Percent: 90}}}, f.driver.writes)
}

func TestPriorization(t *testing.T) {
	tests := []struct {
		name   string
		policy ast.Priorization
		first  units.Percent
		second units.Percent
		want   units.Percent
		rule   string
	}{
		{"min", ast.Min, 20, 80, 20, "#1"},
		{"max", ast.Max, 20, 80, 80, "#2"},
		{"latest small last", ast.Latest, 80, 20, 20, "#2"},
		{"latest big last", ast.Latest, 20, 80, 80, "#2"},
		{"min reversed", ast.Min, 80, 20, 20, "#2"},
		{"max reversed", ast.Max, 80, 20, 80, "#1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.fan.Priorization = tt.policy
			f.driver.temps[1] = []int64{40}

			report := f.engine(
				bounded(f.cpu, 0, 100, setFixed(f.fan, tt.first)),
				above(f.cpu, 30, program.SetFixed{Output: f.fan, Percent: tt.second}),
			).Tick()

			require.Len(t, report.Outputs, 1)
			assert.Equal(t, tt.want, report.Outputs[0].Percent)
			assert.Equal(t, tt.rule, report.Outputs[0].Rule)
			assert.Len(t, f.driver.writes, 1)
		})
	}
}

func TestMergeKeyedByIdentity(t *testing.T) {
	f := newFixture()
	twin := &symbols.Output{Name: "fan", Kind: ast.PWM, Index: 3, Device: f.board}
	f.driver.temps[1] = []int64{40}

	report := f.engine(
		bounded(f.cpu, 0, 100, setFixed(f.fan, 30)),
		bounded(f.cpu, 0, 100, setFixed(twin, 60)),
	).Tick()

	require.Len(t, report.Outputs, 2)
	assert.Equal(t, []pwmWrite{
		{index: 2, mode: device.ManualPercent{Percent: 30}},
		{index: 3, mode: device.ManualPercent{Percent: 60}},
	}, f.driver.writes)
}

func TestLaterActionInRuleOverwrites(t *testing.T) {
	f := newFixture()
	f.driver.temps[1] = []int64{40}

	f.engine(bounded(f.cpu, 0, 100, setFixed(f.fan, 30), setFixed(f.fan, 70))).Tick()
	assert.Equal(t, []pwmWrite{{index: 2, mode: device.ManualPercent{Percent: 70}}}, f.driver.writes)
}

func TestMemoizedReads(t *testing.T) {
	f := newFixture()
	// Every further read would report a different value.
	f.driver.temps[1] = []int64{30, 45, 50, 10}

	report := f.engine(bounded(f.cpu, 10, 50, program.Log{}, setRange(f.fan, 0, 100), program.Log{})).Tick()

	assert.Equal(t, 1, f.driver.reads[1])
	assert.Equal(t, units.FromCelsius(30), report.Readings[0].Value)
	assert.Equal(t, units.Percent(50), report.Outputs[0].Percent)

	logged := f.logs.FilterMessage("rule triggered").All()
	require.Len(t, logged, 1, "several log actions in one rule produce one line")
	assert.Equal(t, "30 °C", logged[0].ContextMap()["value"])
	assert.Equal(t, "#1", logged[0].ContextMap()["rule"])
}

func TestReadsNotSharedAcrossRules(t *testing.T) {
	f := newFixture()
	f.driver.temps[1] = []int64{30, 60}

	report := f.engine(
		above(f.cpu, 0),
		above(f.cpu, 0),
	).Tick()

	assert.Equal(t, 2, f.driver.reads[1])
	assert.Equal(t, units.FromCelsius(30), report.Readings[0].Value)
	assert.Equal(t, units.FromCelsius(60), report.Readings[1].Value)
}

func TestRuleNameInLog(t *testing.T) {
	f := newFixture()
	f.driver.temps[1] = []int64{40}
	tag := "warm"
	tagged := above(f.cpu, 0, program.Log{})
	tagged.Tag = &tag

	f.engine(above(f.cpu, 100, program.Log{}), tagged).Tick()

	logged := f.logs.FilterMessage("rule triggered").All()
	require.Len(t, logged, 1)
	assert.Equal(t, "warm", logged[0].ContextMap()["rule"])
}

func TestOfflineRulesSkipped(t *testing.T) {
	f := newFixture()
	delete(f.devs.online, f.usb)
	f.driver.temps[1] = []int64{40}

	report := f.engine(
		above(f.gpu, 0, program.Log{}, program.SetFixed{Output: f.pump, Percent: 100}),
		above(f.cpu, 0, program.SetFixed{Output: f.fan, Percent: 50}),
	).Tick()

	require.Len(t, report.Readings, 1)
	assert.Equal(t, "cpu", report.Readings[0].Sensor)
	assert.Equal(t, []string{"board"}, report.Online)
	assert.Equal(t, []string{"usb"}, report.Offline)
	assert.Zero(t, f.logs.FilterMessage("rule triggered").Len())
	assert.Equal(t, 0, f.usbDrv.reads[1])
}

func TestOutputDeviceGoneBeforeApply(t *testing.T) {
	f := newFixture()
	f.driver.temps[1] = []int64{40}
	// cpu lives on board, pump on usb: usb drops out after binding.
	rule := above(f.cpu, 0, program.SetFixed{Output: f.pump, Percent: 100}, program.SetFixed{Output: f.fan, Percent: 40})
	l := f.engine(rule)
	f.devs.onDriver = func(d *symbols.Device) {
		if d == f.usb {
			delete(f.devs.online, f.usb)
		}
	}

	report := l.Tick()

	require.Len(t, report.Outputs, 2)
	assert.Equal(t, model.Skipped, report.Outputs[0].Status)
	assert.Equal(t, model.Applied, report.Outputs[1].Status)
	assert.Empty(t, f.usbDrv.writes)
	assert.Len(t, f.driver.writes, 1)
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestReadFailure(t *testing.T) {
	f := newFixture()
	f.driver.readErr = errors.New("no such file or directory")

	report := f.engine(above(f.cpu, 0, program.SetFixed{Output: f.fan, Percent: 50})).Tick()

	require.Len(t, report.Readings, 1)
	assert.True(t, report.Readings[0].Failed())
	assert.Empty(t, report.Triggered)
	assert.Empty(t, f.driver.writes)
	assert.Equal(t, 1, f.logs.FilterMessage("failed to read sensor").Len())
}

func TestWriteFailureDoesNotStopTick(t *testing.T) {
	f := newFixture()
	f.driver.temps[1] = []int64{40}
	f.usbDrv.temps[1] = []int64{40}
	f.driver.writeErr = errors.New("permission denied")

	report := f.engine(
		above(f.cpu, 0, program.SetFixed{Output: f.fan, Percent: 50}),
		above(f.gpu, 0, program.SetFixed{Output: f.pump, Percent: 60}),
	).Tick()

	require.Len(t, report.Outputs, 2)
	assert.Equal(t, model.Failed, report.Outputs[0].Status)
	assert.Equal(t, "permission denied", report.Outputs[0].Error)
	assert.Equal(t, model.Applied, report.Outputs[1].Status)
	assert.Len(t, f.usbDrv.writes, 1)
}

func TestFanSensor(t *testing.T) {
	f := newFixture()
	rpm := &symbols.Sensor{Name: "rpm", Kind: ast.Fan, Index: 2, Device: f.board}
	rule := &program.When{Sensor: rpm, Behavior: &program.Unbounded{
		Cond:      program.Less,
		Threshold: 500,
		Actions:   []program.FixedAction{program.SetFixed{Output: f.fan, Percent: 100}},
	}}

	report := f.engine(rule).Tick()
	require.Len(t, report.Readings, 1)
	assert.True(t, report.Readings[0].Failed(), "driver without fan inputs")

	fanDrv := &fakeFanDriver{fakeDriver: f.driver, rpm: 300}
	f.devs.online[f.board] = fanDrv
	report = f.engine(rule).Tick()
	require.Len(t, report.Outputs, 1)
	assert.Equal(t, units.FromRPM(300), report.Readings[0].Value)
	assert.Equal(t, model.Applied, report.Outputs[0].Status)
}

func TestTickDuration(t *testing.T) {
	f := newFixture()
	l := f.engine()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	l.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 15 * time.Millisecond)
	}

	report := l.Tick()
	assert.Equal(t, start, report.Time)
	assert.Equal(t, 15*time.Millisecond, report.Duration)
}
