package logic

import (
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/device"
	"github.com/anicoll/fancontrol/internal/pkg/model"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
)

// devices is the read-only view of hot-plug state the engine runs against.
type devices interface {
	Driver(d *symbols.Device) (device.Driver, bool)
	OnlineDevices() []*symbols.Device
	OfflineDevices() []*symbols.Device
}

type logic struct {
	program *program.ThermalProgram
	devices devices
	logger  *zap.Logger
	now     func() time.Time
}

func NewLogicSvc(prog *program.ThermalProgram, devs devices) *logic {
	return &logic{
		program: prog,
		devices: devs,
		logger:  zap.L(),
		now:     time.Now,
	}
}

// Tick runs one evaluation pass: bind, trigger, compute, merge, log and apply.
func (l *logic) Tick() *model.TickReport {
	start := l.now()
	report := &model.TickReport{
		Time:    start,
		Online:  deviceNames(l.devices.OnlineDevices()),
		Offline: deviceNames(l.devices.OfflineDevices()),
	}

	var computed []*computedRule
	for _, b := range l.bind() {
		reading := model.Reading{Rule: b.rule.Name(), Sensor: b.sensor.symbol.Name, Device: b.rule.Device().Name}

		value, err := b.sensor.read()
		if err != nil {
			l.logger.Error("failed to read sensor",
				zap.String("rule", reading.Rule),
				zap.String("sensor", reading.Sensor),
				zap.String("device", reading.Device),
				zap.Error(err))
			reading.Error = err.Error()
			report.Readings = append(report.Readings, reading)
			continue
		}
		reading.Value = value

		if b.triggered() {
			reading.Triggered = true
			report.Triggered = append(report.Triggered, reading.Rule)
			computed = append(computed, b.compute())
		}
		report.Readings = append(report.Readings, reading)
	}

	for _, c := range computed {
		if c.shouldLog {
			l.logRule(c.binding)
		}
	}

	for _, req := range merge(computed) {
		report.Outputs = append(report.Outputs, l.apply(req))
	}

	report.Duration = l.now().Sub(start)
	return report
}

// bind pairs every rule whose sensor device is online with a fresh sensor handle.
func (l *logic) bind() []*binding {
	bindings := make([]*binding, 0, len(l.program.Rules))
	for _, rule := range l.program.Rules {
		drv, ok := l.devices.Driver(rule.Device())
		if !ok {
			continue
		}
		bindings = append(bindings, &binding{
			rule:   rule,
			sensor: &onlineSensor{symbol: rule.Sensor, driver: drv},
		})
	}
	return bindings
}

func (l *logic) logRule(b *binding) {
	value, _ := b.sensor.read()
	l.logger.Info("rule triggered",
		zap.String("rule", b.rule.Name()),
		zap.String("sensor", b.sensor.symbol.Name),
		zap.Stringer("value", value))
}

func (l *logic) apply(req *request) model.OutputValue {
	out := req.output
	result := model.OutputValue{
		Output:  out.Name,
		Device:  out.Device.Name,
		Rule:    req.rule.Name(),
		Percent: req.percent,
	}

	drv, ok := l.devices.Driver(out.Device)
	if !ok {
		l.logger.Warn("couldn't apply rule, output device is offline",
			zap.String("output", out.Name),
			zap.String("device", out.Device.Name),
			zap.String("rule", result.Rule))
		result.Status = model.Skipped
		return result
	}

	l.logger.Debug("setting output",
		zap.String("output", out.Name),
		zap.Stringer("percent", req.percent),
		zap.String("rule", result.Rule))
	if err := drv.SetPwm(out.Index, device.ManualPercent{Percent: req.percent}); err != nil {
		l.logger.Error("failed to set output",
			zap.String("output", out.Name),
			zap.String("device", out.Device.Name),
			zap.Error(err))
		result.Status = model.Failed
		result.Error = err.Error()
		return result
	}
	result.Status = model.Applied
	return result
}

func deviceNames(devs []*symbols.Device) []string {
	return lo.Map(devs, func(d *symbols.Device, _ int) string { return d.Name })
}
