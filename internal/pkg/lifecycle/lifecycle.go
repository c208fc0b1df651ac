// Package lifecycle tracks which declared devices are backed by live hardware.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/device"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/udev"
)

// Source enumerates present hardware and reports hot-plug events.
type Source interface {
	Find(tag string) (udev.Device, bool, error)
	Poll(ctx context.Context, timeout time.Duration) ([]udev.Event, error)
}

type Builder interface {
	Build(id, name string, dev udev.Device, opts device.Options) (device.Driver, error)
	Lookup(id string) (device.Builder, error)
}

// Online is a device bound to a driver.
type Online struct {
	Symbol   *symbols.Device
	Driver   device.Driver
	Hardware udev.Device
}

// Manager owns the Offline/Online state of every declared device. It is not
// safe for concurrent use; the control loop is its only caller.
type Manager struct {
	devices  []*symbols.Device
	online   map[*symbols.Device]*Online
	source   Source
	registry Builder
	opts     device.Options
	logger   *zap.Logger
}

func New(devices []*symbols.Device, source Source, registry Builder, dryRun bool) *Manager {
	logger := zap.L()
	return &Manager{
		devices:  devices,
		online:   make(map[*symbols.Device]*Online, len(devices)),
		source:   source,
		registry: registry,
		opts:     device.Options{DryRun: dryRun, Logger: logger},
		logger:   logger,
	}
}

// ValidateDrivers fails if any declared device names an unregistered driver.
func (m *Manager) ValidateDrivers() error {
	var errs []error
	for _, d := range m.devices {
		if _, err := m.registry.Lookup(d.Driver); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discover binds every declared device whose hardware is already present.
func (m *Manager) Discover() error {
	for _, d := range m.devices {
		if m.online[d] != nil {
			continue
		}
		hw, ok, err := m.source.Find(d.Tag)
		if err != nil {
			return err
		}
		if !ok {
			m.logger.Warn("device not found",
				zap.String("device", d.Name),
				zap.String("tag", d.Tag),
				zap.Bool("mandatory", d.Mandatory()))
			continue
		}
		if _, err := m.bring(d, hw); err != nil {
			if errors.Is(err, device.ErrUnknownDriver) {
				return err
			}
			m.logger.Error("failed to bring device online", zap.String("device", d.Name), zap.Error(err))
		}
	}
	return nil
}

// WaitMandatory polls hot-plug events until every mandatory device is online
// or timeout elapses.
func (m *Manager) WaitMandatory(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		missing := m.MissingMandatory()
		if len(missing) == 0 {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &MandatoryError{Reason: ErrMandatoryMissing, Devices: names(missing)}
		}
		m.logger.Info("waiting for mandatory devices",
			zap.Strings("devices", names(missing)),
			zap.Duration("remaining", remaining))
		if err := m.Poll(ctx, remaining); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error("hot-plug poll failed", zap.Error(err))
		}
	}
}

// Poll applies every pending hot-plug event, waiting up to timeout for the first.
func (m *Manager) Poll(ctx context.Context, timeout time.Duration) error {
	events, err := m.source.Poll(ctx, timeout)
	for _, ev := range events {
		m.Handle(ev)
	}
	return err
}

func (m *Manager) Handle(ev udev.Event) {
	if len(ev.Device.Tags) == 0 {
		m.logger.Debug("ignoring untagged event", zap.String("devpath", ev.Device.DevPath))
		return
	}
	switch ev.Action {
	case udev.ActionAdd:
		m.handleAdd(ev.Device)
	case udev.ActionRemove:
		m.handleRemove(ev.Device)
	default:
		m.logger.Debug("ignoring event", zap.String("action", string(ev.Action)), zap.String("devpath", ev.Device.DevPath))
	}
}

func (m *Manager) handleAdd(hw udev.Device) {
	if d, ok := m.match(hw, false); ok {
		if _, err := m.bring(d, hw); err != nil {
			m.logger.Error("failed to bring device online", zap.String("device", d.Name), zap.Error(err))
		}
		return
	}
	if d, ok := m.match(hw, true); ok {
		m.logger.Error("device already online, ignoring duplicate add",
			zap.String("device", d.Name),
			zap.String("devpath", hw.DevPath),
			zap.String("bound_devpath", m.online[d].Hardware.DevPath))
	}
}

func (m *Manager) handleRemove(hw udev.Device) {
	if d, ok := m.match(hw, true); ok {
		delete(m.online, d)
		m.logger.Info("device offline", zap.String("device", d.Name), zap.Bool("mandatory", d.Mandatory()))
		return
	}
	if d, ok := m.match(hw, false); ok {
		m.logger.Error("device already offline, ignoring duplicate remove",
			zap.String("device", d.Name),
			zap.String("devpath", hw.DevPath))
	}
}

// match finds the declared device whose tag hw carries, among devices in the given state.
func (m *Manager) match(hw udev.Device, online bool) (*symbols.Device, bool) {
	return lo.Find(m.devices, func(d *symbols.Device) bool {
		return (m.online[d] != nil) == online && hw.HasTag(d.Tag)
	})
}

func (m *Manager) bring(d *symbols.Device, hw udev.Device) (*Online, error) {
	drv, err := m.registry.Build(d.Driver, d.Name, hw, m.opts)
	if err != nil {
		return nil, err
	}
	o := &Online{Symbol: d, Driver: drv, Hardware: hw}
	m.online[d] = o
	m.logger.Info("device online",
		zap.String("device", d.Name),
		zap.String("driver", d.Driver),
		zap.String("devpath", hw.DevPath))
	return o, nil
}

// Driver returns the live driver for d, if d is online.
func (m *Manager) Driver(d *symbols.Device) (device.Driver, bool) {
	o, ok := m.online[d]
	if !ok {
		return nil, false
	}
	return o.Driver, true
}

func (m *Manager) IsOnline(d *symbols.Device) bool {
	return m.online[d] != nil
}

func (m *Manager) OnlineDevices() []*symbols.Device {
	return lo.Filter(m.devices, func(d *symbols.Device, _ int) bool { return m.online[d] != nil })
}

func (m *Manager) OfflineDevices() []*symbols.Device {
	return lo.Filter(m.devices, func(d *symbols.Device, _ int) bool { return m.online[d] == nil })
}

func (m *Manager) MissingMandatory() []*symbols.Device {
	return lo.Filter(m.OfflineDevices(), func(d *symbols.Device, _ int) bool { return d.Mandatory() })
}

// CheckMandatory reports ErrMandatoryLost if a mandatory device is offline.
func (m *Manager) CheckMandatory() error {
	missing := m.MissingMandatory()
	if len(missing) == 0 {
		return nil
	}
	return &MandatoryError{Reason: ErrMandatoryLost, Devices: names(missing)}
}

func names(devices []*symbols.Device) []string {
	return lo.Map(devices, func(d *symbols.Device, _ int) string { return d.Name })
}
