package udev

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"go.uber.org/zap"
)

const queueSize = 64

// Monitor listens for udev-processed netlink events and also enumerates
// present devices.
type Monitor struct {
	Enumerator

	conn   *netlink.UEventConn
	queue  chan netlink.UEvent
	errs   chan error
	quit   chan struct{}
	logger *zap.Logger
}

func NewMonitor(enumerator Enumerator) (*Monitor, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	m := &Monitor{
		Enumerator: enumerator,
		conn:       conn,
		queue:      make(chan netlink.UEvent, queueSize),
		errs:       make(chan error, queueSize),
		logger:     zap.L(),
	}
	m.quit = conn.Monitor(m.queue, m.errs, nil)
	return m, nil
}

// Poll waits up to timeout for a first event, then drains whatever else is
// pending. A zero timeout never blocks.
func (m *Monitor) Poll(ctx context.Context, timeout time.Duration) ([]Event, error) {
	var events []Event
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case ev := <-m.queue:
			events = append(events, m.convert(ev))
		case err := <-m.errs:
			return nil, err
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for {
		select {
		case ev := <-m.queue:
			events = append(events, m.convert(ev))
		case err := <-m.errs:
			return events, err
		default:
			return events, nil
		}
	}
}

func (m *Monitor) convert(ev netlink.UEvent) Event {
	devPath := ev.KObj
	if p, ok := ev.Env["DEVPATH"]; ok && p != "" {
		devPath = p
	}
	event := Event{
		Action: Action(ev.Action),
		Device: Device{
			SysPath: filepath.Join(m.SysDir, devPath),
			DevPath: devPath,
			Tags:    ParseTags(ev.Env["TAGS"]),
		},
	}
	m.logger.Debug("udev event",
		zap.String("action", string(event.Action)),
		zap.String("devpath", devPath),
		zap.Strings("tags", event.Device.Tags))
	return event
}

func (m *Monitor) Close() error {
	close(m.quit)
	return m.conn.Close()
}
