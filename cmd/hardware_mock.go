package cmd

import (
	"context"
	"time"

	"github.com/anicoll/fancontrol/internal/pkg/udev"
)

// MockHardware is a mock implementation of the Hardware interface.
type MockHardware struct {
	FindFunc  func(tag string) (udev.Device, bool, error)
	PollFunc  func(ctx context.Context, timeout time.Duration) ([]udev.Event, error)
	CloseFunc func() error
}

func (m *MockHardware) Find(tag string) (udev.Device, bool, error) {
	if m.FindFunc != nil {
		return m.FindFunc(tag)
	}
	return udev.Device{}, false, nil
}

func (m *MockHardware) Poll(ctx context.Context, timeout time.Duration) ([]udev.Event, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, timeout)
	}
	if timeout <= 0 {
		return nil, nil
	}
	select {
	case <-time.After(timeout):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

func (m *MockHardware) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
