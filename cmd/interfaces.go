package cmd

import (
	"context"
	"time"

	"github.com/anicoll/fancontrol/internal/pkg/model"
	"github.com/anicoll/fancontrol/internal/pkg/udev"
)

// Hardware is what cmd.run expects from the hot-plug event source.
type Hardware interface {
	Find(tag string) (udev.Device, bool, error)
	Poll(ctx context.Context, timeout time.Duration) ([]udev.Event, error)
	Close() error
}

// Sink receives tick reports from the publisher.
type Sink interface {
	Write(ctx context.Context, report *model.TickReport) error
	RegisterEntities(ctx context.Context, entities []model.Entity) error
}
