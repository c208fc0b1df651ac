package device

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/udev"
)

var (
	errAlreadyRegistered = errors.New("driver already registered")
	ErrUnknownDriver     = errors.New("unknown driver")
)

type Options struct {
	// DryRun logs writes instead of performing them.
	DryRun bool
	Logger *zap.Logger
}

// Builder creates a driver named name for the hardware at dev.
type Builder func(name string, dev udev.Device, opts Options) (Driver, error)

type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry knows every driver shipped with the daemon.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(HwmonDriver, NewHwmon)
	_ = r.Register(Nct6775Driver, NewNct6775)
	return r
}

func (r *Registry) Register(id string, builder Builder) error {
	if _, ok := r.builders[id]; ok {
		return fmt.Errorf("%w: %s", errAlreadyRegistered, id)
	}
	r.builders[id] = builder
	return nil
}

// Lookup fails with ErrUnknownDriver when id was never registered.
func (r *Registry) Lookup(id string) (Builder, error) {
	b, ok := r.builders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownDriver, id, r.IDs())
	}
	return b, nil
}

func (r *Registry) Build(id, name string, dev udev.Device, opts Options) (Driver, error) {
	b, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return b(name, dev, opts)
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.builders))
	for id := range r.builders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
