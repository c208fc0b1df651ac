package publisher

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/contxt"
	"github.com/anicoll/fancontrol/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

const writeTimeout = 5 * time.Second

type publisher interface {
	// Write publishes one tick report.
	Write(ctx context.Context, report *model.TickReport) error
	RegisterEntities(ctx context.Context, entities []model.Entity) error
}

// Publisher hands tick reports from the control loop to every registered
// sink on its own goroutine, so a slow sink never delays a tick.
type Publisher struct {
	publishers map[string]publisher
	queue      chan *model.TickReport
	logger     *zap.Logger
}

func New(buffer int) *Publisher {
	return &Publisher{
		publishers: make(map[string]publisher),
		queue:      make(chan *model.TickReport, buffer),
		logger:     zap.L(),
	}
}

func (p *Publisher) RegisterPublisher(name string, pub publisher) error {
	if _, ok := p.publishers[name]; ok {
		return errAlreadyRegistered
	}
	p.publishers[name] = pub
	return nil
}

func (p *Publisher) Len() int { return len(p.publishers) }

// RegisterEntities announces sensors and outputs to every sink.
func (p *Publisher) RegisterEntities(ctx context.Context, entities []model.Entity) {
	for _, name := range p.names() {
		if err := p.publishers[name].RegisterEntities(ctx, entities); err != nil {
			p.logger.Error("failed to register entities", zap.Error(err), zap.String("publisher", name))
			continue
		}
		p.logger.Debug("registered entities", zap.Int("count", len(entities)), zap.String("publisher", name))
	}
}

// Report queues report for publishing, dropping it when the sinks fall behind.
func (p *Publisher) Report(report *model.TickReport) {
	select {
	case p.queue <- report:
	default:
		p.logger.Warn("publisher queue full, dropping tick report", zap.Time("tick", report.Time))
	}
}

func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case report := <-p.queue:
			p.PublishData(report)
		}
	}
}

func (p *Publisher) PublishData(report *model.TickReport) {
	for _, name := range p.names() {
		ctx, cancel := contxt.WithTimeout(writeTimeout)
		err := p.publishers[name].Write(ctx, report)
		cancel()
		if err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		p.logger.Debug("published tick report", zap.String("publisher", name))
	}
}

func (p *Publisher) names() []string {
	names := make([]string, 0, len(p.publishers))
	for name := range p.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
