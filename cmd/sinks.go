package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/cache"
	"github.com/anicoll/fancontrol/internal/pkg/config"
	"github.com/anicoll/fancontrol/internal/pkg/database"
	"github.com/anicoll/fancontrol/internal/pkg/database/migration"
	"github.com/anicoll/fancontrol/internal/pkg/model"
	"github.com/anicoll/fancontrol/internal/pkg/mqtt"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/publisher"
	"github.com/anicoll/fancontrol/internal/pkg/server"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

type sinks struct {
	db      *database.Database
	closers []func()
}

// setupSinks registers every configured sink with pub. A sink that cannot be
// reached is logged and left out; the control loop never depends on one.
func setupSinks(ctx context.Context, cfg config.Integrations, pub *publisher.Publisher) *sinks {
	s := &sinks{}
	logger := zap.L()

	if cfg.MqttCfg.Enabled() {
		svc := mqtt.New(mqtt.NewClient(cfg.MqttCfg.Host, cfg.MqttCfg.Username, cfg.MqttCfg.Password), cfg.MqttCfg.TopicPrefix)
		if err := svc.Connect(); err != nil {
			logger.Error("failed to connect to mqtt broker", zap.Error(err), zap.String("host", cfg.MqttCfg.Host))
		} else {
			s.closers = append(s.closers, svc.Disconnect)
			s.register(pub, "mqtt", svc)
		}
	}

	if cfg.DatabaseCfg.Enabled() {
		if db, err := openDatabase(ctx, cfg.DatabaseCfg.URL); err != nil {
			logger.Error("failed to open database", zap.Error(err))
		} else {
			s.db = db
			s.closers = append(s.closers, func() { _ = db.Close() })
			s.register(pub, "postgres", db)
		}
	}

	if cfg.RedisCfg.Enabled() {
		if client, err := cache.NewClient(ctx, cfg.RedisCfg.Addr, cfg.RedisCfg.Password, cfg.RedisCfg.DB); err != nil {
			logger.Error("failed to connect to redis", zap.Error(err), zap.String("addr", cfg.RedisCfg.Addr))
		} else {
			s.closers = append(s.closers, func() { _ = client.Close() })
			s.register(pub, "redis", cache.New(client, cfg.RedisCfg.TTL))
		}
	}

	return s
}

func (s *sinks) register(pub *publisher.Publisher, name string, sink Sink) {
	if err := pub.RegisterPublisher(name, sink); err != nil {
		zap.L().Error("failed to register publisher", zap.Error(err), zap.String("publisher", name))
		return
	}
	zap.L().Info("publisher enabled", zap.String("publisher", name))
}

// history returns the database as a sample history, or nil without one.
func (s *sinks) history() server.History {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *sinks) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openDatabase(ctx context.Context, url string) (*database.Database, error) {
	if err := migration.Migrate(url); err != nil {
		return nil, err
	}
	return database.NewDatabase(ctx, url)
}

// entities lists every sensor and output the sinks should announce.
func entities(prog *program.ThermalProgram) []model.Entity {
	var out []model.Entity
	for _, s := range symbols.AllOfType[*symbols.Sensor](prog.Symbols) {
		unit := units.Celsius
		if s.Kind == ast.Fan {
			unit = units.RPM
		}
		out = append(out, model.Entity{Name: s.Name, Device: s.Device.Name, Kind: model.EntitySensor, Unit: unit.String()})
	}
	for _, o := range symbols.AllOfType[*symbols.Output](prog.Symbols) {
		out = append(out, model.Entity{Name: o.Name, Device: o.Device.Name, Kind: model.EntityOutput, Unit: "%"})
	}
	return out
}
