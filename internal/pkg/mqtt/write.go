package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/model"
)

// Write publishes the state of every sensor and applied output whose value
// changed. A failed publish does not stop the others.
func (s *service) Write(ctx context.Context, report *model.TickReport) error {
	var errs []error
	for sensor, reading := range report.SensorValues() {
		value := strconv.FormatFloat(reading.Value.Float(), 'f', 3, 64)
		errs = append(errs, s.publishState(ctx, model.Entity{Name: sensor, Device: reading.Device, Kind: model.EntitySensor}, value))
	}
	for _, out := range report.AppliedOutputs() {
		value := strconv.Itoa(out.Percent.Int())
		errs = append(errs, s.publishState(ctx, model.Entity{Name: out.Output, Device: out.Device, Kind: model.EntityOutput}, value))
	}
	return errors.Join(errs...)
}

func (s *service) RegisterEntities(ctx context.Context, entities []model.Entity) error {
	for _, e := range entities {
		id := identifier(e)
		s.mu.Lock()
		_, exists := s.registered[id]
		s.mu.Unlock()
		if exists {
			continue
		}

		payload, err := json.Marshal(s.registerMsg(e))
		if err != nil {
			return err
		}
		if err := s.publish(ctx, s.configTopic(e), 1, true, payload); err != nil {
			return err
		}
		s.mu.Lock()
		s.registered[id] = struct{}{}
		s.mu.Unlock()
		s.logger.Info("registered entity", zap.String("entity", id))
	}
	return nil
}

func (s *service) publishState(ctx context.Context, e model.Entity, value string) error {
	id := identifier(e)
	s.mu.Lock()
	last, seen := s.lastValue[id]
	s.mu.Unlock()
	if seen && last == value {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}
	if err := s.publish(ctx, s.stateTopic(e), 0, false, payload); err != nil {
		s.logger.Error("failed to publish state", zap.Error(err), zap.String("entity", id))
		return err
	}
	s.mu.Lock()
	s.lastValue[id] = value
	s.mu.Unlock()
	return nil
}

func (s *service) publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	token := s.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func identifier(e model.Entity) string {
	return slug.Make(fmt.Sprintf("fancontrol %s %s", e.Device, e.Name))
}

func (s *service) base(e model.Entity) string {
	return fmt.Sprintf("%s/sensor/%s", s.prefix, identifier(e))
}

func (s *service) configTopic(e model.Entity) string {
	return s.base(e) + "/config"
}

func (s *service) stateTopic(e model.Entity) string {
	return s.base(e) + "/state"
}

func (s *service) registerMsg(e model.Entity) model.RegisterMessage {
	deviceID := slug.Make("fancontrol " + e.Device)
	msg := model.RegisterMessage{
		Tilda:             s.base(e),
		Name:              fmt.Sprintf("%s %s", e.Device, e.Name),
		ID:                identifier(e),
		StateTopic:        "~/state",
		ValueTemplate:     "{{ value_json.value }}",
		UnitOfMeasurement: e.Unit,
		StateClass:        "measurement",
		Device: model.RegisterDevice{
			Name:         e.Device,
			Identifiers:  []string{deviceID},
			Model:        string(e.Kind),
			Manufacturer: "fancontrol",
		},
	}
	if e.Kind == model.EntitySensor && e.Unit == "°C" {
		msg.DeviceClass = "temperature"
	}
	return msg
}
