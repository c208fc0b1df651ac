package model

// RegisterDevice is the Home Assistant device block shared by every entity of a device.
type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

type RegisterMessage struct {
	Tilda             string         `json:"~"`
	Name              string         `json:"name"`
	ID                string         `json:"unique_id"`
	StateTopic        string         `json:"state_topic"`
	ValueTemplate     string         `json:"value_template,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	Device            RegisterDevice `json:"device"`
}

// Entity is a sensor or output exposed to integrations.
type Entity struct {
	Name   string
	Device string
	Kind   EntityKind
	Unit   string
}

type EntityKind string

const (
	EntitySensor EntityKind = "sensor"
	EntityOutput EntityKind = "output"
)
