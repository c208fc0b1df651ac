package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const DefaultTopicPrefix = "homeassistant"

type service struct {
	client paho_mqtt.Client
	prefix string
	logger *zap.Logger

	mu         sync.Mutex
	registered map[string]struct{}
	lastValue  map[string]string
}

func New(client paho_mqtt.Client, topicPrefix string) *service {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &service{
		client:     client,
		prefix:     topicPrefix,
		logger:     zap.L(),
		registered: make(map[string]struct{}),
		lastValue:  make(map[string]string),
	}
}

// NewClient builds a paho client for the broker at host.
func NewClient(host, username, password string) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(host).
		SetClientID("fancontrol").
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	return paho_mqtt.NewClient(opts)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(time.Second * 5)
	if res {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func (s *service) Disconnect() {
	s.client.Disconnect(250)
}
