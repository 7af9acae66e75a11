package amqp

import (
	"time"

	"github.com/pkg/errors"
	"github.com/ykhdr/crackserver/internal/amqp/publisher"
)

type Config struct {
	URI              string        `kdl:"uri"`
	Username         string        `kdl:"username"`
	Password         string        `kdl:"password"`
	ReconnectTimeout time.Duration `kdl:"reconnect-timeout"`
	Events           *EventsConfig `kdl:"events"`
}

// EventsConfig is the destination of crack events. Events are persistent
// unless Transient is set.
type EventsConfig struct {
	Exchange   string `kdl:"exchange"`
	RoutingKey string `kdl:"routing-key"`
	Transient  bool   `kdl:"transient"`
}

func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.New("amqp uri is empty")
	}
	if c.Events == nil {
		return errors.New("amqp block requires an events block")
	}
	if c.Events.RoutingKey == "" && c.Events.Exchange == "" {
		return errors.New("amqp events need an exchange or a routing key")
	}
	return nil
}

// PublisherConfig publishes JSON to the configured destination on behalf of
// appId.
func (e *EventsConfig) PublisherConfig(appId string) *publisher.Config {
	return &publisher.Config{
		Exchange:   e.Exchange,
		RoutingKey: e.RoutingKey,
		AppId:      appId,
	}
}

func (e *EventsConfig) Mode() publisher.DeliveryMode {
	if e.Transient {
		return publisher.Transient
	}
	return publisher.Persistent
}
