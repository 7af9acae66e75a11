package amqp

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	conn "github.com/ykhdr/crackserver/internal/amqp/connection"
)

const defaultReconnectTimeout = 5 * time.Second

func Dial(ctx context.Context, cfg *Config) (*conn.Connection, error) {
	var opts amqp.Config
	if cfg.Username != "" {
		opts.SASL = []amqp.Authentication{
			&amqp.PlainAuth{
				Username: cfg.Username,
				Password: cfg.Password,
			},
		}
	}
	timeout := cfg.ReconnectTimeout
	if timeout <= 0 {
		timeout = defaultReconnectTimeout
	}
	return conn.NewConnection(ctx, cfg.URI, opts, timeout)
}
