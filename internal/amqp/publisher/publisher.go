package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type DeliveryMode uint8

const (
	Transient  DeliveryMode = 1
	Persistent DeliveryMode = 2
)

type Marshal func(any) ([]byte, error)

type Config struct {
	Exchange   string
	RoutingKey string
	// AppId is stamped on every message so consumers can tell producers apart.
	AppId       string
	Marshal     Marshal
	ContentType string
}

// Sender is the part of a channel the publisher needs.
type Sender interface {
	Publish(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher[T any] interface {
	SendMessage(ctx context.Context, message *T, mode DeliveryMode) error
}

type publisher[T any] struct {
	cfg         *Config
	sender      Sender
	marshal     Marshal
	contentType string
	l           zerolog.Logger
}

func New[T any](sender Sender, cfg *Config) Publisher[T] {
	if cfg.Marshal == nil {
		cfg.Marshal = json.Marshal
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	return &publisher[T]{
		cfg:         cfg,
		sender:      sender,
		marshal:     cfg.Marshal,
		contentType: cfg.ContentType,
		l: log.With().
			Str("component", "amqp-publisher").
			Type("type", *new(T)).
			Str("exchange", cfg.Exchange).
			Str("routing-key", cfg.RoutingKey).
			Logger(),
	}
}

func (p *publisher[T]) SendMessage(ctx context.Context, message *T, mode DeliveryMode) error {
	body, err := p.marshal(message)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	msg := amqp.Publishing{
		MessageId:    uuid.NewString(),
		AppId:        p.cfg.AppId,
		Timestamp:    time.Now().UTC(),
		DeliveryMode: uint8(mode),
		ContentType:  p.contentType,
		Body:         body,
	}
	if err := p.sender.Publish(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg); err != nil {
		return errors.Wrapf(err, "send message %s", msg.MessageId)
	}
	p.l.Debug().Str("message-id", msg.MessageId).Int("bytes", len(body)).Msg("message sent")
	return nil
}
