// Package events reports finished crack jobs to interested parties.
package events

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crackserver/internal/amqp"
	amqpconn "github.com/ykhdr/crackserver/internal/amqp/connection"
	"github.com/ykhdr/crackserver/internal/amqp/publisher"
)

// CrackEvent describes one crack command. The recovered plaintext is never
// part of it.
type CrackEvent struct {
	Id             string    `json:"id"`
	SessionId      string    `json:"session_id"`
	Salt           string    `json:"salt"`
	Threads        int       `json:"threads"`
	DictionarySize int       `json:"dictionary_size"`
	Found          bool      `json:"found"`
	DurationMs     int64     `json:"duration_ms"`
	Time           time.Time `json:"time"`
}

const appId = "crackserver"

type Publisher interface {
	PublishCrack(ctx context.Context, event *CrackEvent) error
	Close() error
}

type noopPublisher struct{}

func NewNoop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishCrack(context.Context, *CrackEvent) error { return nil }
func (noopPublisher) Close() error                                    { return nil }

type amqpPublisher struct {
	l    zerolog.Logger
	conn *amqpconn.Connection
	ch   *amqpconn.Channel
	pub  publisher.Publisher[CrackEvent]
	mode publisher.DeliveryMode
}

// NewAmqp dials the broker and publishes every event to the configured
// destination as JSON.
func NewAmqp(ctx context.Context, cfg *amqp.Config) (Publisher, error) {
	conn, err := amqp.Dial(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open amqp channel")
	}
	return &amqpPublisher{
		conn: conn,
		ch:   ch,
		pub:  publisher.New[CrackEvent](ch, cfg.Events.PublisherConfig(appId)),
		mode: cfg.Events.Mode(),
		l: log.With().
			Str("domain", "events").
			Str("type", "amqp").
			Logger(),
	}, nil
}

func (p *amqpPublisher) PublishCrack(ctx context.Context, event *CrackEvent) error {
	return p.pub.SendMessage(ctx, event, p.mode)
}

func (p *amqpPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.l.Warn().Err(err).Msg("close channel")
	}
	return p.conn.Close()
}
