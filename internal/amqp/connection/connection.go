// Package connection wraps amqp091 connections and channels so they are
// re-established in the background after the broker drops them.
package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrConnAlreadyClosed    = errors.New("connection is already closed")
	ErrChannelAlreadyClosed = errors.New("channel is already closed")
)

type Connection struct {
	l    zerolog.Logger
	uri  string
	opts amqp.Config

	reconnectTimeout time.Duration

	mu     sync.RWMutex
	conn   *amqp.Connection
	closed atomic.Bool
	cancel context.CancelFunc
}

func NewConnection(ctx context.Context, uri string, opts amqp.Config, reconnectTimeout time.Duration) (*Connection, error) {
	c, err := amqp.DialConfig(uri, opts)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp connection")
	}
	ctx, cancel := context.WithCancel(ctx)
	conn := &Connection{
		uri:              uri,
		opts:             opts,
		conn:             c,
		cancel:           cancel,
		reconnectTimeout: reconnectTimeout,
		l:                log.With().Str("component", "amqp-connection").Logger(),
	}
	go conn.watch(ctx)
	return conn, nil
}

func (c *Connection) current() *amqp.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrConnAlreadyClosed
	}
	c.cancel()
	if err := c.current().Close(); err != nil {
		return errors.Wrap(err, "close amqp connection")
	}
	return nil
}

// watch redials after every unexpected close until ctx ends or Close is
// called.
func (c *Connection) watch(ctx context.Context) {
	for {
		notify := c.current().NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-ctx.Done():
			return
		case err, ok := <-notify:
			if !ok || c.closed.Load() {
				return
			}
			c.l.Warn().Err(err).Msg("connection closed, try to reconnect")
		}
		if !c.redial(ctx) {
			return
		}
		c.l.Info().Msg("amqp connection reconnected")
	}
}

func (c *Connection) redial(ctx context.Context) bool {
	for {
		if c.closed.Load() {
			return false
		}
		cc, err := amqp.DialConfig(c.uri, c.opts)
		if err == nil {
			c.mu.Lock()
			c.conn = cc
			c.mu.Unlock()
			return true
		}
		c.l.Warn().Err(err).Msg("amqp reconnect failed")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.reconnectTimeout):
		}
	}
}

type Channel struct {
	l    zerolog.Logger
	conn *Connection

	mu     sync.RWMutex
	ch     *amqp.Channel
	closed atomic.Bool
	cancel context.CancelFunc
}

func (c *Connection) Channel(ctx context.Context) (*Channel, error) {
	amqpCh, err := c.current().Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	ctx, cancel := context.WithCancel(ctx)
	ch := &Channel{
		ch:     amqpCh,
		conn:   c,
		cancel: cancel,
		l:      log.With().Str("component", "amqp-channel").Logger(),
	}
	go ch.watch(ctx)
	return ch, nil
}

func (ch *Channel) current() *amqp.Channel {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.ch
}

func (ch *Channel) IsClosed() bool {
	return ch.closed.Load()
}

func (ch *Channel) Close() error {
	if !ch.closed.CompareAndSwap(false, true) {
		return ErrChannelAlreadyClosed
	}
	ch.cancel()
	if err := ch.current().Close(); err != nil {
		return errors.Wrap(err, "close amqp channel")
	}
	return nil
}

func (ch *Channel) Publish(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if ch.IsClosed() {
		return ErrChannelAlreadyClosed
	}
	if err := ch.current().PublishWithContext(ctx, exchange, key, mandatory, immediate, msg); err != nil {
		return errors.Wrap(err, "publish")
	}
	return nil
}

func (ch *Channel) watch(ctx context.Context) {
	for {
		notify := ch.current().NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-ctx.Done():
			return
		case err, ok := <-notify:
			if !ok || ch.closed.Load() {
				return
			}
			ch.l.Warn().Err(err).Msg("channel closed, try to reopen")
		}
		if !ch.reopen(ctx) {
			return
		}
		ch.l.Info().Msg("amqp channel reopened")
	}
}

func (ch *Channel) reopen(ctx context.Context) bool {
	for {
		if ch.closed.Load() {
			return false
		}
		cch, err := ch.conn.current().Channel()
		if err == nil {
			ch.mu.Lock()
			ch.ch = cch
			ch.mu.Unlock()
			return true
		}
		ch.l.Warn().Err(err).Msg("amqp channel reopen failed")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(ch.conn.reconnectTimeout):
		}
	}
}
