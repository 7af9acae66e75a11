package dispatcher

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crackserver/internal/dictionary"
	"github.com/ykhdr/crackserver/internal/session"
	"golang.org/x/net/netutil"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

var ErrListen = errors.New("unable to open socket for listening")

// Listen binds an IPv4 TCP socket on every interface. Port 0 asks the OS for
// a free port. A positive maxConnections caps how many accepted connections
// may be open at once; further accepts wait for a slot.
func Listen(port, maxConnections int) (net.Listener, error) {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrapf(ErrListen, "port %d: %v", port, err)
	}
	if maxConnections > 0 {
		ln = netutil.LimitListener(ln, maxConnections)
	}
	return ln, nil
}

// Port returns the TCP port ln is bound to, or 0 for non-TCP listeners.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

type Dispatcher struct {
	l        zerolog.Logger
	dict     *dictionary.Dictionary
	env      *session.Env
	sessions sync.WaitGroup
}

func NewDispatcher(dict *dictionary.Dictionary, env *session.Env) *Dispatcher {
	env.Stats.SetDictionaryWords(dict.Len())
	return &Dispatcher{
		dict: dict,
		env:  env,
		l: log.With().
			Str("domain", "dispatcher").
			Logger(),
	}
}

// Serve accepts connections from ln until ctx is cancelled or the listener
// fails, running one session per connection. It never waits on a session
// before accepting the next connection, but it does wait for all of them
// before returning. ln is closed on return.
func (d *Dispatcher) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		d.sessions.Wait()
		d.l.Debug().Msg("all sessions finished")
	}()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer func() {
		stop()
		_ = ln.Close()
	}()

	d.l.Info().Str("address", ln.Addr().String()).Msg("dispatcher is running")
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return errors.Wrap(err, "listener closed")
			}
			delay = nextDelay(delay)
			d.l.Warn().Err(err).Dur("retry-in", delay).Msg("accept failed")
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		delay = 0
		d.sessions.Add(1)
		go func() {
			defer d.sessions.Done()
			d.serveConn(ctx, conn)
		}()
	}
}

func (d *Dispatcher) serveConn(ctx context.Context, conn net.Conn) {
	d.env.Stats.SessionOpened()
	defer d.env.Stats.SessionClosed()
	s := session.New(conn, d.dict.NewSession(), d.env)
	d.l.Debug().
		Str("session-id", s.Id()).
		Str("remote", conn.RemoteAddr().String()).
		Msg("client connected")
	s.Serve(ctx)
}

func nextDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	if next := prev * 2; next < maxAcceptDelay {
		return next
	}
	return maxAcceptDelay
}
