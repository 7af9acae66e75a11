package dispatcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crackserver/internal/dictionary"
	"github.com/ykhdr/crackserver/internal/events"
	"github.com/ykhdr/crackserver/internal/hashcrack"
	"github.com/ykhdr/crackserver/internal/hashcrack/hasher"
	"github.com/ykhdr/crackserver/internal/session"
	"github.com/ykhdr/crackserver/internal/stats"
)

type server struct {
	addr string
	d    *Dispatcher
	stop func() error
}

func startServer(t *testing.T, words []string, maxConnections int) *server {
	t.Helper()
	ln, err := Listen(0, maxConnections)
	require.NoError(t, err)
	require.NotZero(t, Port(ln))

	h := hasher.NewDES()
	d := NewDispatcher(dictionary.New(words), &session.Env{
		Hasher:        h,
		Cracker:       hashcrack.NewCoordinator(h),
		Events:        events.NewNoop(),
		Stats:         stats.New(nil),
		MaxLineLength: 1024,
	})
	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- d.Serve(ctx, ln) }()

	var once sync.Once
	var serveErr error
	stop := func() error {
		once.Do(func() {
			cancel()
			serveErr = <-errC
		})
		return serveErr
	}
	t.Cleanup(func() { _ = stop() })
	return &server{addr: fmt.Sprintf("127.0.0.1:%d", Port(ln)), d: d, stop: stop}
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *client) send(line string, timeout time.Duration) (string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return "", err
	}
	return c.r.ReadString('\n')
}

func (c *client) mustSend(line string) string {
	c.t.Helper()
	resp, err := c.send(line, 10*time.Second)
	require.NoError(c.t, err)
	return resp
}

func TestConcurrentSessions(t *testing.T) {
	srv := startServer(t, []string{"alpha", "beta", "gamma", "delta"}, 0)
	target, err := hasher.NewDES().Hash("gamma", "ab")
	require.NoError(t, err)

	clients := make([]*client, 8)
	for i := range clients {
		clients[i] = dial(t, srv.addr)
	}

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			word := fmt.Sprintf("own%d", i)
			resp, err := c.send("crypt "+word+" cd", 10*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			ct := strings.TrimSuffix(resp, "\n")
			for line, want := range map[string]string{
				"crack " + target + " 2": "gamma\n",
				"crack " + ct + " 3":     word + "\n",
				"crack " + ct:            ":invalid\n",
			} {
				got, err := c.send(line, 10*time.Second)
				assert.NoError(t, err)
				assert.Equal(t, want, got, line)
			}
		}()
	}
	wg.Wait()

	snap := srv.d.env.Stats.Snapshot()
	assert.EqualValues(t, 8, snap.TotalSessions)
	assert.EqualValues(t, 8, snap.CryptCommands)
	assert.EqualValues(t, 16, snap.CrackFound)
	assert.EqualValues(t, 8, snap.InvalidCommands)
	assert.Equal(t, 4, snap.DictionarySize)
}

func TestCryptWordStaysInItsSession(t *testing.T) {
	srv := startServer(t, []string{"alpha"}, 0)
	a := dial(t, srv.addr)
	b := dial(t, srv.addr)

	ct := strings.TrimSuffix(a.mustSend("crypt private ab"), "\n")
	assert.Equal(t, ":failed\n", b.mustSend("crack "+ct+" 1"))

	c := dial(t, srv.addr)
	assert.Equal(t, ":failed\n", c.mustSend("crack "+ct+" 1"))
	assert.Equal(t, "private\n", a.mustSend("crack "+ct+" 1"))
}

func TestMaxConnectionsQueuesExtraClients(t *testing.T) {
	srv := startServer(t, []string{"alpha"}, 1)
	first := dial(t, srv.addr)
	assert.Equal(t, "ab", first.mustSend("crypt a ab")[:2])

	second := dial(t, srv.addr)
	_, err := second.send("crypt b ab", 200*time.Millisecond)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected timeout, got %v", err)

	require.NoError(t, first.conn.Close())
	require.NoError(t, second.conn.SetDeadline(time.Now().Add(10*time.Second)))
	resp, err := second.r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ab", resp[:2])
}

func TestServeReturnsAfterShutdown(t *testing.T) {
	srv := startServer(t, []string{"alpha"}, 0)
	c := dial(t, srv.addr)
	assert.Equal(t, "ab", c.mustSend("crypt a ab")[:2])

	require.NoError(t, srv.stop())

	require.NoError(t, c.conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := c.r.ReadString('\n')
	assert.Error(t, err)
	assert.Zero(t, srv.d.env.Stats.Snapshot().ActiveSessions)

	_, err = net.DialTimeout("tcp", srv.addr, time.Second)
	assert.Error(t, err)
}

func TestListenRejectsBusyPort(t *testing.T) {
	ln, err := Listen(0, 0)
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	_, err = Listen(Port(ln), 0)
	assert.True(t, errors.Is(err, ErrListen))
}

func TestNextDelay(t *testing.T) {
	assert.Equal(t, minAcceptDelay, nextDelay(0))
	assert.Equal(t, 2*minAcceptDelay, nextDelay(minAcceptDelay))
	assert.Equal(t, maxAcceptDelay, nextDelay(maxAcceptDelay))
	assert.Equal(t, maxAcceptDelay, nextDelay(800*time.Millisecond))
}
