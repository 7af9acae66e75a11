// Package session runs the request loop for a single client connection.
//
// A session reads one line, answers it, and only then reads the next, so a
// connection never has two commands in flight. Each session owns a private
// copy of the dictionary that grows with every crypt it serves.
package session

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crackserver/internal/dictionary"
	"github.com/ykhdr/crackserver/internal/events"
	"github.com/ykhdr/crackserver/internal/hashcrack"
	"github.com/ykhdr/crackserver/internal/hashcrack/hasher"
	"github.com/ykhdr/crackserver/internal/protocol"
	"github.com/ykhdr/crackserver/internal/stats"
)

const publishTimeout = time.Second

var errLineTooLong = errors.New("line too long")

type Cracker interface {
	Crack(ctx context.Context, job *hashcrack.Job) (hashcrack.Result, error)
}

// Env is what every session shares with its siblings. None of it is mutable
// per session.
type Env struct {
	Hasher        hasher.Hasher
	Cracker       Cracker
	Events        events.Publisher
	Stats         *stats.Metrics
	MaxLineLength int
	// CrackTimeout bounds a single crack; zero means no limit.
	CrackTimeout time.Duration
}

type Session struct {
	l    zerolog.Logger
	id   string
	conn net.Conn
	dict *dictionary.Session
	env  *Env
	// pending is the event of the last crack, published once its answer has
	// been written.
	pending *events.CrackEvent
}

func New(conn net.Conn, dict *dictionary.Session, env *Env) *Session {
	id := uuid.NewString()
	return &Session{
		id:   id,
		conn: conn,
		dict: dict,
		env:  env,
		l: log.With().
			Str("domain", "session").
			Str("session-id", id).
			Str("remote", remoteAddr(conn)).
			Logger(),
	}
}

func (s *Session) Id() string {
	return s.id
}

// Serve runs until the peer disconnects, a read or write fails, or ctx is
// cancelled. The connection is always closed on return.
func (s *Session) Serve(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer func() {
		stop()
		_ = s.conn.Close()
	}()
	s.l.Debug().Msg("session started")

	r := bufio.NewReader(s.conn)
	w := bufio.NewWriter(s.conn)
	for {
		line, readErr := readLine(r, s.env.MaxLineLength)
		var resp string
		switch {
		case errors.Is(readErr, errLineTooLong):
			s.env.Stats.RecordInvalid()
			s.l.Debug().Msg("rejecting overlong line")
			resp = protocol.Invalid
			readErr = nil
		case readErr != nil && line == "":
			s.logClose(readErr)
			return
		default:
			resp = s.handle(ctx, line)
		}
		writeErr := writeLine(w, resp)
		s.publishPending(ctx)
		if writeErr != nil {
			s.l.Debug().Err(writeErr).Msg("write failed, closing session")
			return
		}
		if readErr != nil {
			s.logClose(readErr)
			return
		}
	}
}

// handle answers one request line and returns the response without its
// trailing newline. The event of a crack is held until publishPending.
func (s *Session) handle(ctx context.Context, line string) string {
	cmd := protocol.Parse(line)
	switch cmd.Kind {
	case protocol.KindCrypt:
		return s.crypt(cmd)
	case protocol.KindCrack:
		return s.crack(ctx, cmd)
	default:
		s.env.Stats.RecordInvalid()
		s.l.Debug().Str("reason", cmd.Reason).Msg("invalid command")
		return protocol.Invalid
	}
}

func (s *Session) crypt(cmd protocol.Command) string {
	ciphertext, err := s.env.Hasher.Hash(cmd.Plaintext, cmd.Salt)
	if err != nil {
		s.env.Stats.RecordInvalid()
		s.l.Warn().Err(err).Msg("crypt failed")
		return protocol.Invalid
	}
	s.dict.Add(cmd.Plaintext)
	s.env.Stats.RecordCommand(protocol.VerbCrypt)
	return ciphertext
}

func (s *Session) crack(ctx context.Context, cmd protocol.Command) string {
	s.env.Stats.RecordCommand(protocol.VerbCrack)
	job := &hashcrack.Job{
		Ciphertext: cmd.Ciphertext,
		Salt:       cmd.Salt,
		Threads:    cmd.Threads,
		Words:      s.dict.Snapshot(),
	}
	crackCtx := ctx
	if s.env.CrackTimeout > 0 {
		var cancel context.CancelFunc
		crackCtx, cancel = context.WithTimeout(ctx, s.env.CrackTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.env.Cracker.Crack(crackCtx, job)
	elapsed := time.Since(start)
	if err != nil {
		s.l.Warn().Err(err).Dur("elapsed", elapsed).Msg("crack aborted")
	}
	s.env.Stats.RecordCrack(res.Found)
	s.pending = &events.CrackEvent{
		Id:             uuid.NewString(),
		SessionId:      s.id,
		Salt:           job.Salt,
		Threads:        hashcrack.EffectiveThreads(len(job.Words), job.Threads),
		DictionarySize: len(job.Words),
		Found:          res.Found,
		DurationMs:     elapsed.Milliseconds(),
		Time:           time.Now(),
	}

	if !res.Found {
		return protocol.Failed
	}
	return res.Word
}

// publishPending sends the held crack event, if any. It outlives a cancelled
// ctx by at most publishTimeout.
func (s *Session) publishPending(ctx context.Context) {
	event := s.pending
	if event == nil {
		return
	}
	s.pending = nil
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.env.Events.PublishCrack(ctx, event); err != nil {
		s.l.Warn().Err(err).Msg("publish crack event")
	}
}

func (s *Session) logClose(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		s.l.Debug().Msg("session closed")
		return
	}
	s.l.Debug().Err(err).Msg("session closed on read error")
}

// readLine returns the next line without its newline, copied into a fresh
// buffer. A final line cut short by EOF comes back together with the error.
// Lines longer than a positive maxLen are consumed through their newline and
// reported as errLineTooLong.
func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var (
		line    []byte
		tooLong bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			n := len(line)
			if n > 0 && line[n-1] == '\n' {
				n--
			}
			if maxLen > 0 && n > maxLen {
				tooLong = true
				line = nil
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if tooLong {
				return "", err
			}
			return string(line), err
		}
		if tooLong {
			return "", errLineTooLong
		}
		return string(line[:len(line)-1]), nil
	}
}

func writeLine(w *bufio.Writer, resp string) error {
	if _, err := w.WriteString(resp); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
