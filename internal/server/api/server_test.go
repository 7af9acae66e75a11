package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crackserver/internal/stats"
)

type fixedStats stats.Snapshot

func (f fixedStats) Snapshot() stats.Snapshot { return stats.Snapshot(f) }

func TestHealth(t *testing.T) {
	s := NewServer(fixedStats{}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStats(t *testing.T) {
	s := NewServer(fixedStats{ActiveSessions: 2, CrackFound: 5, DictionarySize: 100}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StatsPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["active_sessions"])
	assert.EqualValues(t, 5, got["crack_found"])
	assert.EqualValues(t, 100, got["dictionary_size"])
}

func TestMetricsExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := stats.New(reg)
	m.SessionOpened()
	m.RecordCrack(true)

	s := NewServer(m, reg)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "crackserver_sessions_active 1")
	assert.Contains(t, body, `crackserver_cracks_total{outcome="found"} 1`)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StatsPath, nil))
	assert.True(t, strings.Contains(rec.Body.String(), `"crack_found":1`))
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	s := NewServer(fixedStats{}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(fixedStats{}, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, HealthPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := NewServer(fixedStats{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- s.Start(ctx, ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s%s", ln.Addr(), HealthPath))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-errC:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("api server did not stop")
	}
}
