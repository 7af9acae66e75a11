// Package stats exports the crack server's process metrics to Prometheus.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	namespace = "crackserver"

	outcomeFound  = "found"
	outcomeFailed = "failed"
)

// Metrics holds the server's collectors. All methods are nil-safe: calls on a
// nil *Metrics are no-ops.
type Metrics struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	// CommandsTotal counts accepted commands by verb ("crypt", "crack").
	CommandsTotal *prometheus.CounterVec
	// CracksTotal counts finished cracks by outcome ("found", "failed").
	CracksTotal     *prometheus.CounterVec
	InvalidTotal    prometheus.Counter
	DictionaryWords prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of currently connected clients",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "total",
			Help:      "Total number of accepted client connections",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total number of served commands by verb",
		}, []string{"verb"}),
		CracksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cracks",
			Name:      "total",
			Help:      "Total number of finished cracks by outcome",
		}, []string{"outcome"}),
		InvalidTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "invalid_total",
			Help:      "Total number of request lines answered with :invalid",
		}),
		DictionaryWords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dictionary",
			Name:      "words",
			Help:      "Number of words in the master dictionary",
		}),
	}
	for _, outcome := range []string{outcomeFound, outcomeFailed} {
		m.CracksTotal.WithLabelValues(outcome)
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsActive,
			m.SessionsTotal,
			m.CommandsTotal,
			m.CracksTotal,
			m.InvalidTotal,
			m.DictionaryWords,
		)
	}
	return m
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) RecordCommand(verb string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(verb).Inc()
}

func (m *Metrics) RecordCrack(found bool) {
	if m == nil {
		return
	}
	outcome := outcomeFailed
	if found {
		outcome = outcomeFound
	}
	m.CracksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordInvalid() {
	if m == nil {
		return
	}
	m.InvalidTotal.Inc()
}

func (m *Metrics) SetDictionaryWords(n int) {
	if m == nil {
		return
	}
	m.DictionaryWords.Set(float64(n))
}

// Snapshot is the JSON view of the collectors served by the admin API.
type Snapshot struct {
	ActiveSessions  int64 `json:"active_sessions"`
	TotalSessions   int64 `json:"total_sessions"`
	CryptCommands   int64 `json:"crypt_commands"`
	CrackCommands   int64 `json:"crack_commands"`
	CrackFound      int64 `json:"crack_found"`
	CrackFailed     int64 `json:"crack_failed"`
	InvalidCommands int64 `json:"invalid_commands"`
	DictionarySize  int   `json:"dictionary_size"`
}

// Snapshot reads each collector independently; the values are not a
// consistent cut across collectors.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		ActiveSessions:  int64(value(m.SessionsActive)),
		TotalSessions:   int64(value(m.SessionsTotal)),
		CryptCommands:   int64(value(m.CommandsTotal.WithLabelValues("crypt"))),
		CrackCommands:   int64(value(m.CommandsTotal.WithLabelValues("crack"))),
		CrackFound:      int64(value(m.CracksTotal.WithLabelValues(outcomeFound))),
		CrackFailed:     int64(value(m.CracksTotal.WithLabelValues(outcomeFailed))),
		InvalidCommands: int64(value(m.InvalidTotal)),
		DictionarySize:  int(value(m.DictionaryWords)),
	}
}

func value(c prometheus.Metric) float64 {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	return 0
}
