package stats

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.SessionOpened()
	m.SessionClosed()
	m.RecordCommand("crypt")
	m.RecordCrack(true)
	m.RecordInvalid()
	m.SetDictionaryWords(3)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestSessionGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.SessionOpened()
		}()
	}
	wg.Wait()
	for range 5 {
		m.SessionClosed()
	}

	assert.Equal(t, float64(15), testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, float64(20), testutil.ToFloat64(m.SessionsTotal))
}

func TestCommandCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordCommand("crypt")
	m.RecordCommand("crack")
	m.RecordCommand("crack")
	m.RecordCrack(true)
	m.RecordCrack(false)
	m.RecordCrack(false)
	m.RecordInvalid()
	m.SetDictionaryWords(42)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandsTotal.WithLabelValues("crypt")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CommandsTotal.WithLabelValues("crack")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CracksTotal.WithLabelValues("failed")))

	assert.Equal(t, Snapshot{
		CryptCommands:   1,
		CrackCommands:   2,
		CrackFound:      1,
		CrackFailed:     2,
		InvalidCommands: 1,
		DictionarySize:  42,
	}, m.Snapshot())
}

func TestRegisteredCollectorsAreExported(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordInvalid()

	expected := `
# HELP crackserver_commands_invalid_total Total number of request lines answered with :invalid
# TYPE crackserver_commands_invalid_total counter
crackserver_commands_invalid_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "crackserver_commands_invalid_total"))

	count, err := testutil.GatherAndCount(reg, "crackserver_cracks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
