package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveOperation("connect", nil)
	m.ObserveOperation("connect", nil)
	m.ObserveOperation("connect", errors.New("refused"))
	m.ObserveOperation("base", nil)
	m.ObserveProbe(true)
	m.ObserveProbe(false)
	m.ObserveProbe(true)
	m.ObservePhase("connect", 1500*time.Millisecond)
	m.ObserveRun(3, false, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deviceOperations.WithLabelValues("connect", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deviceOperations.WithLabelValues("connect", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deviceOperations.WithLabelValues("base", ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probes.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.phaseDuration.WithLabelValues("connect")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.devices))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastRunSuccess))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRunTimestamp))

	m.ObserveRun(3, true, time.Now())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastRunSuccess))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("base", nil)
		m.ObservePhase("base", time.Second)
		m.ObserveProbe(true)
		m.ObserveRun(1, true, time.Now())
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveOperation("bgp", nil)
	m.ObserveRun(2, true, time.Now())

	path := filepath.Join(t.TempDir(), "textfile", "newtboot.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `newtboot_device_operations_total{phase="bgp",result="success"} 1`)
	assert.Contains(t, string(data), "newtboot_last_run_success 1")
	assert.Contains(t, string(data), "newtboot_devices 2")
}
