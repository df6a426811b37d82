package cli

import (
	"bytes"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/newtboot/pkg/bootstrap"
	"github.com/newtron-network/newtboot/pkg/driver"
)

func sampleReport() *bootstrap.Report {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &bootstrap.Report{
		RunID:    "run-1",
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Devices: []*bootstrap.DeviceResult{
			{
				Hostname:   "r1",
				Connected:  true,
				BasePushed: true,
				BGPPushed:  true,
				Closed:     true,
				Probes: []bootstrap.ProbeResult{
					{Interface: "Gi0/0", Peer: netip.MustParseAddr("10.0.0.2"), Result: driver.PingResult{ProbesSent: 5}},
					{Interface: "Gi0/1", Peer: netip.MustParseAddr("10.0.1.2"), Result: driver.PingResult{ProbesSent: 5, PacketLoss: 5}},
				},
			},
			{
				Hostname:   "r2",
				ConnectErr: errors.New("dial tcp: i/o timeout"),
				Err:        errors.New("r2: base: dial tcp: i/o timeout"),
			},
		},
	}
}

func TestPrintReport(t *testing.T) {
	forceColor(t, false)
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport())
	out := buf.String()

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, []string{"DEVICE", "CONNECT", "BASE", "PROBES", "BGP", "CLOSED", "ERROR"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"r1", "ok", "ok", "1/2", "ok", "ok"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"r2", "failed", "failed", "-", "-", "-"}, strings.Fields(lines[3])[:6])
	assert.Contains(t, lines[3], "r2: base: dial tcp: i/o timeout")
	assert.Contains(t, out, "run run-1 finished with 1 of 2 devices failed: [r2]")
}

func TestPrintReport_Verdicts(t *testing.T) {
	forceColor(t, false)

	t.Run("clean", func(t *testing.T) {
		r := sampleReport()
		r.Devices = r.Devices[:1]
		var buf bytes.Buffer
		PrintReport(&buf, r)
		assert.Contains(t, buf.String(), "run run-1 bootstrapped 1 devices in 1.5s")
	})

	t.Run("aborted", func(t *testing.T) {
		r := sampleReport()
		r.Aborted = true
		var buf bytes.Buffer
		PrintReport(&buf, r)
		assert.Contains(t, buf.String(), "run run-1 aborted after 1.5s")
	})

	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		PrintReport(&buf, nil)
		assert.Empty(t, buf.String())
	})
}
